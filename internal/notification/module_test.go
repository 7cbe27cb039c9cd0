package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"studio_portal_backend/internal/events"
	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/internal/notification/sse"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/cache"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFollowUpConfig struct{ maxAttempts int }

func (testFollowUpConfig) GetFollowUpTimeout() time.Duration { return time.Second }

func (testFollowUpConfig) GetFollowUpDedupTTL() time.Duration { return time.Minute }

func (c testFollowUpConfig) GetOutboxMaxAttempts() int { return c.maxAttempts }

type retryCall struct {
	runAt     time.Time
	lastError string
}

type fakeOutbox struct {
	mu      sync.Mutex
	records map[uuid.UUID]outbox.Record
	retries map[uuid.UUID]retryCall
	failed  map[uuid.UUID]string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		records: map[uuid.UUID]outbox.Record{},
		retries: map[uuid.UUID]retryCall{},
		failed:  map[uuid.UUID]string{},
	}
}

func (f *fakeOutbox) add(rec outbox.Record) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = outbox.StatusEnqueued
	}
	f.records[rec.ID] = rec
	return rec.ID
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, apperr.NotFound("outbox record not found")
	}
	return rec, nil
}

func (f *fakeOutbox) setStatus(id uuid.UUID, status outbox.Status) {
	rec := f.records[id]
	rec.Status = status
	f.records[id] = rec
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.records[id]
	rec.Status = outbox.StatusProcessing
	rec.Attempts++
	f.records[id] = rec
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStatus(id, outbox.StatusSucceeded)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStatus(id, outbox.StatusFailed)
	f.failed[id] = lastError
	return nil
}

func (f *fakeOutbox) ScheduleRetry(_ context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStatus(id, outbox.StatusPending)
	f.retries[id] = retryCall{runAt: runAt, lastError: lastError}
	return nil
}

func (f *fakeOutbox) status(id uuid.UUID) outbox.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].Status
}

type recordingCollaborators struct {
	mu        sync.Mutex
	err       error
	audits    []outbox.QuoteApprovedPayload
	syncs     []uuid.UUID
	notifies  []string
	contracts [][2]uuid.UUID
}

func (r *recordingCollaborators) RecordQuotationAuthorized(_ context.Context, _ uuid.UUID, p outbox.QuoteApprovedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, p)
	return r.err
}

func (r *recordingCollaborators) RequestSync(_ context.Context, _ uuid.UUID, eventID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs = append(r.syncs, eventID)
	return r.err
}

func (r *recordingCollaborators) Notify(_ context.Context, _ uuid.UUID, eventType string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifies = append(r.notifies, eventType)
	return r.err
}

func (r *recordingCollaborators) RequestContract(_ context.Context, _ uuid.UUID, eventID, templateID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts = append(r.contracts, [2]uuid.UUID{eventID, templateID})
	return r.err
}

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestModule(store *fakeOutbox, collab *recordingCollaborators, maxAttempts int) *Module {
	m := newModule(store, cache.NewMemoryDedupStore(), testFollowUpConfig{maxAttempts: maxAttempts}, logger.Discard())
	m.now = func() time.Time { return fixedNow }
	m.SetAuditWriter(collab)
	m.SetCalendarSyncer(collab)
	m.SetNotificationSink(collab)
	m.SetContractRequester(collab)
	return m
}

func approvedPayload(t *testing.T, eventID uuid.UUID) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.QuoteApprovedPayload{
		QuotationID: uuid.New(),
		LeadID:      uuid.New(),
		EventID:     eventID,
		EventDate:   fixedNow.AddDate(0, 2, 0),
		Total:       money.MustParse("900"),
		Advance:     money.MustParse("450"),
		Deferred:    money.MustParse("450"),
	})
	require.NoError(t, err)
	return raw
}

func TestQuotationAuthorizedStreamsQuoteApproved(t *testing.T) {
	m := newTestModule(newFakeOutbox(), &recordingCollaborators{}, 5)
	m.sse = sse.New(logger.Discard())
	studioID, eventID := uuid.New(), uuid.New()

	stream, unsubscribe := m.sse.Subscribe(studioID)
	defer unsubscribe()

	err := m.Handle(context.Background(), events.QuotationAuthorized{
		BaseEvent: events.NewBaseEvent(),
		StudioID:  studioID,
		EventID:   eventID,
		Total:     money.MustParse("900"),
	})
	require.NoError(t, err)

	select {
	case ev := <-stream:
		assert.Equal(t, sse.EventQuoteApproved, ev.Type)
		payload, ok := ev.Data.(outbox.QuoteApprovedPayload)
		require.True(t, ok)
		assert.Equal(t, eventID, payload.EventID)
		assert.True(t, payload.Total.Equal(money.MustParse("900")))
	default:
		t.Fatal("expected a quote_approved stream event")
	}
}

func TestQuotationAuthorizedDoesNotWriteOutbox(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &recordingCollaborators{}, 5)

	err := m.Handle(context.Background(), events.QuotationAuthorized{StudioID: uuid.New(), EventID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, store.records)
}

func TestFollowUpDueRoutesByKind(t *testing.T) {
	eventID, templateID := uuid.New(), uuid.New()
	contract, err := json.Marshal(outbox.ContractPayload{EventID: eventID, TemplateID: templateID})
	require.NoError(t, err)

	cases := []struct {
		name   string
		kind   string
		pay    json.RawMessage
		verify func(t *testing.T, c *recordingCollaborators)
	}{
		{"audit", outbox.KindAudit, approvedPayload(t, eventID), func(t *testing.T, c *recordingCollaborators) {
			require.Len(t, c.audits, 1)
			assert.Equal(t, eventID, c.audits[0].EventID)
		}},
		{"calendar", outbox.KindCalendarSync, approvedPayload(t, eventID), func(t *testing.T, c *recordingCollaborators) {
			assert.Equal(t, []uuid.UUID{eventID}, c.syncs)
		}},
		{"notification", outbox.KindNotification, approvedPayload(t, eventID), func(t *testing.T, c *recordingCollaborators) {
			assert.Equal(t, []string{outbox.TemplateQuoteApproved}, c.notifies)
		}},
		{"contract", outbox.KindContractGeneration, contract, func(t *testing.T, c *recordingCollaborators) {
			assert.Equal(t, [][2]uuid.UUID{{eventID, templateID}}, c.contracts)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeOutbox()
			collab := &recordingCollaborators{}
			m := newTestModule(store, collab, 5)
			id := store.add(outbox.Record{StudioID: uuid.New(), Kind: tc.kind, Template: outbox.TemplateQuoteApproved, Payload: tc.pay})

			require.NoError(t, m.Handle(context.Background(), events.FollowUpDue{OutboxID: id}))
			assert.Equal(t, outbox.StatusSucceeded, store.status(id))
			tc.verify(t, collab)
		})
	}
}

func TestFollowUpDueSkipsSucceededRecord(t *testing.T) {
	store := newFakeOutbox()
	collab := &recordingCollaborators{}
	m := newTestModule(store, collab, 5)
	id := store.add(outbox.Record{Kind: outbox.KindCalendarSync, Payload: approvedPayload(t, uuid.New()), Status: outbox.StatusSucceeded})

	require.NoError(t, m.Handle(context.Background(), events.FollowUpDue{OutboxID: id}))
	assert.Empty(t, collab.syncs)
}

func TestFollowUpDueDeliversOnceWhenRedelivered(t *testing.T) {
	store := newFakeOutbox()
	collab := &recordingCollaborators{}
	m := newTestModule(store, collab, 5)
	id := store.add(outbox.Record{Kind: outbox.KindCalendarSync, Payload: approvedPayload(t, uuid.New())})

	claimed, err := m.dedup.Claim(context.Background(), dedupKey(id), time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, m.Handle(context.Background(), events.FollowUpDue{OutboxID: id}))
	assert.Empty(t, collab.syncs)
	assert.Equal(t, outbox.StatusEnqueued, store.status(id))
}

func TestFollowUpDueSchedulesRetryAndReleasesClaim(t *testing.T) {
	store := newFakeOutbox()
	collab := &recordingCollaborators{err: errors.New("calendar unavailable")}
	m := newTestModule(store, collab, 5)
	id := store.add(outbox.Record{Kind: outbox.KindCalendarSync, Payload: approvedPayload(t, uuid.New()), Attempts: 1})

	require.NoError(t, m.Handle(context.Background(), events.FollowUpDue{OutboxID: id}))

	retry, ok := store.retries[id]
	require.True(t, ok)
	assert.Equal(t, fixedNow.Add(60*time.Second), retry.runAt)
	assert.Contains(t, retry.lastError, "calendar unavailable")
	assert.Equal(t, outbox.StatusPending, store.status(id))

	claimed, err := m.dedup.Claim(context.Background(), dedupKey(id), time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestFollowUpDueMarksFailedAfterMaxAttempts(t *testing.T) {
	store := newFakeOutbox()
	collab := &recordingCollaborators{err: errors.New("timeout")}
	m := newTestModule(store, collab, 3)
	id := store.add(outbox.Record{Kind: outbox.KindAudit, Payload: approvedPayload(t, uuid.New()), Attempts: 2})

	require.NoError(t, m.Handle(context.Background(), events.FollowUpDue{OutboxID: id}))
	assert.Equal(t, outbox.StatusFailed, store.status(id))
	assert.Empty(t, store.retries)
}

func TestFollowUpDueFailsInvalidPayloadWithoutRetry(t *testing.T) {
	store := newFakeOutbox()
	collab := &recordingCollaborators{}
	m := newTestModule(store, collab, 5)
	id := store.add(outbox.Record{Kind: outbox.KindCalendarSync, Payload: json.RawMessage(`{"eventId":"not-a-uuid"}`)})

	require.NoError(t, m.Handle(context.Background(), events.FollowUpDue{OutboxID: id}))
	assert.Equal(t, outbox.StatusFailed, store.status(id))
	assert.Contains(t, store.failed[id], invalidOutboxPayloadPrefix)
	assert.Empty(t, collab.syncs)
}

func TestFollowUpDueFailsUnsupportedKind(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &recordingCollaborators{}, 5)
	id := store.add(outbox.Record{Kind: "fax", Payload: json.RawMessage(`{}`)})

	require.NoError(t, m.Handle(context.Background(), events.FollowUpDue{OutboxID: id}))
	assert.Equal(t, outbox.StatusFailed, store.status(id))
}

func TestFollowUpDueMissingRecord(t *testing.T) {
	m := newTestModule(newFakeOutbox(), &recordingCollaborators{}, 5)

	err := m.Handle(context.Background(), events.FollowUpDue{OutboxID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	assert.Equal(t, 30*time.Second, computeOutboxRetryDelay(0))
	assert.Equal(t, 30*time.Second, computeOutboxRetryDelay(1))
	assert.Equal(t, 2*time.Minute, computeOutboxRetryDelay(3))
	assert.Equal(t, outboxRetryMaxDelay, computeOutboxRetryDelay(10))
	assert.Equal(t, outboxRetryMaxDelay, computeOutboxRetryDelay(80))
}
