package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studio_portal_backend/internal/events"
	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSchedulerConfig struct {
	batch int
}

func (testSchedulerConfig) GetRedisURL() string { return "" }

func (testSchedulerConfig) GetRedisTLSInsecure() bool { return false }

func (testSchedulerConfig) GetAsynqQueueName() string { return "" }

func (testSchedulerConfig) GetAsynqConcurrency() int { return 1 }

func (testSchedulerConfig) GetOutboxPollInterval() time.Duration { return time.Millisecond }

func (c testSchedulerConfig) GetOutboxBatchSize() int { return c.batch }

func (testSchedulerConfig) GetOutboxRetention() time.Duration { return time.Hour }

type fakeClaimer struct {
	records  []outbox.Record
	limit    int
	released map[uuid.UUID]string
}

func (f *fakeClaimer) ClaimPending(_ context.Context, limit int) ([]outbox.Record, error) {
	f.limit = limit
	out := f.records
	f.records = nil
	return out, nil
}

func (f *fakeClaimer) MarkPending(_ context.Context, id uuid.UUID, lastError *string) error {
	if f.released == nil {
		f.released = map[uuid.UUID]string{}
	}
	f.released[id] = *lastError
	return nil
}

type fakeEnqueuer struct {
	failFor  uuid.UUID
	payloads []FollowUpDuePayload
	runAts   []time.Time
}

func (f *fakeEnqueuer) EnqueueFollowUp(_ context.Context, payload FollowUpDuePayload, runAt time.Time) error {
	if payload.OutboxID == f.failFor.String() {
		return errors.New("redis: connection refused")
	}
	f.payloads = append(f.payloads, payload)
	f.runAts = append(f.runAts, runAt)
	return nil
}

func TestDispatchEnqueuesClaimedRows(t *testing.T) {
	studioID := uuid.New()
	ok, bad := uuid.New(), uuid.New()
	runAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	claimer := &fakeClaimer{records: []outbox.Record{
		{ID: ok, StudioID: studioID, Kind: outbox.KindCalendarSync, RunAt: runAt},
		{ID: bad, StudioID: studioID, Kind: outbox.KindAudit, RunAt: runAt},
	}}
	enq := &fakeEnqueuer{failFor: bad}

	d := NewOutboxDispatcher(testSchedulerConfig{batch: 7}, enq, claimer, logger.Discard())
	n := d.dispatch(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, 7, claimer.limit)
	require.Len(t, enq.payloads, 1)
	assert.Equal(t, FollowUpDuePayload{OutboxID: ok.String(), StudioID: studioID.String()}, enq.payloads[0])
	assert.Equal(t, runAt, enq.runAts[0])
	assert.Contains(t, claimer.released[bad], "connection refused")
	assert.NotContains(t, claimer.released, ok)
}

func TestDispatcherDefaultsBatchSize(t *testing.T) {
	d := NewOutboxDispatcher(testSchedulerConfig{}, &fakeEnqueuer{}, &fakeClaimer{}, logger.Discard())
	assert.Equal(t, defaultBatchSize, d.batch)
}

type capturingBus struct {
	mu     sync.Mutex
	synced []events.Event
}

func (b *capturingBus) Publish(context.Context, events.Event) {}

func (b *capturingBus) PublishSync(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.synced = append(b.synced, e)
	return nil
}

func (b *capturingBus) Subscribe(string, events.Handler) {}

func TestWorkerPublishesFollowUpDue(t *testing.T) {
	bus := &capturingBus{}
	w := &Worker{bus: bus, log: logger.Discard()}
	outboxID, studioID := uuid.New(), uuid.New()

	task, err := NewFollowUpDueTask(FollowUpDuePayload{OutboxID: outboxID.String(), StudioID: studioID.String()})
	require.NoError(t, err)
	require.NoError(t, w.handleFollowUpDue(context.Background(), task))

	require.Len(t, bus.synced, 1)
	due, ok := bus.synced[0].(events.FollowUpDue)
	require.True(t, ok)
	assert.Equal(t, outboxID, due.OutboxID)
	assert.Equal(t, studioID, due.StudioID)
}

func TestWorkerSkipsRetryOnMalformedPayload(t *testing.T) {
	w := &Worker{bus: &capturingBus{}, log: logger.Discard()}

	err := w.handleFollowUpDue(context.Background(), asynq.NewTask(TaskFollowUpDue, []byte(`{"outboxId":"nope","studioId":"x"}`)))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakePurger struct {
	cutoff time.Time
}

func (f *fakePurger) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

func TestOutboxCleanupUsesRetention(t *testing.T) {
	purger := &fakePurger{}
	c := NewOutboxCleanup(purger, logger.Discard(), time.Minute, 48*time.Hour)
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.cleanup(context.Background())
	assert.Equal(t, now.Add(-48*time.Hour), purger.cutoff)
}
