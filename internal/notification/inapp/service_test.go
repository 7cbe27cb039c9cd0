package inapp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/internal/notification/sse"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	created []CreateParams
	listArg [2]int
}

func (s *memoryStore) Create(_ context.Context, p CreateParams) (Notification, error) {
	s.created = append(s.created, p)
	return Notification{ID: uuid.New(), StudioID: p.StudioID, EventType: p.EventType, Title: p.Title, Content: p.Content}, nil
}

func (s *memoryStore) List(_ context.Context, _ uuid.UUID, limit, offset int) ([]Notification, int, error) {
	s.listArg = [2]int{limit, offset}
	return nil, 0, nil
}

func (s *memoryStore) CountUnread(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (s *memoryStore) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (s *memoryStore) MarkAllRead(context.Context, uuid.UUID) error { return nil }

func TestNotifyQuoteApprovedFromOutboxPayload(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, logger.Discard())
	svc.SetSSE(sse.New(logger.Discard()))

	eventID := uuid.New()
	raw, err := json.Marshal(outbox.QuoteApprovedPayload{
		EventID:   eventID,
		EventDate: time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC),
		Total:     money.MustParse("900"),
		Advance:   money.MustParse("450"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Notify(context.Background(), uuid.New(), outbox.TemplateQuoteApproved, json.RawMessage(raw)))

	require.Len(t, store.created, 1)
	got := store.created[0]
	assert.Equal(t, "Quotation authorized", got.Title)
	assert.Equal(t, "Event confirmed for 2026-12-05. Total 900.00, advance 450.00.", got.Content)
	require.NotNil(t, got.ResourceID)
	assert.Equal(t, eventID, *got.ResourceID)
	require.NotNil(t, got.ResourceType)
	assert.Equal(t, "event", *got.ResourceType)
}

func TestNotifyUnknownEventTypeUsesGenericTitle(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, logger.Discard())

	require.NoError(t, svc.Notify(context.Background(), uuid.New(), "payment_received", map[string]string{"k": "v"}))
	require.Len(t, store.created, 1)
	assert.Equal(t, "Notification", store.created[0].Title)
	assert.Nil(t, store.created[0].ResourceID)
}

func TestListClampsPaging(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, logger.Discard())

	_, _, err := svc.List(context.Background(), uuid.New(), 3, 500)
	require.NoError(t, err)
	assert.Equal(t, [2]int{100, 200}, store.listArg)
}
