package adapters

import (
	"context"
	"fmt"

	"studio_portal_backend/internal/notification"
	"studio_portal_backend/platform/db"

	"github.com/google/uuid"
)

// CalendarSyncRequester records a sync request that the calendar
// integration picks up. Requests are idempotent per event.
type CalendarSyncRequester struct {
	q db.DBTX
}

func NewCalendarSyncRequester(q db.DBTX) *CalendarSyncRequester {
	return &CalendarSyncRequester{q: q}
}

func (a *CalendarSyncRequester) RequestSync(ctx context.Context, studioID, eventID uuid.UUID) error {
	_, err := a.q.Exec(ctx, `
		INSERT INTO calendar_sync_requests (event_id, studio_id)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET status = 'requested', requested_at = now()
	`, eventID, studioID)
	if err != nil {
		return fmt.Errorf("request calendar sync for event %s: %w", eventID, err)
	}
	return nil
}

// ContractRequester records a contract generation request for the document
// service. A repeated request for the same event and template is a no-op.
type ContractRequester struct {
	q db.DBTX
}

func NewContractRequester(q db.DBTX) *ContractRequester {
	return &ContractRequester{q: q}
}

func (a *ContractRequester) RequestContract(ctx context.Context, studioID, eventID, templateID uuid.UUID) error {
	_, err := a.q.Exec(ctx, `
		INSERT INTO contract_requests (studio_id, event_id, template_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, template_id) DO NOTHING
	`, studioID, eventID, templateID)
	if err != nil {
		return fmt.Errorf("request contract for event %s: %w", eventID, err)
	}
	return nil
}

var (
	_ notification.CalendarSyncer    = (*CalendarSyncRequester)(nil)
	_ notification.ContractRequester = (*ContractRequester)(nil)
)
