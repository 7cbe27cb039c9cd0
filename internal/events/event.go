// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"studio_portal_backend/platform/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Publisher   = events.Publisher
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Quotation Domain Events
// =============================================================================

// QuotationAuthorized is published after the authorization transaction commits.
// Subscribers run the best-effort follow-ups (audit, calendar sync, notification).
type QuotationAuthorized struct {
	BaseEvent
	StudioID          uuid.UUID       `json:"studioId"`
	QuotationID       uuid.UUID       `json:"quotationId"`
	LeadID            uuid.UUID       `json:"leadId"`
	ContactID         uuid.UUID       `json:"contactId"`
	EventID           uuid.UUID       `json:"eventId"`
	ConditionID       *uuid.UUID      `json:"conditionId,omitempty"`
	EventDate         time.Time       `json:"eventDate"`
	Total             decimal.Decimal `json:"total"`
	Advance           decimal.Decimal `json:"advance"`
	Deferred          decimal.Decimal `json:"deferred"`
	PaymentID         *uuid.UUID      `json:"paymentId,omitempty"`
	ArchivedSiblings  int64           `json:"archivedSiblings"`
	ContractRequested bool            `json:"contractRequested"`
	ActorID           *uuid.UUID      `json:"actorId,omitempty"`
}

func (e QuotationAuthorized) EventName() string { return "quotes.quotation.authorized" }

// =============================================================================
// Follow-up Domain Events
// =============================================================================

// FollowUpDue is published by the scheduler worker when an outbox record
// should be processed.
type FollowUpDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
	StudioID uuid.UUID `json:"studioId"`
}

func (e FollowUpDue) EventName() string { return "followup.outbox.due" }
