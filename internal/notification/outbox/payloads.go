package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteApprovedPayload is stored on audit, calendar_sync and notification rows.
type QuoteApprovedPayload struct {
	QuotationID      uuid.UUID       `json:"quotationId"`
	LeadID           uuid.UUID       `json:"leadId"`
	EventID          uuid.UUID       `json:"eventId"`
	EventDate        time.Time       `json:"eventDate"`
	Total            decimal.Decimal `json:"total"`
	Advance          decimal.Decimal `json:"advance"`
	Deferred         decimal.Decimal `json:"deferred"`
	ArchivedSiblings int64           `json:"archivedSiblings"`
	ActorID          *uuid.UUID      `json:"actorId,omitempty"`
}

// ContractPayload is stored on contract_generation rows.
type ContractPayload struct {
	EventID    uuid.UUID `json:"eventId"`
	TemplateID uuid.UUID `json:"templateId"`
}
