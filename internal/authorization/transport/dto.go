package transport

import (
	"time"

	conditionstransport "studio_portal_backend/internal/conditions/transport"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	Amount  decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	Method  string          `json:"method" validate:"required,max=50"`
	PaidAt  time.Time       `json:"paidAt" validate:"required"`
	Concept string          `json:"concept" validate:"required,max=200"`
}

// AuthorizeRequest confirms a draft quotation. Amount must equal the
// quotation total under the chosen condition.
type AuthorizeRequest struct {
	LeadID             uuid.UUID       `json:"leadId" validate:"required"`
	ConditionID        uuid.UUID       `json:"conditionId" validate:"required"`
	Amount             decimal.Decimal `json:"amount" validate:"decimal_gte0"`
	Payment            *PaymentRequest `json:"payment,omitempty" validate:"omitempty"`
	ContractTemplateID *uuid.UUID      `json:"contractTemplateId,omitempty"`
}

type AuthorizeResponse struct {
	EventID           uuid.UUID                             `json:"eventId"`
	QuotationID       uuid.UUID                             `json:"quotationId"`
	QuotationStatus   string                                `json:"quotationStatus"`
	Breakdown         conditionstransport.BreakdownResponse `json:"breakdown"`
	PaymentID         *uuid.UUID                            `json:"paymentId,omitempty"`
	ArchivedSiblings  int64                                 `json:"archivedSiblings"`
	ContractRequested bool                                  `json:"contractRequested"`
	Warnings          []string                              `json:"warnings,omitempty"`
}
