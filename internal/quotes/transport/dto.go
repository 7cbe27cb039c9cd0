package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

type SelectionItem struct {
	ItemID   uuid.UUID `json:"itemId" validate:"required"`
	Quantity int       `json:"quantity" validate:"min=0"`
}

// CreateQuotationRequest prices a catalog selection into a new draft.
type CreateQuotationRequest struct {
	LeadID      uuid.UUID       `json:"leadId" validate:"required"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Items       []SelectionItem `json:"items" validate:"required,min=1,dive"`
	ConditionID *uuid.UUID      `json:"conditionId"`
}

// AdjustmentsRequest replaces the negotiation state of a draft.
type AdjustmentsRequest struct {
	CourtesyItemIDs []uuid.UUID      `json:"courtesyItemIds" validate:"omitempty,dive,required"`
	SpecialBonus    decimal.Decimal  `json:"specialBonus" validate:"decimal_gte0"`
	NegotiatedPrice *decimal.Decimal `json:"negotiatedPrice" validate:"omitempty,decimal_gte0"`
}

type ClearAdjustmentsRequest struct {
	Scope string `json:"scope" validate:"required,oneof=courtesies all"`
}

type SetConditionRequest struct {
	ConditionID *uuid.UUID `json:"conditionId"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

type QuotationItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	CatalogItemID uuid.UUID       `json:"catalogItemId"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	IsCourtesy    bool            `json:"isCourtesy"`
}

// NegotiationTotalsResponse carries the derived negotiation amounts.
type NegotiationTotalsResponse struct {
	CatalogSubtotal   decimal.Decimal `json:"catalogSubtotal"`
	CourtesyTotal     decimal.Decimal `json:"courtesyTotal"`
	SpecialBonus      decimal.Decimal `json:"specialBonus"`
	DiscountTotal     decimal.Decimal `json:"discountTotal"`
	ProjectedSubtotal decimal.Decimal `json:"projectedSubtotal"`
}

type QuotationResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	LeadID             uuid.UUID                 `json:"leadId"`
	Name               string                    `json:"name"`
	Description        *string                   `json:"description,omitempty"`
	Status             string                    `json:"status"`
	Archived           bool                      `json:"archived"`
	BasePrice          decimal.Decimal           `json:"basePrice"`
	PricingMode        string                    `json:"pricingMode"`
	NegotiatedPrice    *decimal.Decimal          `json:"negotiatedPrice,omitempty"`
	OriginalPrice      *decimal.Decimal          `json:"originalPrice,omitempty"`
	ConditionID        *uuid.UUID                `json:"conditionId,omitempty"`
	EventID            *uuid.UUID                `json:"eventId,omitempty"`
	PaymentPromiseDate *time.Time                `json:"paymentPromiseDate,omitempty"`
	PaymentRegistered  bool                      `json:"paymentRegistered"`
	Items              []QuotationItemResponse   `json:"items"`
	Totals             NegotiationTotalsResponse `json:"totals"`
	Unresolved         []uuid.UUID               `json:"unresolved,omitempty"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

type QuotationSummaryResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	Archived    bool            `json:"archived"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	PricingMode string          `json:"pricingMode"`
	CreatedAt   time.Time       `json:"createdAt"`
}
