package repository

import (
	"time"

	"studio_portal_backend/internal/conditions/domain"
	"studio_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quotation statuses.
const (
	StatusDraft      = "draft"
	StatusAuthorized = "authorized"
	StatusCancelled  = "cancelled"
)

// Quotation is the database model for a quotation header.
type Quotation struct {
	ID                 uuid.UUID
	StudioID           uuid.UUID
	LeadID             uuid.UUID
	Name               string
	Description        *string
	BasePrice          decimal.Decimal
	Status             string
	Archived           bool
	ConditionID        *uuid.UUID
	PricingMode        string
	NegotiatedPrice    *decimal.Decimal
	OriginalPrice      *decimal.Decimal
	SpecialBonus       decimal.Decimal
	EventID            *uuid.UUID
	PaymentPromiseDate *time.Time
	PaymentRegistered  bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsEditable reports whether pricing may still change.
func (q Quotation) IsEditable() bool {
	return q.Status == StatusDraft && !q.Archived
}

// Item is a quotation line with its unit price frozen at creation.
type Item struct {
	ID            uuid.UUID
	QuotationID   uuid.UUID
	CatalogItemID uuid.UUID
	Name          string
	Quantity      int
	UnitPrice     decimal.Decimal
	Courtesy      bool
	Position      int
}

// LineTotal is quantity times unit price.
func (it Item) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Adjustments is the persisted outcome of a negotiation.
type Adjustments struct {
	PricingMode     string
	NegotiatedPrice *decimal.Decimal
	OriginalPrice   *decimal.Decimal
	SpecialBonus    decimal.Decimal
	CourtesyItemIDs []uuid.UUID
}

// PricingInput builds the resolver input for this quotation. The same input
// feeds the live breakdown and authorization.
func (q Quotation) PricingInput(cond *domain.Condition) (domain.ResolveInput, error) {
	mode, err := domain.ParseMode(q.PricingMode)
	if err != nil {
		return domain.ResolveInput{}, err
	}
	in := domain.ResolveInput{Mode: mode, BasePrice: q.BasePrice, Condition: cond}
	if mode == domain.ModeNegotiated {
		if q.NegotiatedPrice == nil {
			return domain.ResolveInput{}, apperr.Validation("negotiated quotation has no negotiated price")
		}
		in.Negotiation = &domain.Negotiation{Price: *q.NegotiatedPrice, OriginalPrice: q.OriginalPrice}
	}
	return in, nil
}
