// Package domain holds commercial conditions and the pure resolver that turns
// a price and a condition into a payment breakdown.
package domain

import (
	"strings"

	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition is a reusable or per-quotation negotiation template.
type Condition struct {
	ID                 uuid.UUID
	StudioID           uuid.UUID
	Name               string
	Description        *string
	DiscountPercentage *decimal.Decimal
	Advance            AdvancePolicy
	// Temporary conditions belong to a single quotation and are never listed.
	Temporary   bool
	QuotationID *uuid.UUID
}

// Validate checks ranges and scoping.
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperr.Validation("condition name is required")
	}
	if c.DiscountPercentage != nil && !money.IsPercent(*c.DiscountPercentage) {
		return apperr.Validation("discount percentage must be between 0 and 100")
	}
	if c.Temporary && c.QuotationID == nil {
		return apperr.Validation("temporary condition requires a quotation")
	}
	return c.Advance.Validate()
}
