package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConditionInput describes a condition inline or for creation.
type ConditionInput struct {
	Name               string           `json:"name" validate:"required,max=200"`
	Description        *string          `json:"description" validate:"omitempty,max=2000"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage" validate:"omitempty,percent"`
	AdvanceType        *string          `json:"advanceType" validate:"omitempty,oneof=percentage fixed_amount"`
	AdvancePercentage  *decimal.Decimal `json:"advancePercentage" validate:"omitempty,percent"`
	AdvanceAmount      *decimal.Decimal `json:"advanceAmount" validate:"omitempty,decimal_gte0"`
}

type CreateConditionRequest struct {
	ConditionInput
	// QuotationID scopes a temporary condition to one negotiation.
	QuotationID *uuid.UUID `json:"quotationId"`
	Temporary   bool       `json:"temporary"`
}

type ConditionResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Description        *string          `json:"description,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
	AdvanceType        string           `json:"advanceType"`
	AdvancePercentage  *decimal.Decimal `json:"advancePercentage,omitempty"`
	AdvanceAmount      *decimal.Decimal `json:"advanceAmount,omitempty"`
	Temporary          bool             `json:"temporary"`
	QuotationID        *uuid.UUID       `json:"quotationId,omitempty"`
}

// ResolveRequest previews a breakdown. Exactly one of ConditionID or
// Condition may be set; neither means no discount and no advance.
type ResolveRequest struct {
	BasePrice       decimal.Decimal  `json:"basePrice" validate:"decimal_gte0"`
	Mode            string           `json:"mode" validate:"omitempty,oneof=standard negotiated"`
	NegotiatedPrice *decimal.Decimal `json:"negotiatedPrice" validate:"omitempty,decimal_gte0"`
	OriginalPrice   *decimal.Decimal `json:"originalPrice" validate:"omitempty,decimal_gte0"`
	ConditionID     *uuid.UUID       `json:"conditionId" validate:"excluded_with=Condition"`
	Condition       *ConditionInput  `json:"condition" validate:"omitempty"`
}

// BreakdownResponse is the wire form of a payment breakdown.
type BreakdownResponse struct {
	Mode                   string          `json:"mode"`
	AdvanceType            string          `json:"advanceType"`
	BasePrice              decimal.Decimal `json:"basePrice"`
	OriginalPrice          decimal.Decimal `json:"originalPrice"`
	DiscountPercentage     decimal.Decimal `json:"discountPercentage"`
	Discount               decimal.Decimal `json:"discount"`
	Savings                decimal.Decimal `json:"savings"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	Total                  decimal.Decimal `json:"total"`
	Advance                decimal.Decimal `json:"advance"`
	Deferred               decimal.Decimal `json:"deferred"`
	DeferredDueBeforeEvent bool            `json:"deferredDueBeforeEvent"`
}
