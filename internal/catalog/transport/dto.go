package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pricing

type SelectionItem struct {
	ItemID   uuid.UUID `json:"itemId" validate:"required"`
	Quantity int       `json:"quantity" validate:"min=0"`
}

type PriceRequest struct {
	Items []SelectionItem `json:"items" validate:"dive"`
}

type PriceLineResponse struct {
	ItemID    uuid.UUID       `json:"itemId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type PriceResponse struct {
	Total      decimal.Decimal     `json:"total"`
	Lines      []PriceLineResponse `json:"lines"`
	Unresolved []uuid.UUID         `json:"unresolved"`
}

// Pricing configuration

type UpdatePricingConfigRequest struct {
	ServiceMargin   decimal.Decimal `json:"serviceMargin" validate:"decimal_gte0"`
	ProductMargin   decimal.Decimal `json:"productMargin" validate:"decimal_gte0"`
	SalesCommission decimal.Decimal `json:"salesCommission" validate:"decimal_gte0"`
	Markup          decimal.Decimal `json:"markup" validate:"decimal_gte0"`
}

type PricingConfigResponse struct {
	Configured      bool            `json:"configured"`
	ServiceMargin   decimal.Decimal `json:"serviceMargin"`
	ProductMargin   decimal.Decimal `json:"productMargin"`
	SalesCommission decimal.Decimal `json:"salesCommission"`
	Markup          decimal.Decimal `json:"markup"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
}
