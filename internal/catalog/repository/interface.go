package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarginClass selects which pricing margin applies to a category's items.
type MarginClass string

const (
	MarginService MarginClass = "service"
	MarginProduct MarginClass = "product"
)

// Valid reports whether c is a known margin class.
func (c MarginClass) Valid() bool {
	return c == MarginService || c == MarginProduct
}

// Category groups catalog items under one margin class.
type Category struct {
	ID          uuid.UUID   `db:"id"`
	StudioID    uuid.UUID   `db:"studio_id"`
	Name        string      `db:"name"`
	MarginClass MarginClass `db:"margin_class"`
	Order       int         `db:"sort_order"`
}

// Item is a priced catalog entry. Cost is the studio's own cost.
type Item struct {
	ID         uuid.UUID       `db:"id"`
	StudioID   uuid.UUID       `db:"studio_id"`
	CategoryID uuid.UUID       `db:"category_id"`
	Name       string          `db:"name"`
	Cost       decimal.Decimal `db:"cost"`
	Order      int             `db:"sort_order"`
}

// Catalog is the studio's active category tree.
type Catalog struct {
	Categories []Category
	Items      []Item
}

// IsEmpty reports whether the catalog has no priceable items.
func (c Catalog) IsEmpty() bool {
	return len(c.Items) == 0
}

// PricingConfig holds the studio's percentage rates (30 means 30%).
type PricingConfig struct {
	StudioID        uuid.UUID       `db:"studio_id"`
	ServiceMargin   decimal.Decimal `db:"service_margin"`
	ProductMargin   decimal.Decimal `db:"product_margin"`
	SalesCommission decimal.Decimal `db:"sales_commission"`
	Markup          decimal.Decimal `db:"markup"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Repository defines catalog persistence.
type Repository interface {
	LoadCatalog(ctx context.Context, studioID uuid.UUID) (Catalog, error)
	GetPricingConfig(ctx context.Context, studioID uuid.UUID) (*PricingConfig, error)
	UpsertPricingConfig(ctx context.Context, cfg PricingConfig) (PricingConfig, error)
}
