package adapters

import (
	"context"

	catalogservice "studio_portal_backend/internal/catalog/service"
	quotesservice "studio_portal_backend/internal/quotes/service"

	"github.com/google/uuid"
)

// SelectionPricer is the catalog service's pricing entry point.
type SelectionPricer interface {
	Price(ctx context.Context, studioID uuid.UUID, selection map[uuid.UUID]int) (catalogservice.PriceResult, error)
}

// CatalogPricer adapts the catalog service for quotation creation.
type CatalogPricer struct {
	catalog SelectionPricer
}

func NewCatalogPricer(catalog SelectionPricer) *CatalogPricer {
	return &CatalogPricer{catalog: catalog}
}

// PriceSelection returns one quotation line per resolved catalog item.
func (a *CatalogPricer) PriceSelection(ctx context.Context, studioID uuid.UUID, selection map[uuid.UUID]int) ([]quotesservice.PricedLine, []uuid.UUID, error) {
	result, err := a.catalog.Price(ctx, studioID, selection)
	if err != nil {
		return nil, nil, err
	}

	lines := make([]quotesservice.PricedLine, 0, len(result.Lines))
	for _, l := range result.Lines {
		lines = append(lines, quotesservice.PricedLine{
			CatalogItemID: l.ItemID,
			Name:          l.Name,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
		})
	}
	return lines, result.Unresolved, nil
}

var _ quotesservice.CatalogPricer = (*CatalogPricer)(nil)
