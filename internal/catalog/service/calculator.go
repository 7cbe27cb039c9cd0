package service

import (
	"bytes"
	"sort"

	"studio_portal_backend/internal/catalog/repository"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceLine is one priced row of a selection.
type PriceLine struct {
	ItemID     uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

// PriceResult is the outcome of pricing a selection against a catalog.
type PriceResult struct {
	Total decimal.Decimal
	Lines []PriceLine
	// Unresolved lists selected ids that are not in the catalog.
	Unresolved []uuid.UUID
}

func emptyResult() PriceResult {
	return PriceResult{Total: money.Zero, Lines: []PriceLine{}, Unresolved: []uuid.UUID{}}
}

// ComputeCatalogPrice prices selection (item id -> quantity) against catalog.
//
//	unit_price = round2(cost * (1+margin) * (1+commission) * (1+markup))
//	line_total = unit_price * quantity
//
// margin is the service or product rate of the item's category. Zero
// quantities are skipped. An empty catalog or missing config prices to zero.
// Lines follow catalog order regardless of map iteration.
func ComputeCatalogPrice(selection map[uuid.UUID]int, catalog repository.Catalog, cfg *repository.PricingConfig) (PriceResult, error) {
	for _, qty := range selection {
		if qty < 0 {
			return PriceResult{}, apperr.Validation("quantity must not be negative")
		}
	}
	if cfg == nil || catalog.IsEmpty() {
		return emptyResult(), nil
	}
	if err := validateRates(cfg); err != nil {
		return PriceResult{}, err
	}

	categories := make(map[uuid.UUID]repository.Category, len(catalog.Categories))
	for _, c := range catalog.Categories {
		categories[c.ID] = c
	}

	commission := money.Factor(cfg.SalesCommission)
	markup := money.Factor(cfg.Markup)
	classFactor := map[repository.MarginClass]decimal.Decimal{
		repository.MarginService: money.Factor(cfg.ServiceMargin),
		repository.MarginProduct: money.Factor(cfg.ProductMargin),
	}

	result := emptyResult()
	seen := make(map[uuid.UUID]struct{}, len(selection))

	for _, item := range orderedItems(catalog, categories) {
		qty, ok := selection[item.ID]
		if !ok || qty == 0 {
			continue
		}
		category, ok := categories[item.CategoryID]
		if !ok {
			continue
		}
		factor, ok := classFactor[category.MarginClass]
		if !ok {
			continue
		}
		seen[item.ID] = struct{}{}

		unit := money.Round(item.Cost.Mul(factor).Mul(commission).Mul(markup))
		line := unit.Mul(decimal.NewFromInt(int64(qty)))

		result.Lines = append(result.Lines, PriceLine{
			ItemID:     item.ID,
			CategoryID: item.CategoryID,
			Name:       item.Name,
			Quantity:   qty,
			UnitPrice:  unit,
			LineTotal:  line,
		})
		result.Total = result.Total.Add(line)
	}

	for id, qty := range selection {
		if qty == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			result.Unresolved = append(result.Unresolved, id)
		}
	}
	sort.Slice(result.Unresolved, func(i, j int) bool {
		return bytes.Compare(result.Unresolved[i][:], result.Unresolved[j][:]) < 0
	})

	return result, nil
}

func validateRates(cfg *repository.PricingConfig) error {
	rates := map[string]decimal.Decimal{
		"serviceMargin":   cfg.ServiceMargin,
		"productMargin":   cfg.ProductMargin,
		"salesCommission": cfg.SalesCommission,
		"markup":          cfg.Markup,
	}
	for name, rate := range rates {
		if rate.IsNegative() {
			return apperr.Validation(name + " must not be negative")
		}
	}
	return nil
}

// orderedItems sorts by (category order, category id, item order, item id).
func orderedItems(catalog repository.Catalog, categories map[uuid.UUID]repository.Category) []repository.Item {
	items := make([]repository.Item, len(catalog.Items))
	copy(items, catalog.Items)

	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := categories[items[i].CategoryID], categories[items[j].CategoryID]
		if ci.Order != cj.Order {
			return ci.Order < cj.Order
		}
		if c := bytes.Compare(ci.ID[:], cj.ID[:]); c != 0 {
			return c < 0
		}
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return bytes.Compare(items[i].ID[:], items[j].ID[:]) < 0
	})
	return items
}
