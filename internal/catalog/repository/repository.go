package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// LoadCatalog returns the studio's categories and active items in display order.
func (r *Repo) LoadCatalog(ctx context.Context, studioID uuid.UUID) (Catalog, error) {
	var catalog Catalog

	rows, err := r.pool.Query(ctx, `
		SELECT id, studio_id, name, margin_class, sort_order
		FROM catalog_categories
		WHERE studio_id = $1
		ORDER BY sort_order, name, id`, studioID)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog categories: %w", err)
	}
	catalog.Categories, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.StudioID, &c.Name, &c.MarginClass, &c.Order)
		return c, err
	})
	if err != nil {
		return Catalog{}, fmt.Errorf("scan catalog categories: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT i.id, i.studio_id, i.category_id, i.name, i.cost, i.sort_order
		FROM catalog_items i
		JOIN catalog_categories c ON c.id = i.category_id
		WHERE i.studio_id = $1 AND i.is_active
		ORDER BY c.sort_order, c.name, i.sort_order, i.name, i.id`, studioID)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog items: %w", err)
	}
	catalog.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.StudioID, &it.CategoryID, &it.Name, &it.Cost, &it.Order)
		return it, err
	})
	if err != nil {
		return Catalog{}, fmt.Errorf("scan catalog items: %w", err)
	}

	return catalog, nil
}

// GetPricingConfig returns nil when the studio has not configured pricing yet.
func (r *Repo) GetPricingConfig(ctx context.Context, studioID uuid.UUID) (*PricingConfig, error) {
	var cfg PricingConfig
	err := r.pool.QueryRow(ctx, `
		SELECT studio_id, service_margin, product_margin, sales_commission, markup, updated_at
		FROM pricing_configs
		WHERE studio_id = $1`, studioID,
	).Scan(&cfg.StudioID, &cfg.ServiceMargin, &cfg.ProductMargin, &cfg.SalesCommission, &cfg.Markup, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pricing config: %w", err)
	}
	return &cfg, nil
}

// UpsertPricingConfig creates or replaces the studio's rates.
func (r *Repo) UpsertPricingConfig(ctx context.Context, cfg PricingConfig) (PricingConfig, error) {
	var out PricingConfig
	err := r.pool.QueryRow(ctx, `
		INSERT INTO pricing_configs (studio_id, service_margin, product_margin, sales_commission, markup, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (studio_id) DO UPDATE
		SET service_margin = EXCLUDED.service_margin,
			product_margin = EXCLUDED.product_margin,
			sales_commission = EXCLUDED.sales_commission,
			markup = EXCLUDED.markup,
			updated_at = now()
		RETURNING studio_id, service_margin, product_margin, sales_commission, markup, updated_at`,
		cfg.StudioID, cfg.ServiceMargin, cfg.ProductMargin, cfg.SalesCommission, cfg.Markup,
	).Scan(&out.StudioID, &out.ServiceMargin, &out.ProductMargin, &out.SalesCommission, &out.Markup, &out.UpdatedAt)
	if err != nil {
		return PricingConfig{}, fmt.Errorf("upsert pricing config: %w", err)
	}
	return out, nil
}
