package repository

import (
	"context"
	"errors"
	"fmt"

	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	quotationNotFoundMsg = "quotation not found"
	quotationLockedMsg   = "quotation is no longer a draft"
)

const quotationColumns = `id, studio_id, lead_id, name, description, base_price, status, archived,
	commercial_condition_id, pricing_mode, negotiated_price, original_price, special_bonus,
	event_id, payment_promise_date, payment_registered, created_at, updated_at`

// Repository provides database operations for quotations.
type Repository interface {
	CreateWithItems(ctx context.Context, q *Quotation, items []Item) error
	GetByID(ctx context.Context, studioID, id uuid.UUID) (*Quotation, error)
	ListByLead(ctx context.Context, studioID, leadID uuid.UUID) ([]Quotation, error)
	GetItems(ctx context.Context, studioID, quotationID uuid.UUID) ([]Item, error)
	SaveAdjustments(ctx context.Context, studioID, id uuid.UUID, adj Adjustments) error
	SetCondition(ctx context.Context, studioID, id uuid.UUID, conditionID *uuid.UUID) error
}

// Repo implements Repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new quotations repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func scanQuotation(row pgx.Row) (Quotation, error) {
	var (
		q          Quotation
		negotiated decimal.NullDecimal
		original   decimal.NullDecimal
	)
	err := row.Scan(
		&q.ID, &q.StudioID, &q.LeadID, &q.Name, &q.Description, &q.BasePrice, &q.Status, &q.Archived,
		&q.ConditionID, &q.PricingMode, &negotiated, &original, &q.SpecialBonus,
		&q.EventID, &q.PaymentPromiseDate, &q.PaymentRegistered, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return Quotation{}, err
	}
	q.NegotiatedPrice = fromNull(negotiated)
	q.OriginalPrice = fromNull(original)
	return q, nil
}

func fromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// CreateWithItems inserts a quotation and its line items in a single transaction.
func (r *Repo) CreateWithItems(ctx context.Context, q *Quotation, items []Item) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quotations (studio_id, lead_id, name, description, base_price, status, pricing_mode, special_bonus, commercial_condition_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`,
			q.StudioID, q.LeadID, q.Name, q.Description, q.BasePrice, q.Status, q.PricingMode, q.SpecialBonus, q.ConditionID,
		).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert quotation: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range items {
			items[i].QuotationID = q.ID
			items[i].Position = i
			batch.Queue(`
				INSERT INTO quotation_items (quotation_id, catalog_item_id, name, quantity, unit_price, is_courtesy, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				q.ID, items[i].CatalogItemID, items[i].Name, items[i].Quantity, items[i].UnitPrice, items[i].Courtesy, i,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&items[i].ID)
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert quotation items: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a quotation scoped to the studio.
func (r *Repo) GetByID(ctx context.Context, studioID, id uuid.UUID) (*Quotation, error) {
	q, err := scanQuotation(r.pool.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = $1 AND studio_id = $2`, id, studioID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(quotationNotFoundMsg)
	}
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	return &q, nil
}

// ListByLead returns every quotation of a lead, newest first.
func (r *Repo) ListByLead(ctx context.Context, studioID, leadID uuid.UUID) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE studio_id = $1 AND lead_id = $2 ORDER BY created_at DESC, id`,
		studioID, leadID)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Quotation, error) {
		return scanQuotation(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan quotations: %w", err)
	}
	return out, nil
}

// GetItems retrieves the lines of a quotation in position order.
func (r *Repo) GetItems(ctx context.Context, studioID, quotationID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.quotation_id, i.catalog_item_id, i.name, i.quantity, i.unit_price, i.is_courtesy, i.position
		FROM quotation_items i
		JOIN quotations q ON q.id = i.quotation_id
		WHERE i.quotation_id = $1 AND q.studio_id = $2
		ORDER BY i.position`, quotationID, studioID)
	if err != nil {
		return nil, fmt.Errorf("query quotation items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.QuotationID, &it.CatalogItemID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Courtesy, &it.Position)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan quotation items: %w", err)
	}
	return items, nil
}

// SaveAdjustments persists negotiation state. Only draft, non-archived
// quotations accept it; anything else is a conflict.
func (r *Repo) SaveAdjustments(ctx context.Context, studioID, id uuid.UUID, adj Adjustments) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE quotations
			SET pricing_mode = $3, negotiated_price = $4, original_price = $5, special_bonus = $6, updated_at = now()
			WHERE id = $1 AND studio_id = $2 AND status = 'draft' AND NOT archived`,
			id, studioID, adj.PricingMode, toNull(adj.NegotiatedPrice), toNull(adj.OriginalPrice), adj.SpecialBonus)
		if err != nil {
			return fmt.Errorf("update quotation adjustments: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrLocked(ctx, tx, studioID, id)
		}

		courtesyIDs := adj.CourtesyItemIDs
		if courtesyIDs == nil {
			courtesyIDs = []uuid.UUID{}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE quotation_items
			SET is_courtesy = (catalog_item_id = ANY($2))
			WHERE quotation_id = $1`, id, courtesyIDs); err != nil {
			return fmt.Errorf("update courtesy items: %w", err)
		}
		return nil
	})
}

// SetCondition links a commercial condition while the quotation is a draft.
func (r *Repo) SetCondition(ctx context.Context, studioID, id uuid.UUID, conditionID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotations SET commercial_condition_id = $3, updated_at = now()
		WHERE id = $1 AND studio_id = $2 AND status = 'draft' AND NOT archived`,
		id, studioID, conditionID)
	if err != nil {
		return fmt.Errorf("set quotation condition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrLocked(ctx, r.pool, studioID, id)
	}
	return nil
}

func (r *Repo) missingOrLocked(ctx context.Context, q db.DBTX, studioID, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quotations WHERE id = $1 AND studio_id = $2)`, id, studioID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check quotation: %w", err)
	}
	if !exists {
		return apperr.NotFound(quotationNotFoundMsg)
	}
	return apperr.Conflict(quotationLockedMsg)
}
