// Package repository persists commercial conditions.
package repository

import (
	"context"
	"errors"
	"fmt"

	"studio_portal_backend/internal/conditions/domain"
	"studio_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	opGetCondition    = "conditions.repository.GetByID"
	opListConditions  = "conditions.repository.List"
	opCreateCondition = "conditions.repository.Create"

	msgConditionNotFound = "commercial condition not found"
)

const conditionColumns = `id, studio_id, name, description, discount_percentage,
	advance_type, advance_percentage, advance_amount, is_temporary, quotation_id`

// Repository provides condition reads and writes.
type Repository interface {
	GetByID(ctx context.Context, studioID, id uuid.UUID) (*domain.Condition, error)
	List(ctx context.Context, studioID uuid.UUID) ([]domain.Condition, error)
	Create(ctx context.Context, c domain.Condition) (domain.Condition, error)
}

// Repo implements Repository on PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new conditions repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func scanCondition(row pgx.Row) (domain.Condition, error) {
	var (
		c           domain.Condition
		discount    decimal.NullDecimal
		advanceType *string
		advancePct  decimal.NullDecimal
		advanceAmt  decimal.NullDecimal
	)
	if err := row.Scan(&c.ID, &c.StudioID, &c.Name, &c.Description, &discount,
		&advanceType, &advancePct, &advanceAmt, &c.Temporary, &c.QuotationID); err != nil {
		return domain.Condition{}, err
	}
	if discount.Valid {
		c.DiscountPercentage = &discount.Decimal
	}
	policy, err := domain.AdvancePolicyFromColumns(advanceType, advancePct, advanceAmt)
	if err != nil {
		return domain.Condition{}, err
	}
	c.Advance = policy
	return c, nil
}

// GetByID loads a condition scoped to the studio. Temporary conditions are included.
func (r *Repo) GetByID(ctx context.Context, studioID, id uuid.UUID) (*domain.Condition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conditionColumns+`
		FROM commercial_conditions
		WHERE id = $1 AND studio_id = $2`, id, studioID)

	c, err := scanCondition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(msgConditionNotFound).WithOp(opGetCondition)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opGetCondition, err)
	}
	return &c, nil
}

// List returns the studio's reusable conditions.
func (r *Repo) List(ctx context.Context, studioID uuid.UUID) ([]domain.Condition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+conditionColumns+`
		FROM commercial_conditions
		WHERE studio_id = $1 AND NOT is_temporary
		ORDER BY name, id`, studioID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListConditions, err)
	}
	defer rows.Close()

	out := []domain.Condition{}
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opListConditions, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", opListConditions, err)
	}
	return out, nil
}

// Create inserts c and returns it with its generated id.
func (r *Repo) Create(ctx context.Context, c domain.Condition) (domain.Condition, error) {
	advanceType, advancePct, advanceAmt := c.Advance.Columns()
	var discount decimal.NullDecimal
	if c.DiscountPercentage != nil {
		discount = decimal.NewNullDecimal(*c.DiscountPercentage)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO commercial_conditions
			(studio_id, name, description, discount_percentage, advance_type, advance_percentage, advance_amount, is_temporary, quotation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+conditionColumns,
		c.StudioID, c.Name, c.Description, discount, advanceType, advancePct, advanceAmt, c.Temporary, c.QuotationID)

	created, err := scanCondition(row)
	if err != nil {
		return domain.Condition{}, fmt.Errorf("%s: %w", opCreateCondition, err)
	}
	return created, nil
}
