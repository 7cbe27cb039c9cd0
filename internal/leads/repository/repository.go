package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studio_portal_backend/internal/leads/domain"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

// Repository implements LeadsRepository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ LeadsRepository = (*Repository)(nil)

const leadSelectCols = `
	l.id, l.studio_id, l.contact_id, l.stage_id, l.event_type, l.interest_date, l.event_date,
	COALESCE((SELECT array_agg(t.tag ORDER BY t.tag) FROM lead_tags t WHERE t.lead_id = l.id), '{}'),
	l.created_at, l.updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.StudioID, &l.ContactID, &l.StageID, &l.EventType, &l.InterestDate, &l.EventDate,
		&l.Tags, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// GetByID loads a lead with its tags.
func (r *Repository) GetByID(ctx context.Context, studioID, id uuid.UUID) (Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT`+leadSelectCols+` FROM leads l WHERE l.id = $1 AND l.studio_id = $2`, id, studioID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// Exists reports whether the lead belongs to the studio.
func (r *Repository) Exists(ctx context.Context, studioID, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1 AND studio_id = $2)`, id, studioID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check lead: %w", err)
	}
	return exists, nil
}

// Create inserts a lead, creating a prospect contact first when a name is given.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var lead Lead
	err := db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		contactID := params.ContactID
		if contactID == nil && params.ContactName != nil {
			var id uuid.UUID
			if err := tx.QueryRow(ctx, `
				INSERT INTO contacts (studio_id, name, phone, status) VALUES ($1, $2, $3, 'prospect')
				RETURNING id`, params.StudioID, *params.ContactName, params.ContactPhone).Scan(&id); err != nil {
				return fmt.Errorf("insert contact: %w", err)
			}
			contactID = &id
		}

		var id uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO leads (studio_id, contact_id, stage_id, event_type, interest_date, event_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			params.StudioID, contactID, params.StageID, params.EventType, params.InterestDate, params.EventDate,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}

		var err error
		lead, err = scanLead(tx.QueryRow(ctx, `SELECT`+leadSelectCols+` FROM leads l WHERE l.id = $1`, id))
		return err
	})
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// UpdateStage moves the lead to stageID.
func (r *Repository) UpdateStage(ctx context.Context, studioID, id, stageID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET stage_id = $3, updated_at = now() WHERE id = $1 AND studio_id = $2`, id, studioID, stageID)
	if err != nil {
		return fmt.Errorf("update lead stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}

// UpdateEventDate sets or clears the confirmed event date.
func (r *Repository) UpdateEventDate(ctx context.Context, studioID, id uuid.UUID, eventDate *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET event_date = $3, updated_at = now() WHERE id = $1 AND studio_id = $2`, id, studioID, eventDate)
	if err != nil {
		return fmt.Errorf("update lead event date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}

// AttachTag is idempotent.
func (r *Repository) AttachTag(ctx context.Context, studioID, leadID uuid.UUID, tag string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_tags (lead_id, studio_id, tag)
		SELECT id, studio_id, $3 FROM leads WHERE id = $1 AND studio_id = $2
		ON CONFLICT (lead_id, tag) DO NOTHING`, leadID, studioID, tag)
	if err != nil {
		return fmt.Errorf("attach lead tag: %w", err)
	}
	return nil
}

// DetachTag reports whether the tag was attached.
func (r *Repository) DetachTag(ctx context.Context, studioID, leadID uuid.UUID, tag string) (bool, error) {
	res, err := r.pool.Exec(ctx,
		`DELETE FROM lead_tags WHERE lead_id = $1 AND studio_id = $2 AND tag = $3`, leadID, studioID, tag)
	if err != nil {
		return false, fmt.Errorf("detach lead tag: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// ListStages returns the pipeline's stages in order.
func (r *Repository) ListStages(ctx context.Context, studioID uuid.UUID, kind domain.PipelineKind) ([]domain.Stage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, slug, name, sort_order
		FROM pipeline_stages
		WHERE studio_id = $1 AND pipeline = $2
		ORDER BY sort_order, slug`, studioID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list pipeline stages: %w", err)
	}
	stages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Stage, error) {
		var st domain.Stage
		err := row.Scan(&st.ID, &st.Slug, &st.Name, &st.Order)
		return st, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan pipeline stages: %w", err)
	}
	return stages, nil
}

// SeedStages inserts templates that are not already present.
func (r *Repository) SeedStages(ctx context.Context, studioID uuid.UUID, kind domain.PipelineKind, templates []domain.StageTemplate) error {
	batch := &pgx.Batch{}
	for _, t := range templates {
		batch.Queue(`
			INSERT INTO pipeline_stages (studio_id, pipeline, slug, name, sort_order)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (studio_id, pipeline, slug) DO NOTHING`,
			studioID, string(kind), t.Slug, t.Name, t.Order)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed %s stages: %w", kind, err)
	}
	return nil
}
