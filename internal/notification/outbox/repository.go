// Package outbox stores follow-up work that must survive the request that
// produced it. Rows are claimed by the scheduler dispatcher and processed by
// the notification module.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusEnqueued       Status = "enqueued"
	StatusProcessing     Status = "processing"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	errRepoNotConfigured        = "outbox repository not configured"
)

// Kinds of follow-up work.
const (
	KindAudit              = "audit"
	KindCalendarSync       = "calendar_sync"
	KindNotification       = "notification"
	KindContractGeneration = "contract_generation"
)

// TemplateQuoteApproved is the template of every follow-up produced by an
// authorization.
const TemplateQuoteApproved = "quote_approved"

type Record struct {
	ID       uuid.UUID
	StudioID uuid.UUID
	Kind     string
	Template string
	Payload  json.RawMessage
	RunAt    time.Time
	Status   Status
	Attempts int
}

type InsertParams struct {
	StudioID  uuid.UUID
	Kind      string
	Template  string
	Payload   any
	RunAt     time.Time
	Status    Status // optional; defaults to pending
	LastError *string
}

// Repository runs outbox statements against a pool or, via WithTx, inside a
// caller's transaction.
type Repository struct {
	q  db.DBTX
	tx db.TxBeginner
}

// New binds the repository to a pool.
func New(pool interface {
	db.DBTX
	db.TxBeginner
}) *Repository {
	return &Repository{q: pool, tx: pool}
}

// WithTx returns a repository whose writes join tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{q: tx}
}

func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if r == nil || r.q == nil {
		return uuid.Nil, errors.New(errRepoNotConfigured)
	}
	if p.StudioID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("studioId is required")
	}
	if p.Kind == "" {
		return uuid.Nil, fmt.Errorf("kind is required")
	}
	if p.Template == "" {
		return uuid.Nil, fmt.Errorf("template is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}
	status := p.Status
	if status == "" {
		status = StatusPending
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id uuid.UUID
	err = r.q.QueryRow(ctx,
		`INSERT INTO notification_outbox (studio_id, kind, template, payload, run_at, status, last_error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		p.StudioID, p.Kind, p.Template, payloadBytes, p.RunAt, string(status), p.LastError,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	if r == nil || r.q == nil {
		return Record{}, errors.New(errRepoNotConfigured)
	}

	row := r.q.QueryRow(ctx,
		`SELECT id, studio_id, kind, template, payload, run_at, status, attempts
		 FROM notification_outbox
		 WHERE id = $1`,
		id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, apperr.NotFound("outbox record not found")
	}
	return rec, err
}

// ClaimPending moves up to limit due rows to enqueued. Concurrent dispatchers
// never claim the same row.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.tx == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 50
	}

	var results []Record
	err := db.WithTx(ctx, r.tx, db.ReadCommitted, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `WITH cte AS (
			SELECT id
			FROM notification_outbox
			WHERE status = 'pending' AND run_at <= now()
			ORDER BY run_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_outbox o
		SET status = 'enqueued', updated_at = now()
		FROM cte
		WHERE o.id = cte.id
		RETURNING o.id, o.studio_id, o.kind, o.template, o.payload, o.run_at, o.status, o.attempts`, limit)
		if err != nil {
			return err
		}
		results, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
			return scanRecord(row)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	if err := row.Scan(&rec.ID, &rec.StudioID, &rec.Kind, &rec.Template, &rec.Payload, &rec.RunAt, &status, &rec.Attempts); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error {
	return r.exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1`,
		id,
	)
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'succeeded', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
}

// ScheduleRetry puts the row back to pending, due at runAt.
func (r *Repository) ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	return r.exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, runAt, lastError,
	)
}

// DeleteFinishedBefore removes succeeded and failed rows last touched before cutoff.
func (r *Repository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.q == nil {
		return 0, errors.New(errRepoNotConfigured)
	}
	tag, err := r.q.Exec(ctx,
		`DELETE FROM notification_outbox
		 WHERE status IN ('succeeded', 'failed') AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) exec(ctx context.Context, sql string, args ...any) error {
	if r == nil || r.q == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.q.Exec(ctx, sql, args...)
	return err
}
