// Package repository implements the authorization unit of work on PostgreSQL.
// Every statement runs inside one serializable transaction.
package repository

import (
	"context"
	"errors"
	"fmt"

	"studio_portal_backend/internal/authorization/service"
	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository opens authorization transactions.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ service.Store = (*Repository)(nil)

// WithTx runs fn in a serializable transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx service.TxStore) error) error {
	return db.WithTx(ctx, r.pool, db.Serializable, func(tx pgx.Tx) error {
		return fn(ctx, newTxRepository(tx))
	})
}

// TxRepository is bound to one open transaction or savepoint.
type TxRepository struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

var _ service.TxStore = (*TxRepository)(nil)

func newTxRepository(tx pgx.Tx) *TxRepository {
	return &TxRepository{tx: tx, outbox: (&outbox.Repository{}).WithTx(tx)}
}

// LockQuotation reads the quotation state and pricing with FOR UPDATE.
func (r *TxRepository) LockQuotation(ctx context.Context, studioID, quotationID uuid.UUID) (service.QuotationLock, error) {
	var (
		lock                 service.QuotationLock
		negotiated, original decimal.NullDecimal
	)
	err := r.tx.QueryRow(ctx, `
		SELECT status, archived, base_price, pricing_mode, negotiated_price, original_price
		FROM quotations
		WHERE id = $1 AND studio_id = $2
		FOR UPDATE`, quotationID, studioID,
	).Scan(&lock.Status, &lock.Archived, &lock.BasePrice, &lock.PricingMode, &negotiated, &original)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.QuotationLock{}, apperr.NotFound("quotation not found")
	}
	if err != nil {
		return service.QuotationLock{}, fmt.Errorf("lock quotation: %w", err)
	}
	if negotiated.Valid {
		lock.NegotiatedPrice = &negotiated.Decimal
	}
	if original.Valid {
		lock.OriginalPrice = &original.Decimal
	}
	return lock, nil
}

func (r *TxRepository) InsertEvent(ctx context.Context, ev service.NewEvent) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.tx.QueryRow(ctx, `
		INSERT INTO events (studio_id, contact_id, lead_id, quotation_id, event_type, event_date, status, stage_id)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', $7)
		RETURNING id`,
		ev.StudioID, ev.ContactID, ev.LeadID, ev.QuotationID, ev.EventType, ev.EventDate, ev.StageID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (r *TxRepository) PromoteContact(ctx context.Context, studioID, contactID uuid.UUID) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE contacts SET status = 'client', updated_at = now()
		WHERE id = $1 AND studio_id = $2 AND status = 'prospect'`, contactID, studioID)
	if err != nil {
		return false, fmt.Errorf("promote contact: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TxRepository) MarkQuotationAuthorized(ctx context.Context, p service.AuthorizeQuotationParams) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE quotations
		SET status = 'authorized',
		    event_id = $3,
		    commercial_condition_id = $4,
		    payment_promise_date = $5,
		    payment_registered = $6,
		    updated_at = now()
		WHERE id = $1 AND studio_id = $2 AND status = 'draft' AND NOT archived`,
		p.QuotationID, p.StudioID, p.EventID, p.ConditionID, p.PaymentPromiseDate, p.PaymentRegistered)
	if err != nil {
		return fmt.Errorf("authorize quotation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("quotation is not a draft")
	}
	return nil
}

// ArchiveSiblings archives the lead's other live quotations.
func (r *TxRepository) ArchiveSiblings(ctx context.Context, studioID, leadID, keepID uuid.UUID) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE quotations SET archived = true, updated_at = now()
		WHERE studio_id = $1 AND lead_id = $2 AND id <> $3
		  AND status <> 'cancelled' AND NOT archived`, studioID, leadID, keepID)
	if err != nil {
		return 0, fmt.Errorf("archive sibling quotations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TxRepository) SetLeadStage(ctx context.Context, studioID, leadID, stageID uuid.UUID) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE leads SET stage_id = $3, updated_at = now()
		WHERE id = $1 AND studio_id = $2`, leadID, studioID, stageID)
	if err != nil {
		return fmt.Errorf("set lead stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func (r *TxRepository) DetachLeadTag(ctx context.Context, studioID, leadID uuid.UUID, tagName string) (bool, error) {
	tag, err := r.tx.Exec(ctx, `
		DELETE FROM lead_tags WHERE lead_id = $1 AND studio_id = $2 AND tag = $3`, leadID, studioID, tagName)
	if err != nil {
		return false, fmt.Errorf("detach lead tag: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TxRepository) InsertPayment(ctx context.Context, p service.NewPayment) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.tx.QueryRow(ctx, `
		INSERT INTO payments (studio_id, event_id, quotation_id, contact_id, amount, method, paid_at, concept, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'completed')
		RETURNING id`,
		p.StudioID, p.EventID, p.QuotationID, p.ContactID, p.Amount, p.Method, p.PaidAt, p.Concept,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

// EnqueueFollowUps writes the audit, calendar_sync and notification rows of an
// authorization.
func (r *TxRepository) EnqueueFollowUps(ctx context.Context, studioID uuid.UUID, payload outbox.QuoteApprovedPayload) error {
	for _, kind := range []string{outbox.KindAudit, outbox.KindCalendarSync, outbox.KindNotification} {
		_, err := r.outbox.Insert(ctx, outbox.InsertParams{
			StudioID: studioID,
			Kind:     kind,
			Template: outbox.TemplateQuoteApproved,
			Payload:  payload,
		})
		if err != nil {
			return fmt.Errorf("enqueue %s follow-up: %w", kind, err)
		}
	}
	return nil
}

// EnqueueContractRequest writes a contract_generation outbox row. The
// scheduler delivers it after commit.
func (r *TxRepository) EnqueueContractRequest(ctx context.Context, studioID, eventID, templateID uuid.UUID) error {
	_, err := r.outbox.Insert(ctx, outbox.InsertParams{
		StudioID: studioID,
		Kind:     outbox.KindContractGeneration,
		Template: outbox.TemplateQuoteApproved,
		Payload:  outbox.ContractPayload{EventID: eventID, TemplateID: templateID},
	})
	if err != nil {
		return fmt.Errorf("enqueue contract request: %w", err)
	}
	return nil
}

func (r *TxRepository) Savepoint(ctx context.Context, fn func(tx service.TxStore) error) error {
	return db.WithSavepoint(ctx, r.tx, func(sp pgx.Tx) error {
		return fn(newTxRepository(sp))
	})
}
