package service

import (
	"context"
	"time"

	conditionsdomain "studio_portal_backend/internal/conditions/domain"
	leadsdomain "studio_portal_backend/internal/leads/domain"
	leadsrepo "studio_portal_backend/internal/leads/repository"
	"studio_portal_backend/internal/notification/outbox"
	quotesrepo "studio_portal_backend/internal/quotes/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeadReader loads a lead scoped to a studio.
type LeadReader interface {
	Lead(ctx context.Context, studioID, id uuid.UUID) (leadsrepo.Lead, error)
}

// PipelineReader loads a studio's lead or event pipeline.
type PipelineReader interface {
	Pipeline(ctx context.Context, studioID uuid.UUID, kind leadsdomain.PipelineKind) (*leadsdomain.Pipeline, error)
}

// QuotationReader loads a quotation scoped to a studio.
type QuotationReader interface {
	GetByID(ctx context.Context, studioID, id uuid.UUID) (*quotesrepo.Quotation, error)
}

// ConditionReader loads a commercial condition scoped to a studio.
type ConditionReader interface {
	GetByID(ctx context.Context, studioID, id uuid.UUID) (*conditionsdomain.Condition, error)
}

// Store opens the authorization unit of work. fn's writes are committed when
// it returns nil and discarded otherwise.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// QuotationLock is the quotation state read under a row lock, including the
// pricing columns the total is resolved from.
type QuotationLock struct {
	Status          string
	Archived        bool
	BasePrice       decimal.Decimal
	PricingMode     string
	NegotiatedPrice *decimal.Decimal
	OriginalPrice   *decimal.Decimal
}

type NewEvent struct {
	StudioID    uuid.UUID
	ContactID   uuid.UUID
	LeadID      uuid.UUID
	QuotationID uuid.UUID
	EventType   *string
	EventDate   time.Time
	StageID     uuid.UUID
}

type AuthorizeQuotationParams struct {
	StudioID           uuid.UUID
	QuotationID        uuid.UUID
	EventID            uuid.UUID
	ConditionID        uuid.UUID
	PaymentPromiseDate time.Time
	PaymentRegistered  bool
}

type NewPayment struct {
	StudioID    uuid.UUID
	EventID     uuid.UUID
	QuotationID uuid.UUID
	ContactID   uuid.UUID
	Amount      decimal.Decimal
	Method      string
	PaidAt      time.Time
	Concept     string
}

// TxStore is the write surface available to authorization steps. Every call
// joins the surrounding transaction.
type TxStore interface {
	LockQuotation(ctx context.Context, studioID, quotationID uuid.UUID) (QuotationLock, error)
	InsertEvent(ctx context.Context, ev NewEvent) (uuid.UUID, error)
	// PromoteContact turns a prospect into a client. It reports whether the
	// status changed.
	PromoteContact(ctx context.Context, studioID, contactID uuid.UUID) (bool, error)
	MarkQuotationAuthorized(ctx context.Context, p AuthorizeQuotationParams) error
	ArchiveSiblings(ctx context.Context, studioID, leadID, keepID uuid.UUID) (int64, error)
	SetLeadStage(ctx context.Context, studioID, leadID, stageID uuid.UUID) error
	DetachLeadTag(ctx context.Context, studioID, leadID uuid.UUID, tag string) (bool, error)
	InsertPayment(ctx context.Context, p NewPayment) (uuid.UUID, error)
	// EnqueueFollowUps writes one outbox row per follow-up kind.
	EnqueueFollowUps(ctx context.Context, studioID uuid.UUID, payload outbox.QuoteApprovedPayload) error
	EnqueueContractRequest(ctx context.Context, studioID, eventID, templateID uuid.UUID) error
	// Savepoint runs fn in a nested unit of work. A failing fn undoes only
	// its own writes.
	Savepoint(ctx context.Context, fn func(tx TxStore) error) error
}
