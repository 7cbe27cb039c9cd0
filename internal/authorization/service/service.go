// Package service converts a draft quotation into a confirmed event. The
// conversion is an ordered list of steps run in one transaction by Executor.
package service

import (
	"context"
	"errors"
	"time"

	conditionsdomain "studio_portal_backend/internal/conditions/domain"
	"studio_portal_backend/internal/events"
	leadsdomain "studio_portal_backend/internal/leads/domain"
	quotesrepo "studio_portal_backend/internal/quotes/repository"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/db"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const opAuthorize = "authorization.AuthorizeQuotation"

// PaymentData is an optional payment registered with the authorization.
type PaymentData struct {
	Amount  decimal.Decimal
	Method  string
	PaidAt  time.Time
	Concept string
}

type Request struct {
	StudioID           uuid.UUID
	QuotationID        uuid.UUID
	LeadID             uuid.UUID
	ConditionID        uuid.UUID
	Amount             decimal.Decimal
	Payment            *PaymentData
	ContractTemplateID *uuid.UUID
	ActorID            *uuid.UUID
}

type Result struct {
	EventID           uuid.UUID
	QuotationID       uuid.UUID
	QuotationStatus   string
	Breakdown         conditionsdomain.Breakdown
	PaymentID         *uuid.UUID
	ArchivedSiblings  int64
	ContractRequested bool
	Warnings          []string
}

type Service struct {
	leads      LeadReader
	pipelines  PipelineReader
	quotes     QuotationReader
	conditions ConditionReader
	exec       *Executor
	steps      []Step
	bus        events.Publisher
	log        *logger.Logger
	now        func() time.Time
}

func New(store Store, leads LeadReader, pipelines PipelineReader, quotes QuotationReader, conditions ConditionReader, bus events.Publisher, log *logger.Logger) *Service {
	return &Service{
		leads:      leads,
		pipelines:  pipelines,
		quotes:     quotes,
		conditions: conditions,
		exec:       NewExecutor(store, log),
		steps:      Steps(),
		bus:        bus,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AuthorizeQuotation runs the draft to authorized transition at most once per
// quotation. Preconditions are checked before anything is written.
func (s *Service) AuthorizeQuotation(ctx context.Context, req Request) (Result, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}

	warnings, err := s.exec.Run(ctx, s.steps, p)
	if err != nil {
		return Result{}, s.translate(ctx, req, err)
	}

	s.log.WithContext(ctx).Info("quotation authorized",
		"quotationId", p.quotation.ID,
		"leadId", p.lead.ID,
		"eventId", p.eventID,
		"archivedSiblings", p.archivedSiblings,
		"contactPromoted", p.contactPromoted,
		"cancelCleared", p.cancelCleared,
		"followUpsQueued", p.followUpsQueued,
	)
	s.publish(ctx, p)

	return Result{
		EventID:           p.eventID,
		QuotationID:       p.quotation.ID,
		QuotationStatus:   quotesrepo.StatusAuthorized,
		Breakdown:         p.breakdown,
		PaymentID:         p.paymentID,
		ArchivedSiblings:  p.archivedSiblings,
		ContractRequested: p.contractRequested,
		Warnings:          warnings,
	}, nil
}

func (s *Service) prepare(ctx context.Context, req Request) (*plan, error) {
	lead, err := s.leads.Lead(ctx, req.StudioID, req.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.EventDate == nil {
		return nil, apperr.Validation("lead has no confirmed event date")
	}

	q, err := s.quotes.GetByID(ctx, req.StudioID, req.QuotationID)
	if err != nil {
		return nil, err
	}
	if q.LeadID != lead.ID {
		return nil, apperr.Conflict("quotation does not belong to lead")
	}
	if lead.ContactID == nil {
		return nil, apperr.Validation("lead has no contact")
	}
	if err := checkDraft(q.Status, q.Archived); err != nil {
		return nil, err
	}

	cond, err := s.loadCondition(ctx, req.StudioID, req.ConditionID, q.ID)
	if err != nil {
		return nil, err
	}
	in, err := q.PricingInput(cond)
	if err != nil {
		return nil, err
	}
	breakdown, err := conditionsdomain.Resolve(in)
	if err != nil {
		return nil, err
	}
	if !req.Amount.Equal(breakdown.Total) {
		return nil, apperr.Validation("amount does not match the quotation total").
			WithDetails(map[string]string{"expected": breakdown.Total.StringFixed(money.Scale)})
	}
	if pay := req.Payment; pay != nil {
		if !pay.Amount.IsPositive() || pay.Amount.GreaterThan(breakdown.Total) {
			return nil, apperr.Validation("payment amount must be greater than zero and not exceed the total")
		}
		if pay.PaidAt.IsZero() {
			return nil, apperr.Validation("payment date is required")
		}
	}

	eventPipeline, err := s.pipeline(ctx, req.StudioID, leadsdomain.PipelineEvent)
	if err != nil {
		return nil, err
	}
	leadPipeline, err := s.pipeline(ctx, req.StudioID, leadsdomain.PipelineLead)
	if err != nil {
		return nil, err
	}
	approved, ok := leadPipeline.BySlug(leadsdomain.SlugApproved)
	if !ok {
		return nil, apperr.Validation("lead pipeline has no approved stage")
	}
	if err := leadPipeline.CanMove(lead.StageID, approved.ID, leadsdomain.ActorAuthorization); err != nil {
		return nil, err
	}

	return &plan{
		req:           req,
		lead:          lead,
		contactID:     *lead.ContactID,
		quotation:     q,
		condition:     cond,
		breakdown:     breakdown,
		eventStage:    eventPipeline.First(),
		approvedStage: approved,
		now:           s.now(),
	}, nil
}

func (s *Service) loadCondition(ctx context.Context, studioID, conditionID, quotationID uuid.UUID) (*conditionsdomain.Condition, error) {
	cond, err := s.conditions.GetByID(ctx, studioID, conditionID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Validation("commercial condition not found")
	}
	if err != nil {
		return nil, err
	}
	if cond.Temporary && (cond.QuotationID == nil || *cond.QuotationID != quotationID) {
		return nil, apperr.Validation("temporary condition belongs to another quotation")
	}
	return cond, nil
}

func (s *Service) pipeline(ctx context.Context, studioID uuid.UUID, kind leadsdomain.PipelineKind) (*leadsdomain.Pipeline, error) {
	p, err := s.pipelines.Pipeline(ctx, studioID, kind)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Validation("studio has no " + string(kind) + " pipeline")
	}
	return p, err
}

// translate maps a failed unit of work to the caller-facing error. Business
// rejections keep their kind; anything else is logged and hidden.
func (s *Service) translate(ctx context.Context, req Request, err error) error {
	step := ""
	var se *StepError
	if errors.As(err, &se) {
		step = se.Step
	}

	if e, ok := apperr.As(err); ok && (e.Kind == apperr.KindConflict || e.Kind == apperr.KindValidation || e.Kind == apperr.KindNotFound) {
		return e
	}
	switch {
	case db.IsSerializationFailure(err):
		return apperr.Conflict("concurrent authorization in progress").WithOp(opAuthorize)
	case db.IsUniqueViolation(err):
		return apperr.Conflict("quotation is already authorized").WithOp(opAuthorize)
	}

	s.log.WithContext(ctx).Error("authorization rolled back",
		"quotationId", req.QuotationID,
		"leadId", req.LeadID,
		"step", step,
		"error", err,
	)
	return apperr.Wrap(apperr.KindInternal, "authorization failed", err).WithOp(opAuthorize)
}

func (s *Service) publish(ctx context.Context, p *plan) {
	if s.bus == nil {
		return
	}
	condID := p.condition.ID
	s.bus.Publish(ctx, events.QuotationAuthorized{
		BaseEvent:         events.NewBaseEvent(),
		StudioID:          p.req.StudioID,
		QuotationID:       p.quotation.ID,
		LeadID:            p.lead.ID,
		ContactID:         p.contactID,
		EventID:           p.eventID,
		ConditionID:       &condID,
		EventDate:         *p.lead.EventDate,
		Total:             p.breakdown.Total,
		Advance:           p.breakdown.Advance,
		Deferred:          p.breakdown.Deferred,
		PaymentID:         p.paymentID,
		ArchivedSiblings:  p.archivedSiblings,
		ContractRequested: p.contractRequested,
		ActorID:           p.req.ActorID,
	})
}
