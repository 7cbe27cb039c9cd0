package service

import (
	"context"
	"time"

	conditionsdomain "studio_portal_backend/internal/conditions/domain"
	leadsdomain "studio_portal_backend/internal/leads/domain"
	leadsrepo "studio_portal_backend/internal/leads/repository"
	"studio_portal_backend/internal/notification/outbox"
	quotesrepo "studio_portal_backend/internal/quotes/repository"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
)

// plan is everything the preconditions established plus what the steps
// produce. Steps read the inputs and fill the outputs.
type plan struct {
	req           Request
	lead          leadsrepo.Lead
	contactID     uuid.UUID
	quotation     *quotesrepo.Quotation
	condition     *conditionsdomain.Condition
	breakdown     conditionsdomain.Breakdown
	eventStage    leadsdomain.Stage
	approvedStage leadsdomain.Stage
	now           time.Time

	eventID           uuid.UUID
	contactPromoted   bool
	archivedSiblings  int64
	cancelCleared     bool
	paymentID         *uuid.UUID
	followUpsQueued   bool
	contractRequested bool
}

// Step is one unit of the authorization. A best-effort step runs inside a
// savepoint and its failure does not abort the authorization.
type Step struct {
	Name       string
	BestEffort bool
	Run        func(ctx context.Context, tx TxStore, p *plan) error
}

const (
	StepLockQuotation      = "lock_quotation"
	StepCreateEvent        = "create_event"
	StepPromoteContact     = "promote_contact"
	StepAuthorizeQuotation = "authorize_quotation"
	StepArchiveSiblings    = "archive_siblings"
	StepApproveLead        = "approve_lead"
	StepRegisterPayment    = "register_payment"
	StepEnqueueFollowUps   = "enqueue_followups"
	StepRequestContract    = "request_contract"
)

// Steps returns the authorization pipeline in execution order.
func Steps() []Step {
	return []Step{
		{Name: StepLockQuotation, Run: lockQuotation},
		{Name: StepCreateEvent, Run: createEvent},
		{Name: StepPromoteContact, Run: promoteContact},
		{Name: StepAuthorizeQuotation, Run: authorizeQuotation},
		{Name: StepArchiveSiblings, Run: archiveSiblings},
		{Name: StepApproveLead, Run: approveLead},
		{Name: StepRegisterPayment, Run: registerPayment},
		{Name: StepEnqueueFollowUps, BestEffort: true, Run: enqueueFollowUps},
		{Name: StepRequestContract, BestEffort: true, Run: requestContract},
	}
}

// lockQuotation re-checks the draft state and the total under a row lock. A
// concurrent authorization or pricing edit that committed after prepare read
// the quotation fails here with a conflict.
func lockQuotation(ctx context.Context, tx TxStore, p *plan) error {
	lock, err := tx.LockQuotation(ctx, p.req.StudioID, p.req.QuotationID)
	if err != nil {
		return err
	}
	if err := checkDraft(lock.Status, lock.Archived); err != nil {
		return err
	}

	locked := *p.quotation
	locked.BasePrice = lock.BasePrice
	locked.PricingMode = lock.PricingMode
	locked.NegotiatedPrice = lock.NegotiatedPrice
	locked.OriginalPrice = lock.OriginalPrice

	in, err := locked.PricingInput(p.condition)
	if err != nil {
		return apperr.Conflict("quotation pricing changed during authorization")
	}
	breakdown, err := conditionsdomain.Resolve(in)
	if err != nil {
		return apperr.Conflict("quotation pricing changed during authorization")
	}
	if !breakdown.Total.Equal(p.req.Amount) {
		return apperr.Conflict("quotation pricing changed during authorization").
			WithDetails(map[string]string{"expected": breakdown.Total.StringFixed(money.Scale)})
	}
	p.quotation = &locked
	p.breakdown = breakdown
	return nil
}

func createEvent(ctx context.Context, tx TxStore, p *plan) error {
	id, err := tx.InsertEvent(ctx, NewEvent{
		StudioID:    p.req.StudioID,
		ContactID:   p.contactID,
		LeadID:      p.lead.ID,
		QuotationID: p.quotation.ID,
		EventType:   p.lead.EventType,
		EventDate:   *p.lead.EventDate,
		StageID:     p.eventStage.ID,
	})
	if err != nil {
		return err
	}
	p.eventID = id
	return nil
}

func promoteContact(ctx context.Context, tx TxStore, p *plan) error {
	promoted, err := tx.PromoteContact(ctx, p.req.StudioID, p.contactID)
	if err != nil {
		return err
	}
	p.contactPromoted = promoted
	return nil
}

func authorizeQuotation(ctx context.Context, tx TxStore, p *plan) error {
	return tx.MarkQuotationAuthorized(ctx, AuthorizeQuotationParams{
		StudioID:           p.req.StudioID,
		QuotationID:        p.quotation.ID,
		EventID:            p.eventID,
		ConditionID:        p.condition.ID,
		PaymentPromiseDate: p.now,
		PaymentRegistered:  p.req.Payment != nil,
	})
}

func archiveSiblings(ctx context.Context, tx TxStore, p *plan) error {
	n, err := tx.ArchiveSiblings(ctx, p.req.StudioID, p.lead.ID, p.quotation.ID)
	if err != nil {
		return err
	}
	p.archivedSiblings = n
	return nil
}

func approveLead(ctx context.Context, tx TxStore, p *plan) error {
	if err := tx.SetLeadStage(ctx, p.req.StudioID, p.lead.ID, p.approvedStage.ID); err != nil {
		return err
	}
	// Detach unconditionally: the tag may have been attached after the lead
	// was read.
	removed, err := tx.DetachLeadTag(ctx, p.req.StudioID, p.lead.ID, leadsdomain.TagCancelled)
	if err != nil {
		return err
	}
	p.cancelCleared = removed
	return nil
}

func registerPayment(ctx context.Context, tx TxStore, p *plan) error {
	if p.req.Payment == nil {
		return nil
	}
	pay := p.req.Payment
	id, err := tx.InsertPayment(ctx, NewPayment{
		StudioID:    p.req.StudioID,
		EventID:     p.eventID,
		QuotationID: p.quotation.ID,
		ContactID:   p.contactID,
		Amount:      pay.Amount,
		Method:      pay.Method,
		PaidAt:      pay.PaidAt,
		Concept:     pay.Concept,
	})
	if err != nil {
		return err
	}
	p.paymentID = &id
	return nil
}

// enqueueFollowUps writes the audit, calendar sync and notification outbox
// rows so they commit together with the event.
func enqueueFollowUps(ctx context.Context, tx TxStore, p *plan) error {
	err := tx.EnqueueFollowUps(ctx, p.req.StudioID, outbox.QuoteApprovedPayload{
		QuotationID:      p.quotation.ID,
		LeadID:           p.lead.ID,
		EventID:          p.eventID,
		EventDate:        *p.lead.EventDate,
		Total:            p.breakdown.Total,
		Advance:          p.breakdown.Advance,
		Deferred:         p.breakdown.Deferred,
		ArchivedSiblings: p.archivedSiblings,
		ActorID:          p.req.ActorID,
	})
	if err != nil {
		return err
	}
	p.followUpsQueued = true
	return nil
}

func requestContract(ctx context.Context, tx TxStore, p *plan) error {
	if p.req.ContractTemplateID == nil {
		return nil
	}
	if err := tx.EnqueueContractRequest(ctx, p.req.StudioID, p.eventID, *p.req.ContractTemplateID); err != nil {
		return err
	}
	p.contractRequested = true
	return nil
}

func checkDraft(status string, archived bool) error {
	switch {
	case status == quotesrepo.StatusAuthorized:
		return apperr.Conflict("quotation is already authorized")
	case status != quotesrepo.StatusDraft:
		return apperr.Conflict("quotation is not a draft")
	case archived:
		return apperr.Conflict("quotation is archived")
	}
	return nil
}
