package service

import (
	"context"
	"fmt"
	"strings"

	conditionsdomain "studio_portal_backend/internal/conditions/domain"
	conditionsservice "studio_portal_backend/internal/conditions/service"
	conditionstransport "studio_portal_backend/internal/conditions/transport"
	"studio_portal_backend/internal/quotes/negotiation"
	"studio_portal_backend/internal/quotes/repository"
	"studio_portal_backend/internal/quotes/transport"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricedLine is one catalog line priced at the studio's current rates.
type PricedLine struct {
	CatalogItemID uuid.UUID
	Name          string
	Quantity      int
	UnitPrice     decimal.Decimal
}

// CatalogPricer prices a selection against the studio catalog.
// Implemented by an adapter over the catalog service.
type CatalogPricer interface {
	PriceSelection(ctx context.Context, studioID uuid.UUID, selection map[uuid.UUID]int) (lines []PricedLine, unresolved []uuid.UUID, err error)
}

// ConditionReader loads commercial conditions.
type ConditionReader interface {
	GetByID(ctx context.Context, studioID, id uuid.UUID) (*conditionsdomain.Condition, error)
}

// LeadChecker confirms a lead exists in the studio.
type LeadChecker interface {
	LeadExists(ctx context.Context, studioID, leadID uuid.UUID) (bool, error)
}

// Service provides business logic for quotations.
type Service struct {
	repo       repository.Repository
	pricer     CatalogPricer
	conditions ConditionReader
	leads      LeadChecker
	log        *logger.Logger
}

// New creates a new quotations service.
func New(repo repository.Repository, pricer CatalogPricer, conditions ConditionReader, leads LeadChecker, log *logger.Logger) *Service {
	return &Service{repo: repo, pricer: pricer, conditions: conditions, leads: leads, log: log}
}

// CreateFromSelection prices the selection and stores it as a draft with
// unit prices frozen.
func (s *Service) CreateFromSelection(ctx context.Context, studioID uuid.UUID, req transport.CreateQuotationRequest) (transport.QuotationResponse, error) {
	exists, err := s.leads.LeadExists(ctx, studioID, req.LeadID)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	if !exists {
		return transport.QuotationResponse{}, apperr.NotFound("lead not found")
	}

	selection := make(map[uuid.UUID]int, len(req.Items))
	for _, it := range req.Items {
		if _, dup := selection[it.ItemID]; dup {
			return transport.QuotationResponse{}, apperr.Validation(fmt.Sprintf("item %s selected more than once", it.ItemID))
		}
		selection[it.ItemID] = it.Quantity
	}

	if req.ConditionID != nil {
		if _, err := s.loadCondition(ctx, studioID, *req.ConditionID, nil); err != nil {
			return transport.QuotationResponse{}, err
		}
	}

	lines, unresolved, err := s.pricer.PriceSelection(ctx, studioID, selection)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	if len(lines) == 0 {
		return transport.QuotationResponse{}, apperr.Validation("selection does not contain any priced catalog item")
	}

	base := money.Zero
	items := make([]repository.Item, 0, len(lines))
	for _, l := range lines {
		it := repository.Item{CatalogItemID: l.CatalogItemID, Name: l.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		base = base.Add(it.LineTotal())
		items = append(items, it)
	}

	q := repository.Quotation{
		StudioID:     studioID,
		LeadID:       req.LeadID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		BasePrice:    money.Round(base),
		Status:       repository.StatusDraft,
		PricingMode:  string(conditionsdomain.ModeStandard),
		SpecialBonus: money.Zero,
		ConditionID:  req.ConditionID,
	}
	if err := s.repo.CreateWithItems(ctx, &q, items); err != nil {
		return transport.QuotationResponse{}, err
	}

	s.log.WithContext(ctx).Info("quotation created", "quotationId", q.ID, "leadId", q.LeadID, "basePrice", q.BasePrice.String())

	resp, err := toQuotationResponse(q, items)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	resp.Unresolved = unresolved
	return resp, nil
}

// Get returns a quotation with its lines and negotiation totals.
func (s *Service) Get(ctx context.Context, studioID, id uuid.UUID) (transport.QuotationResponse, error) {
	q, items, err := s.load(ctx, studioID, id)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	return toQuotationResponse(*q, items)
}

// ListByLead returns the lead's quotations.
func (s *Service) ListByLead(ctx context.Context, studioID, leadID uuid.UUID) ([]transport.QuotationSummaryResponse, error) {
	list, err := s.repo.ListByLead(ctx, studioID, leadID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.QuotationSummaryResponse, 0, len(list))
	for _, q := range list {
		out = append(out, transport.QuotationSummaryResponse{
			ID:          q.ID,
			Name:        q.Name,
			Status:      q.Status,
			Archived:    q.Archived,
			BasePrice:   q.BasePrice,
			PricingMode: q.PricingMode,
			CreatedAt:   q.CreatedAt,
		})
	}
	return out, nil
}

// Breakdown resolves the quotation's current payment split.
func (s *Service) Breakdown(ctx context.Context, studioID, id uuid.UUID) (conditionstransport.BreakdownResponse, error) {
	q, err := s.repo.GetByID(ctx, studioID, id)
	if err != nil {
		return conditionstransport.BreakdownResponse{}, err
	}

	var cond *conditionsdomain.Condition
	if q.ConditionID != nil {
		cond, err = s.conditions.GetByID(ctx, studioID, *q.ConditionID)
		if err != nil {
			return conditionstransport.BreakdownResponse{}, err
		}
	}

	in, err := q.PricingInput(cond)
	if err != nil {
		return conditionstransport.BreakdownResponse{}, err
	}
	b, err := conditionsdomain.Resolve(in)
	if err != nil {
		return conditionstransport.BreakdownResponse{}, err
	}
	return conditionsservice.ToBreakdownResponse(b), nil
}

// ApplyAdjustments replaces the courtesy set and bonus and freezes the result
// as the negotiated price. Without any adjustment the quotation returns to
// standard pricing.
func (s *Service) ApplyAdjustments(ctx context.Context, studioID, id uuid.UUID, req transport.AdjustmentsRequest) (transport.QuotationResponse, error) {
	q, items, err := s.loadEditable(ctx, studioID, id)
	if err != nil {
		return transport.QuotationResponse{}, err
	}

	ledger, err := ledgerFor(items)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	for _, itemID := range req.CourtesyItemIDs {
		if err := ledger.MarkCourtesy(itemID); err != nil {
			return transport.QuotationResponse{}, err
		}
	}
	if err := ledger.SetSpecialBonus(req.SpecialBonus); err != nil {
		return transport.QuotationResponse{}, err
	}
	if req.NegotiatedPrice != nil {
		if err := ledger.SetCustomPrice(*req.NegotiatedPrice); err != nil {
			return transport.QuotationResponse{}, err
		}
	}

	totals := ledger.Totals()
	adj := repository.Adjustments{
		PricingMode:     string(conditionsdomain.ModeStandard),
		SpecialBonus:    totals.SpecialBonus,
		CourtesyItemIDs: ledger.CourtesyIDs(),
	}
	if req.NegotiatedPrice != nil || !totals.DiscountTotal.IsZero() {
		price := ledger.NegotiatedPrice()
		original := totals.CatalogSubtotal
		adj.PricingMode = string(conditionsdomain.ModeNegotiated)
		adj.NegotiatedPrice = &price
		adj.OriginalPrice = &original
	}

	return s.saveAdjustments(ctx, q, items, adj)
}

// ClearAdjustments resets courtesies (and the bonus for ScopeAll). The
// negotiated price becomes the recomputed projected subtotal.
func (s *Service) ClearAdjustments(ctx context.Context, studioID, id uuid.UUID, req transport.ClearAdjustmentsRequest) (transport.QuotationResponse, error) {
	scope, err := negotiation.ParseScope(req.Scope)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	q, items, err := s.loadEditable(ctx, studioID, id)
	if err != nil {
		return transport.QuotationResponse{}, err
	}

	ledger, err := ledgerFor(items)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	if err := ledger.Restore(courtesyIDs(items), q.SpecialBonus, q.NegotiatedPrice); err != nil {
		return transport.QuotationResponse{}, err
	}
	ledger.Clear(scope)

	totals := ledger.Totals()
	price := ledger.NegotiatedPrice()
	original := totals.CatalogSubtotal
	adj := repository.Adjustments{
		PricingMode:     string(conditionsdomain.ModeNegotiated),
		NegotiatedPrice: &price,
		OriginalPrice:   &original,
		SpecialBonus:    totals.SpecialBonus,
		CourtesyItemIDs: ledger.CourtesyIDs(),
	}
	return s.saveAdjustments(ctx, q, items, adj)
}

// SetCondition links a reusable condition, or a temporary one created for
// this quotation. A nil id unlinks.
func (s *Service) SetCondition(ctx context.Context, studioID, id uuid.UUID, req transport.SetConditionRequest) (transport.QuotationResponse, error) {
	q, items, err := s.loadEditable(ctx, studioID, id)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	if req.ConditionID != nil {
		if _, err := s.loadCondition(ctx, studioID, *req.ConditionID, &q.ID); err != nil {
			return transport.QuotationResponse{}, err
		}
	}
	if err := s.repo.SetCondition(ctx, studioID, id, req.ConditionID); err != nil {
		return transport.QuotationResponse{}, err
	}
	q.ConditionID = req.ConditionID
	return toQuotationResponse(*q, items)
}

func (s *Service) saveAdjustments(ctx context.Context, q *repository.Quotation, items []repository.Item, adj repository.Adjustments) (transport.QuotationResponse, error) {
	if err := s.repo.SaveAdjustments(ctx, q.StudioID, q.ID, adj); err != nil {
		return transport.QuotationResponse{}, err
	}

	q.PricingMode = adj.PricingMode
	q.NegotiatedPrice = adj.NegotiatedPrice
	q.OriginalPrice = adj.OriginalPrice
	q.SpecialBonus = adj.SpecialBonus
	courtesy := make(map[uuid.UUID]bool, len(adj.CourtesyItemIDs))
	for _, itemID := range adj.CourtesyItemIDs {
		courtesy[itemID] = true
	}
	for i := range items {
		items[i].Courtesy = courtesy[items[i].CatalogItemID]
	}

	s.log.WithContext(ctx).Info("quotation adjustments saved",
		"quotationId", q.ID, "pricingMode", q.PricingMode, "courtesies", len(adj.CourtesyItemIDs))
	return toQuotationResponse(*q, items)
}

func (s *Service) load(ctx context.Context, studioID, id uuid.UUID) (*repository.Quotation, []repository.Item, error) {
	q, err := s.repo.GetByID(ctx, studioID, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.GetItems(ctx, studioID, id)
	if err != nil {
		return nil, nil, err
	}
	return q, items, nil
}

func (s *Service) loadEditable(ctx context.Context, studioID, id uuid.UUID) (*repository.Quotation, []repository.Item, error) {
	q, items, err := s.load(ctx, studioID, id)
	if err != nil {
		return nil, nil, err
	}
	if !q.IsEditable() {
		return nil, nil, apperr.Conflict("quotation is no longer a draft")
	}
	return q, items, nil
}

// loadCondition rejects temporary conditions that belong to another quotation.
func (s *Service) loadCondition(ctx context.Context, studioID, conditionID uuid.UUID, quotationID *uuid.UUID) (*conditionsdomain.Condition, error) {
	cond, err := s.conditions.GetByID(ctx, studioID, conditionID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Validation("commercial condition not found")
	}
	if err != nil {
		return nil, err
	}
	if cond.Temporary && (quotationID == nil || cond.QuotationID == nil || *cond.QuotationID != *quotationID) {
		return nil, apperr.Validation("temporary condition belongs to another quotation")
	}
	return cond, nil
}

func ledgerFor(items []repository.Item) (*negotiation.Ledger, error) {
	lines := make([]negotiation.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, negotiation.Line{
			ItemID:    it.CatalogItemID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: money.Round(it.LineTotal()),
		})
	}
	return negotiation.NewLedger(lines)
}

func courtesyIDs(items []repository.Item) []uuid.UUID {
	var ids []uuid.UUID
	for _, it := range items {
		if it.Courtesy {
			ids = append(ids, it.CatalogItemID)
		}
	}
	return ids
}

func toQuotationResponse(q repository.Quotation, items []repository.Item) (transport.QuotationResponse, error) {
	ledger, err := ledgerFor(items)
	if err != nil {
		return transport.QuotationResponse{}, err
	}
	// Stored state was validated on write; a failure here means the rows drifted.
	if err := ledger.Restore(courtesyIDs(items), q.SpecialBonus, q.NegotiatedPrice); err != nil {
		return transport.QuotationResponse{}, apperr.Wrap(apperr.KindInternal, "quotation adjustments are inconsistent", err)
	}
	totals := ledger.Totals()

	lines := make([]transport.QuotationItemResponse, 0, len(items))
	for _, it := range items {
		lines = append(lines, transport.QuotationItemResponse{
			ID:            it.ID,
			CatalogItemID: it.CatalogItemID,
			Name:          it.Name,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			LineTotal:     money.Round(it.LineTotal()),
			IsCourtesy:    it.Courtesy,
		})
	}

	return transport.QuotationResponse{
		ID:                 q.ID,
		LeadID:             q.LeadID,
		Name:               q.Name,
		Description:        q.Description,
		Status:             q.Status,
		Archived:           q.Archived,
		BasePrice:          q.BasePrice,
		PricingMode:        q.PricingMode,
		NegotiatedPrice:    q.NegotiatedPrice,
		OriginalPrice:      q.OriginalPrice,
		ConditionID:        q.ConditionID,
		EventID:            q.EventID,
		PaymentPromiseDate: q.PaymentPromiseDate,
		PaymentRegistered:  q.PaymentRegistered,
		Items:              lines,
		Totals: transport.NegotiationTotalsResponse{
			CatalogSubtotal:   totals.CatalogSubtotal,
			CourtesyTotal:     totals.CourtesyTotal,
			SpecialBonus:      totals.SpecialBonus,
			DiscountTotal:     totals.DiscountTotal,
			ProjectedSubtotal: totals.ProjectedSubtotal,
		},
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}, nil
}
