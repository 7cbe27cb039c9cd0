// Package service exposes commercial condition management and breakdown previews.
package service

import (
	"context"
	"strings"

	"studio_portal_backend/internal/conditions/domain"
	"studio_portal_backend/internal/conditions/repository"
	"studio_portal_backend/internal/conditions/transport"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service provides condition operations.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new conditions service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByID returns a condition owned by the studio.
func (s *Service) GetByID(ctx context.Context, studioID, id uuid.UUID) (*domain.Condition, error) {
	return s.repo.GetByID(ctx, studioID, id)
}

// List returns reusable conditions.
func (s *Service) List(ctx context.Context, studioID uuid.UUID) ([]transport.ConditionResponse, error) {
	items, err := s.repo.List(ctx, studioID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ConditionResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ToConditionResponse(c))
	}
	return out, nil
}

// Create stores a reusable condition, or a temporary one scoped to a quotation.
func (s *Service) Create(ctx context.Context, studioID uuid.UUID, req transport.CreateConditionRequest) (transport.ConditionResponse, error) {
	c, err := ConditionFromInput(req.ConditionInput)
	if err != nil {
		return transport.ConditionResponse{}, err
	}
	c.StudioID = studioID
	c.Temporary = req.Temporary
	c.QuotationID = req.QuotationID
	if err := c.Validate(); err != nil {
		return transport.ConditionResponse{}, err
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return transport.ConditionResponse{}, err
	}
	s.log.WithContext(ctx).Info("commercial condition created", "conditionId", created.ID, "temporary", created.Temporary)
	return ToConditionResponse(created), nil
}

// Resolve previews a breakdown with the same resolver authorization uses.
func (s *Service) Resolve(ctx context.Context, studioID uuid.UUID, req transport.ResolveRequest) (transport.BreakdownResponse, error) {
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		return transport.BreakdownResponse{}, err
	}

	in := domain.ResolveInput{Mode: mode, BasePrice: req.BasePrice}

	switch {
	case req.ConditionID != nil:
		c, err := s.repo.GetByID(ctx, studioID, *req.ConditionID)
		if err != nil {
			return transport.BreakdownResponse{}, err
		}
		in.Condition = c
	case req.Condition != nil:
		c, err := ConditionFromInput(*req.Condition)
		if err != nil {
			return transport.BreakdownResponse{}, err
		}
		if err := c.Validate(); err != nil {
			return transport.BreakdownResponse{}, err
		}
		in.Condition = &c
	}

	if mode == domain.ModeNegotiated {
		if req.NegotiatedPrice == nil {
			return transport.BreakdownResponse{}, apperr.Validation("negotiatedPrice is required in negotiated mode")
		}
		in.Negotiation = &domain.Negotiation{Price: *req.NegotiatedPrice, OriginalPrice: req.OriginalPrice}
	}

	b, err := domain.Resolve(in)
	if err != nil {
		return transport.BreakdownResponse{}, err
	}
	return ToBreakdownResponse(b), nil
}

// ConditionFromInput validates the advance triad and builds a condition.
func ConditionFromInput(in transport.ConditionInput) (domain.Condition, error) {
	c := domain.Condition{
		Name:               strings.TrimSpace(in.Name),
		Description:        in.Description,
		DiscountPercentage: in.DiscountPercentage,
	}
	policy, err := advanceFromInput(in.AdvanceType, in.AdvancePercentage, in.AdvanceAmount)
	if err != nil {
		return domain.Condition{}, err
	}
	c.Advance = policy
	return c, nil
}

func advanceFromInput(advanceType *string, pct, amount *decimal.Decimal) (domain.AdvancePolicy, error) {
	if advanceType == nil || *advanceType == "" {
		if pct != nil || amount != nil {
			return domain.AdvancePolicy{}, apperr.Validation("advanceType is required when an advance value is given")
		}
		return domain.NoAdvance(), nil
	}
	switch *advanceType {
	case domain.AdvanceTypePercentage:
		if pct == nil || amount != nil {
			return domain.AdvancePolicy{}, apperr.Validation("percentage advance requires advancePercentage only")
		}
		return domain.PercentageAdvance(*pct), nil
	case domain.AdvanceTypeFixedAmount:
		if amount == nil || pct != nil {
			return domain.AdvancePolicy{}, apperr.Validation("fixed advance requires advanceAmount only")
		}
		return domain.FixedAdvance(*amount), nil
	default:
		return domain.AdvancePolicy{}, apperr.Validation("unknown advanceType")
	}
}

// ToConditionResponse maps a condition onto its wire form.
func ToConditionResponse(c domain.Condition) transport.ConditionResponse {
	resp := transport.ConditionResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Description:        c.Description,
		DiscountPercentage: c.DiscountPercentage,
		AdvanceType:        c.Advance.Kind().String(),
		Temporary:          c.Temporary,
		QuotationID:        c.QuotationID,
	}
	if p, ok := c.Advance.Percentage(); ok {
		resp.AdvancePercentage = &p
	}
	if a, ok := c.Advance.Amount(); ok {
		resp.AdvanceAmount = &a
	}
	return resp
}

// ToBreakdownResponse maps a breakdown onto its wire form.
func ToBreakdownResponse(b domain.Breakdown) transport.BreakdownResponse {
	return transport.BreakdownResponse{
		Mode:                   string(b.Mode),
		AdvanceType:            b.AdvanceKind.String(),
		BasePrice:              b.BasePrice,
		OriginalPrice:          b.OriginalPrice,
		DiscountPercentage:     b.DiscountPercentage,
		Discount:               b.Discount,
		Savings:                b.Savings,
		Subtotal:               b.Subtotal,
		Total:                  b.Total,
		Advance:                b.Advance,
		Deferred:               b.Deferred,
		DeferredDueBeforeEvent: b.DeferredDueBeforeEvent,
	}
}
