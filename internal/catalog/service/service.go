package service

import (
	"context"

	"studio_portal_backend/internal/catalog/repository"
	"studio_portal_backend/internal/catalog/transport"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Service provides catalog pricing.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Price loads the studio catalog and pricing configuration and prices selection.
func (s *Service) Price(ctx context.Context, studioID uuid.UUID, selection map[uuid.UUID]int) (PriceResult, error) {
	catalog, err := s.repo.LoadCatalog(ctx, studioID)
	if err != nil {
		return PriceResult{}, err
	}
	cfg, err := s.repo.GetPricingConfig(ctx, studioID)
	if err != nil {
		return PriceResult{}, err
	}

	result, err := ComputeCatalogPrice(selection, catalog, cfg)
	if err != nil {
		return PriceResult{}, err
	}
	if len(result.Unresolved) > 0 {
		s.log.WithContext(ctx).Debug("selection references unknown catalog items", "count", len(result.Unresolved))
	}
	return result, nil
}

// PriceRequest prices a transport request.
func (s *Service) PriceRequest(ctx context.Context, studioID uuid.UUID, req transport.PriceRequest) (transport.PriceResponse, error) {
	selection, err := SelectionFromRequest(req.Items)
	if err != nil {
		return transport.PriceResponse{}, err
	}
	result, err := s.Price(ctx, studioID, selection)
	if err != nil {
		return transport.PriceResponse{}, err
	}
	return ToPriceResponse(result), nil
}

// GetPricingConfig returns the studio's rates, all zero when unset.
func (s *Service) GetPricingConfig(ctx context.Context, studioID uuid.UUID) (transport.PricingConfigResponse, error) {
	cfg, err := s.repo.GetPricingConfig(ctx, studioID)
	if err != nil {
		return transport.PricingConfigResponse{}, err
	}
	if cfg == nil {
		return transport.PricingConfigResponse{Configured: false}, nil
	}
	return toPricingConfigResponse(*cfg), nil
}

// UpdatePricingConfig replaces the studio's rates.
func (s *Service) UpdatePricingConfig(ctx context.Context, studioID uuid.UUID, req transport.UpdatePricingConfigRequest) (transport.PricingConfigResponse, error) {
	cfg := repository.PricingConfig{
		StudioID:        studioID,
		ServiceMargin:   req.ServiceMargin,
		ProductMargin:   req.ProductMargin,
		SalesCommission: req.SalesCommission,
		Markup:          req.Markup,
	}
	if err := validateRates(&cfg); err != nil {
		return transport.PricingConfigResponse{}, err
	}
	saved, err := s.repo.UpsertPricingConfig(ctx, cfg)
	if err != nil {
		return transport.PricingConfigResponse{}, err
	}
	s.log.WithContext(ctx).Info("pricing config updated", "studioId", studioID)
	return toPricingConfigResponse(saved), nil
}

// SelectionFromRequest folds request lines into a selection map.
func SelectionFromRequest(items []transport.SelectionItem) (map[uuid.UUID]int, error) {
	selection := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if _, dup := selection[it.ItemID]; dup {
			return nil, apperr.Validation("item selected more than once").WithDetails(map[string]string{"itemId": it.ItemID.String()})
		}
		selection[it.ItemID] = it.Quantity
	}
	return selection, nil
}

// ToPriceResponse maps a result onto its wire form.
func ToPriceResponse(result PriceResult) transport.PriceResponse {
	lines := make([]transport.PriceLineResponse, 0, len(result.Lines))
	for _, l := range result.Lines {
		lines = append(lines, transport.PriceLineResponse{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	return transport.PriceResponse{Total: result.Total, Lines: lines, Unresolved: result.Unresolved}
}

func toPricingConfigResponse(cfg repository.PricingConfig) transport.PricingConfigResponse {
	return transport.PricingConfigResponse{
		Configured:      true,
		ServiceMargin:   cfg.ServiceMargin,
		ProductMargin:   cfg.ProductMargin,
		SalesCommission: cfg.SalesCommission,
		Markup:          cfg.Markup,
		UpdatedAt:       &cfg.UpdatedAt,
	}
}
