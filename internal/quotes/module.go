// Package quotes provides the quotation and negotiation domain module.
package quotes

import (
	apphttp "studio_portal_backend/internal/http"
	"studio_portal_backend/internal/quotes/handler"
	"studio_portal_backend/internal/quotes/repository"
	"studio_portal_backend/internal/quotes/service"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates a new quotes module with all dependencies wired
func NewModule(
	pool *pgxpool.Pool,
	pricer service.CatalogPricer,
	conditions service.ConditionReader,
	leads service.LeadChecker,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, pricer, conditions, leads, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes quotation reads for the authorization flow.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/quotations"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
