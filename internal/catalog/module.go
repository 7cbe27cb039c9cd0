// Package catalog provides the catalog pricing bounded context.
package catalog

import (
	"studio_portal_backend/internal/catalog/handler"
	"studio_portal_backend/internal/catalog/repository"
	"studio_portal_backend/internal/catalog/service"
	apphttp "studio_portal_backend/internal/http"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for cross-module adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/catalog"))
}

var _ apphttp.Module = (*Module)(nil)
