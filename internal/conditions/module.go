// Package conditions provides the commercial condition bounded context.
package conditions

import (
	"studio_portal_backend/internal/conditions/handler"
	"studio_portal_backend/internal/conditions/repository"
	"studio_portal_backend/internal/conditions/service"
	apphttp "studio_portal_backend/internal/http"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conditions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the conditions module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conditions"
}

// Service returns the service layer for cross-module adapters.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts condition routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/conditions"))
}

var _ apphttp.Module = (*Module)(nil)
