// Package authorization provides the quotation authorization module.
package authorization

import (
	"studio_portal_backend/internal/authorization/handler"
	"studio_portal_backend/internal/authorization/repository"
	"studio_portal_backend/internal/authorization/service"
	"studio_portal_backend/internal/events"
	apphttp "studio_portal_backend/internal/http"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Leads is what authorization needs from the leads module.
type Leads interface {
	service.LeadReader
	service.PipelineReader
}

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(
	pool *pgxpool.Pool,
	leads Leads,
	quotes service.QuotationReader,
	conditions service.ConditionReader,
	bus events.Publisher,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repository.New(pool), leads, leads, quotes, conditions, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "authorization"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts POST /quotations/:id/authorize behind the
// authorization rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var limit gin.HandlerFunc
	if ctx.AuthorizationRateLimiter != nil {
		limit = ctx.AuthorizationRateLimiter.RateLimit()
	}
	m.handler.RegisterRoutes(ctx.Protected.Group("/quotations"), limit)
}

var _ apphttp.Module = (*Module)(nil)
