package handler

import (
	"net/http"

	"studio_portal_backend/internal/conditions/service"
	"studio_portal_backend/internal/conditions/transport"
	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for commercial conditions.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new conditions handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the conditions routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/resolve", h.Resolve)
}

// List returns the reusable conditions.
// GET /api/v1/conditions
func (h *Handler) List(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	result, err := h.svc.List(c.Request.Context(), studioID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns one condition.
// GET /api/v1/conditions/:id
func (h *Handler) Get(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	cond, err := h.svc.GetByID(c.Request.Context(), studioID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToConditionResponse(*cond))
}

// Create stores a condition.
// POST /api/v1/conditions
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	result, err := h.svc.Create(c.Request.Context(), studioID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Resolve previews a payment breakdown.
// POST /api/v1/conditions/resolve
func (h *Handler) Resolve(c *gin.Context) {
	var req transport.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	result, err := h.svc.Resolve(c.Request.Context(), studioID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
