package handler

import (
	"net/http"

	"studio_portal_backend/internal/catalog/service"
	"studio_portal_backend/internal/catalog/transport"
	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for catalog pricing.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new catalog handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the catalog routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/price", h.Price)
	rg.GET("/pricing-config", h.GetPricingConfig)
	rg.PUT("/pricing-config", h.UpdatePricingConfig)
}

// Price computes a live price for a selection.
// POST /api/v1/catalog/price
func (h *Handler) Price(c *gin.Context) {
	var req transport.PriceRequest
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

	result, err := h.svc.PriceRequest(c.Request.Context(), studioID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPricingConfig returns the studio's pricing rates.
// GET /api/v1/catalog/pricing-config
func (h *Handler) GetPricingConfig(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	result, err := h.svc.GetPricingConfig(c.Request.Context(), studioID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdatePricingConfig replaces the studio's pricing rates.
// PUT /api/v1/catalog/pricing-config
func (h *Handler) UpdatePricingConfig(c *gin.Context) {
	var req transport.UpdatePricingConfigRequest
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
	result, err := h.svc.UpdatePricingConfig(c.Request.Context(), studioID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
