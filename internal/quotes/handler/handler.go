package handler

import (
	"net/http"

	"studio_portal_backend/internal/quotes/service"
	"studio_portal_backend/internal/quotes/transport"
	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for quotations
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotations handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the quotation routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListByLead)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/breakdown", h.Breakdown)
	rg.POST("/:id/adjustments", h.ApplyAdjustments)
	rg.POST("/:id/adjustments/clear", h.ClearAdjustments)
	rg.PUT("/:id/condition", h.SetCondition)
}

// bind decodes and validates the JSON body, writing the error response itself.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

// scope resolves the studio and the :id path parameter.
func scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return studioID, id, true
}

// Create prices a catalog selection into a draft quotation.
// POST /api/v1/quotations
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateQuotationRequest
	if !h.bind(c, &req) {
		return
	}
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	result, err := h.svc.CreateFromSelection(c.Request.Context(), studioID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListByLead lists the quotations of a lead.
// GET /api/v1/quotations?leadId=
func (h *Handler) ListByLead(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	leadID, err := uuid.Parse(c.Query("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "leadId query parameter is required", nil)
		return
	}
	result, err := h.svc.ListByLead(c.Request.Context(), studioID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID returns one quotation with its lines and negotiation totals.
// GET /api/v1/quotations/:id
func (h *Handler) GetByID(c *gin.Context) {
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), studioID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Breakdown returns the payment split with the linked condition applied.
// GET /api/v1/quotations/:id/breakdown
func (h *Handler) Breakdown(c *gin.Context) {
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.Breakdown(c.Request.Context(), studioID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ApplyAdjustments stores courtesy marks, special bonus and negotiated price.
// POST /api/v1/quotations/:id/adjustments
func (h *Handler) ApplyAdjustments(c *gin.Context) {
	var req transport.AdjustmentsRequest
	if !h.bind(c, &req) {
		return
	}
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.ApplyAdjustments(c.Request.Context(), studioID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ClearAdjustments resets courtesies or all adjustments.
// POST /api/v1/quotations/:id/adjustments/clear
func (h *Handler) ClearAdjustments(c *gin.Context) {
	var req transport.ClearAdjustmentsRequest
	if !h.bind(c, &req) {
		return
	}
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.ClearAdjustments(c.Request.Context(), studioID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetCondition links or unlinks a commercial condition.
// PUT /api/v1/quotations/:id/condition
func (h *Handler) SetCondition(c *gin.Context) {
	var req transport.SetConditionRequest
	if !h.bind(c, &req) {
		return
	}
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.SetCondition(c.Request.Context(), studioID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
