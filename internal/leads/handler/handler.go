package handler

import (
	"net/http"

	"studio_portal_backend/internal/leads/domain"
	"studio_portal_backend/internal/leads/service"
	"studio_portal_backend/internal/leads/transport"
	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for leads.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/pipeline", h.GetPipeline)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/timeline", h.Timeline)
	rg.PATCH("/:id/stage", h.MoveStage)
	rg.PATCH("/:id/event-date", h.SetEventDate)
	rg.POST("/:id/tags/cancelled", h.AttachCancelled)
	rg.DELETE("/:id/tags/cancelled", h.DetachCancelled)
}

// actorName identifies the caller on timeline entries.
func actorName(c *gin.Context) string {
	if userID := httpkit.GetUserID(c); userID != nil {
		return userID.String()
	}
	return "Studio"
}

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

// GetPipeline returns the studio's lead or event pipeline.
// GET /api/v1/leads/pipeline?kind=lead|event
func (h *Handler) GetPipeline(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	kind := domain.PipelineKind(c.DefaultQuery("kind", string(domain.PipelineLead)))
	result, err := h.svc.GetPipeline(c.Request.Context(), studioID, kind)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create starts a new lead at the intake stage.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
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
	result, err := h.svc.CreateLead(c.Request.Context(), studioID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetByID returns a lead.
// GET /api/v1/leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.GetLead(c.Request.Context(), studioID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Timeline lists the lead timeline.
// GET /api/v1/leads/:id/timeline
func (h *Handler) Timeline(c *gin.Context) {
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.Timeline(c.Request.Context(), studioID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// MoveStage moves the lead to another stage by slug.
// PATCH /api/v1/leads/:id/stage
func (h *Handler) MoveStage(c *gin.Context) {
	var req transport.MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.MoveStage(c.Request.Context(), studioID, id, actorName(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetEventDate confirms or clears the event date.
// PATCH /api/v1/leads/:id/event-date
func (h *Handler) SetEventDate(c *gin.Context) {
	var req transport.SetEventDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.SetEventDate(c.Request.Context(), studioID, id, actorName(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AttachCancelled marks the lead cancelled.
// POST /api/v1/leads/:id/tags/cancelled
func (h *Handler) AttachCancelled(c *gin.Context) {
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.AttachCancelled(c.Request.Context(), studioID, id, actorName(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DetachCancelled removes the cancelled marker.
// DELETE /api/v1/leads/:id/tags/cancelled
func (h *Handler) DetachCancelled(c *gin.Context) {
	studioID, id, ok := scope(c)
	if !ok {
		return
	}
	result, err := h.svc.DetachCancelled(c.Request.Context(), studioID, id, actorName(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
