package handler

import (
	"context"
	"net/http"

	"studio_portal_backend/internal/authorization/service"
	"studio_portal_backend/internal/authorization/transport"
	conditionsservice "studio_portal_backend/internal/conditions/service"
	"studio_portal_backend/platform/httpkit"
	"studio_portal_backend/platform/sanitize"
	"studio_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Authorizer is the service surface the handler needs.
type Authorizer interface {
	AuthorizeQuotation(ctx context.Context, req service.Request) (service.Result, error)
}

type Handler struct {
	svc Authorizer
	val *validator.Validator
}

func New(svc Authorizer, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the authorization route. limit is applied to it
// alone.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	if limit != nil {
		rg.POST("/:id/authorize", limit, h.Authorize)
		return
	}
	rg.POST("/:id/authorize", h.Authorize)
}

// Authorize converts a draft quotation into an event.
// POST /api/v1/quotations/:id/authorize
func (h *Handler) Authorize(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	quotationID, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req transport.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	in := service.Request{
		StudioID:           studioID,
		QuotationID:        quotationID,
		LeadID:             req.LeadID,
		ConditionID:        req.ConditionID,
		Amount:             req.Amount,
		ContractTemplateID: req.ContractTemplateID,
		ActorID:            httpkit.GetUserID(c),
	}
	if p := req.Payment; p != nil {
		in.Payment = &service.PaymentData{Amount: p.Amount, Method: sanitize.Text(p.Method), PaidAt: p.PaidAt, Concept: sanitize.Text(p.Concept)}
	}

	res, err := h.svc.AuthorizeQuotation(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AuthorizeResponse{
		EventID:           res.EventID,
		QuotationID:       res.QuotationID,
		QuotationStatus:   res.QuotationStatus,
		Breakdown:         conditionsservice.ToBreakdownResponse(res.Breakdown),
		PaymentID:         res.PaymentID,
		ArchivedSiblings:  res.ArchivedSiblings,
		ContractRequested: res.ContractRequested,
		Warnings:          res.Warnings,
	})
}
