package handler

import (
	"strconv"

	"studio_portal_backend/internal/notification/inapp"
	"studio_portal_backend/internal/notification/sse"
	"studio_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type HTTPHandler struct {
	svc *inapp.Service
	sse *sse.Service
}

func NewHTTPHandler(svc *inapp.Service, sseSvc *sse.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc, sse: sseSvc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.PATCH("/read-all", h.MarkAllRead)
	if h.sse != nil {
		rg.GET("/stream", h.sse.Handler())
	}
}

func (h *HTTPHandler) List(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	items, total, err := h.svc.List(c.Request.Context(), studioID, page, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	if items == nil {
		items = []inapp.Notification{}
	}

	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  page,
	})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), studioID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), studioID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	studioID, ok := httpkit.MustGetStudioID(c)
	if !ok {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), studioID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}
