package inapp

import (
	"context"
	"encoding/json"
	"fmt"

	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/internal/notification/sse"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const resourceTypeEvent = "event"

type Service struct {
	repo Store
	sse  *sse.Service
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// SetSSE injects the stream service.
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

// Notify records a studio notification for eventType and pushes it to open
// streams. Unknown event types are stored with a generic title.
func (s *Service) Notify(ctx context.Context, studioID uuid.UUID, eventType string, payload any) error {
	if s == nil || s.repo == nil {
		return apperr.Internal("in-app notification service not configured")
	}

	params := CreateParams{
		StudioID:  studioID,
		EventType: eventType,
		Title:     "Notification",
		Content:   eventType,
		Payload:   payload,
	}
	if eventType == outbox.TemplateQuoteApproved {
		if p, ok := quoteApproved(payload); ok {
			rt := resourceTypeEvent
			params.Title = "Quotation authorized"
			params.Content = fmt.Sprintf("Event confirmed for %s. Total %s, advance %s.",
				p.EventDate.Format("2006-01-02"), p.Total.StringFixed(2), p.Advance.StringFixed(2))
			params.ResourceID = &p.EventID
			params.ResourceType = &rt
		}
	}

	notif, err := s.repo.Create(ctx, params)
	if err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "studioId", studioID, "eventType", eventType)
		return err
	}

	if s.sse != nil {
		s.sse.Publish(studioID, sse.Event{
			Type:    sse.EventInAppNotification,
			Message: notif.Title,
			Data:    notif,
		})
	}
	return nil
}

// quoteApproved accepts the payload either typed or as raw outbox JSON.
func quoteApproved(payload any) (outbox.QuoteApprovedPayload, bool) {
	switch p := payload.(type) {
	case outbox.QuoteApprovedPayload:
		return p, true
	case *outbox.QuoteApprovedPayload:
		if p == nil {
			return outbox.QuoteApprovedPayload{}, false
		}
		return *p, true
	case json.RawMessage:
		var out outbox.QuoteApprovedPayload
		if err := json.Unmarshal(p, &out); err != nil {
			return outbox.QuoteApprovedPayload{}, false
		}
		return out, true
	}
	return outbox.QuoteApprovedPayload{}, false
}

func (s *Service) List(ctx context.Context, studioID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.repo.List(ctx, studioID, pageSize, (page-1)*pageSize)
}

func (s *Service) CountUnread(ctx context.Context, studioID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, studioID)
}

func (s *Service) MarkRead(ctx context.Context, studioID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, studioID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, studioID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, studioID)
}
