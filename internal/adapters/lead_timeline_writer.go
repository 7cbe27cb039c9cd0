package adapters

import (
	"context"
	"fmt"

	leadsrepo "studio_portal_backend/internal/leads/repository"
	"studio_portal_backend/internal/notification"
	"studio_portal_backend/internal/notification/outbox"

	"github.com/google/uuid"
)

// TimelineRecorder is implemented by the leads service.
type TimelineRecorder interface {
	RecordTimelineEvent(ctx context.Context, params leadsrepo.CreateTimelineEventParams) error
}

// LeadTimelineWriter writes the authorization audit entry on the lead.
type LeadTimelineWriter struct {
	leads TimelineRecorder
}

func NewLeadTimelineWriter(leads TimelineRecorder) *LeadTimelineWriter {
	return &LeadTimelineWriter{leads: leads}
}

func (a *LeadTimelineWriter) RecordQuotationAuthorized(ctx context.Context, studioID uuid.UUID, p outbox.QuoteApprovedPayload) error {
	summary := fmt.Sprintf("Total %s, advance %s, deferred %s", p.Total.StringFixed(2), p.Advance.StringFixed(2), p.Deferred.StringFixed(2))
	metadata := map[string]any{
		"quotationId":      p.QuotationID,
		"eventId":          p.EventID,
		"eventDate":        p.EventDate.Format("2006-01-02"),
		"total":            p.Total.StringFixed(2),
		"archivedSiblings": p.ArchivedSiblings,
	}
	if p.ActorID != nil {
		metadata["actorId"] = *p.ActorID
	}

	return a.leads.RecordTimelineEvent(ctx, leadsrepo.CreateTimelineEventParams{
		LeadID:    p.LeadID,
		StudioID:  studioID,
		ActorType: leadsrepo.ActorTypeSystem,
		ActorName: leadsrepo.ActorNameFollowUp,
		EventType: leadsrepo.EventTypeQuotationAuthorized,
		Title:     "Quotation authorized",
		Summary:   &summary,
		Metadata:  metadata,
	})
}

var _ notification.AuditWriter = (*LeadTimelineWriter)(nil)
