// Package service implements lead pipeline operations.
package service

import (
	"context"
	"fmt"

	"studio_portal_backend/internal/leads/domain"
	"studio_portal_backend/internal/leads/repository"
	"studio_portal_backend/internal/leads/transport"
	"studio_portal_backend/platform/apperr"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/phone"
	"studio_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Service provides lead pipeline operations.
type Service struct {
	repo repository.LeadsRepository
	log  *logger.Logger
}

// New creates a new leads service.
func New(repo repository.LeadsRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// SeedDefaultPipelines installs the built-in stage templates for both
// pipelines. Existing stages are kept.
func (s *Service) SeedDefaultPipelines(ctx context.Context, studioID uuid.UUID) error {
	templates, err := domain.DefaultTemplates()
	if err != nil {
		return err
	}
	for _, kind := range []domain.PipelineKind{domain.PipelineLead, domain.PipelineEvent} {
		if err := s.repo.SeedStages(ctx, studioID, kind, templates[kind]); err != nil {
			return err
		}
	}
	s.log.WithContext(ctx).Info("default pipelines seeded", "studioId", studioID)
	return nil
}

// Pipeline loads a studio pipeline, seeding the defaults on first use.
func (s *Service) Pipeline(ctx context.Context, studioID uuid.UUID, kind domain.PipelineKind) (*domain.Pipeline, error) {
	if !kind.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown pipeline %q", kind))
	}
	stages, err := s.repo.ListStages(ctx, studioID, kind)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		if err := s.SeedDefaultPipelines(ctx, studioID); err != nil {
			return nil, err
		}
		if stages, err = s.repo.ListStages(ctx, studioID, kind); err != nil {
			return nil, err
		}
	}
	return domain.NewPipeline(kind, stages)
}

// GetPipeline returns the pipeline as a response.
func (s *Service) GetPipeline(ctx context.Context, studioID uuid.UUID, kind domain.PipelineKind) (transport.PipelineResponse, error) {
	p, err := s.Pipeline(ctx, studioID, kind)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	resp := transport.PipelineResponse{Pipeline: string(kind), Stages: []transport.StageResponse{}}
	for _, st := range p.Stages() {
		resp.Stages = append(resp.Stages, toStageResponse(st))
	}
	return resp, nil
}

// CreateLead starts a lead at the pipeline's intake stage.
func (s *Service) CreateLead(ctx context.Context, studioID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	p, err := s.Pipeline(ctx, studioID, domain.PipelineLead)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	contactName := sanitize.TextPtr(req.ContactName)
	if contactName != nil && *contactName == "" {
		return transport.LeadResponse{}, apperr.Validation("contactName is empty")
	}
	contactPhone, err := normalizePhone(req.ContactPhone)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		StudioID:     studioID,
		ContactID:    req.ContactID,
		ContactName:  contactName,
		ContactPhone: contactPhone,
		StageID:      p.Intake().ID,
		EventType:    req.EventType,
		InterestDate: req.InterestDate,
		EventDate:    req.EventDate,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	s.log.WithContext(ctx).Info("lead created", "leadId", lead.ID)
	return toLeadResponse(lead, p), nil
}

// Lead returns the raw lead for cross-module readers.
func (s *Service) Lead(ctx context.Context, studioID, id uuid.UUID) (repository.Lead, error) {
	return s.repo.GetByID(ctx, studioID, id)
}

// LeadExists reports whether the lead belongs to the studio.
func (s *Service) LeadExists(ctx context.Context, studioID, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, studioID, id)
}

// GetLead returns a lead with its resolved stage.
func (s *Service) GetLead(ctx context.Context, studioID, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, studioID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	p, err := s.Pipeline(ctx, studioID, domain.PipelineLead)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead, p), nil
}

// SetEventDate confirms or clears the lead's event date.
func (s *Service) SetEventDate(ctx context.Context, studioID, id uuid.UUID, actor string, req transport.SetEventDateRequest) (transport.LeadResponse, error) {
	if err := s.repo.UpdateEventDate(ctx, studioID, id, req.EventDate); err != nil {
		return transport.LeadResponse{}, err
	}
	title := "Event date cleared"
	meta := map[string]any{}
	if req.EventDate != nil {
		title = "Event date confirmed"
		meta["eventDate"] = req.EventDate.Format("2006-01-02")
	}
	s.timeline(ctx, repository.CreateTimelineEventParams{
		LeadID: id, StudioID: studioID,
		ActorType: repository.ActorTypeUser, ActorName: actor,
		EventType: repository.EventTypeEventDateSet, Title: title, Metadata: meta,
	})
	return s.GetLead(ctx, studioID, id)
}

// MoveStage moves a lead on behalf of a studio user. The approved stage is
// reserved for quotation authorization.
func (s *Service) MoveStage(ctx context.Context, studioID, id uuid.UUID, actor string, req transport.MoveStageRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, studioID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	p, err := s.Pipeline(ctx, studioID, domain.PipelineLead)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	target, ok := p.BySlug(req.Stage)
	if !ok {
		return transport.LeadResponse{}, apperr.Validation(fmt.Sprintf("unknown stage %q", req.Stage))
	}
	if err := p.CanMove(lead.StageID, target.ID, domain.ActorUser); err != nil {
		return transport.LeadResponse{}, err
	}
	if target.ID == lead.StageID {
		return toLeadResponse(lead, p), nil
	}

	if err := s.repo.UpdateStage(ctx, studioID, id, target.ID); err != nil {
		return transport.LeadResponse{}, err
	}
	from, _ := p.ByID(lead.StageID)
	s.timeline(ctx, repository.CreateTimelineEventParams{
		LeadID: id, StudioID: studioID,
		ActorType: repository.ActorTypeUser, ActorName: actor,
		EventType: repository.EventTypeStageChange,
		Title:     fmt.Sprintf("Stage changed to %s", target.Name),
		Metadata:  map[string]any{"from": from.Slug, "to": target.Slug},
	})

	lead.StageID = target.ID
	return toLeadResponse(lead, p), nil
}

// AttachCancelled marks the lead cancelled without moving it.
func (s *Service) AttachCancelled(ctx context.Context, studioID, id uuid.UUID, actor string) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, studioID, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	tags := domain.NewTags(lead.Tags...)
	if tags.Cancelled() {
		return s.GetLead(ctx, studioID, id)
	}
	if err := s.repo.AttachTag(ctx, studioID, id, domain.TagCancelled); err != nil {
		return transport.LeadResponse{}, err
	}
	s.timeline(ctx, repository.CreateTimelineEventParams{
		LeadID: id, StudioID: studioID,
		ActorType: repository.ActorTypeUser, ActorName: actor,
		EventType: repository.EventTypeTagAttached, Title: "Lead marked as cancelled",
		Metadata: map[string]any{"tag": domain.TagCancelled},
	})
	return s.GetLead(ctx, studioID, id)
}

// DetachCancelled removes the cancelled marker.
func (s *Service) DetachCancelled(ctx context.Context, studioID, id uuid.UUID, actor string) (transport.LeadResponse, error) {
	if _, err := s.repo.GetByID(ctx, studioID, id); err != nil {
		return transport.LeadResponse{}, err
	}
	removed, err := s.repo.DetachTag(ctx, studioID, id, domain.TagCancelled)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if removed {
		s.timeline(ctx, repository.CreateTimelineEventParams{
			LeadID: id, StudioID: studioID,
			ActorType: repository.ActorTypeUser, ActorName: actor,
			EventType: repository.EventTypeTagDetached, Title: "Cancellation withdrawn",
			Metadata: map[string]any{"tag": domain.TagCancelled},
		})
	}
	return s.GetLead(ctx, studioID, id)
}

// Timeline lists the lead's timeline, newest first.
func (s *Service) Timeline(ctx context.Context, studioID, id uuid.UUID) ([]transport.TimelineEventResponse, error) {
	events, err := s.repo.ListTimelineEvents(ctx, id, studioID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TimelineEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, transport.TimelineEventResponse{
			ID: e.ID, ActorType: e.ActorType, ActorName: e.ActorName, EventType: e.EventType,
			Title: e.Title, Summary: e.Summary, Metadata: e.Metadata, CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

// RecordTimelineEvent writes a timeline entry for another module.
func (s *Service) RecordTimelineEvent(ctx context.Context, params repository.CreateTimelineEventParams) error {
	_, err := s.repo.CreateTimelineEvent(ctx, params)
	return err
}

func normalizePhone(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	normalized, ok := phone.Normalize(*raw, phone.DefaultRegion)
	if !ok {
		return nil, apperr.Validation("contactPhone is not a valid phone number").WithDetails(map[string]string{"contactPhone": "phone"})
	}
	return &normalized, nil
}

// timeline writes are best effort; the state change already happened.
func (s *Service) timeline(ctx context.Context, params repository.CreateTimelineEventParams) {
	if _, err := s.repo.CreateTimelineEvent(ctx, params); err != nil {
		s.log.WithContext(ctx).Warn("failed to write lead timeline event", "leadId", params.LeadID, "eventType", params.EventType, "error", err)
	}
}

func toStageResponse(st domain.Stage) transport.StageResponse {
	return transport.StageResponse{ID: st.ID, Slug: st.Slug, Name: st.Name, Order: st.Order}
}

func toLeadResponse(lead repository.Lead, p *domain.Pipeline) transport.LeadResponse {
	stage, ok := p.ByID(lead.StageID)
	if !ok {
		stage = domain.Stage{ID: lead.StageID}
	}
	tags := domain.NewTags(lead.Tags...)
	return transport.LeadResponse{
		ID:           lead.ID,
		ContactID:    lead.ContactID,
		Stage:        toStageResponse(stage),
		EventType:    lead.EventType,
		InterestDate: lead.InterestDate,
		EventDate:    lead.EventDate,
		Tags:         tags.Values(),
		Cancelled:    tags.Cancelled(),
		CreatedAt:    lead.CreatedAt,
		UpdatedAt:    lead.UpdatedAt,
	}
}
