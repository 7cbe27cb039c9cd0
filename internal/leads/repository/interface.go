package repository

import (
	"context"
	"time"

	"studio_portal_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Lead is the database model for a lead.
type Lead struct {
	ID           uuid.UUID
	StudioID     uuid.UUID
	ContactID    *uuid.UUID
	StageID      uuid.UUID
	EventType    *string
	InterestDate *time.Time
	EventDate    *time.Time
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateLeadParams struct {
	StudioID     uuid.UUID
	ContactName  *string
	ContactPhone *string
	ContactID    *uuid.UUID
	StageID      uuid.UUID
	EventType    *string
	InterestDate *time.Time
	EventDate    *time.Time
}

// =====================================
// Segregated Interfaces
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, studioID, id uuid.UUID) (Lead, error)
	Exists(ctx context.Context, studioID, id uuid.UUID) (bool, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	UpdateStage(ctx context.Context, studioID, id, stageID uuid.UUID) error
	UpdateEventDate(ctx context.Context, studioID, id uuid.UUID, eventDate *time.Time) error
}

// TagStore attaches and detaches status tags.
type TagStore interface {
	AttachTag(ctx context.Context, studioID, leadID uuid.UUID, tag string) error
	DetachTag(ctx context.Context, studioID, leadID uuid.UUID, tag string) (bool, error)
}

// StageStore reads and seeds pipeline stages.
type StageStore interface {
	ListStages(ctx context.Context, studioID uuid.UUID, kind domain.PipelineKind) ([]domain.Stage, error)
	SeedStages(ctx context.Context, studioID uuid.UUID, kind domain.PipelineKind, templates []domain.StageTemplate) error
}

// TimelineStore records and lists lead timeline events.
type TimelineStore interface {
	CreateTimelineEvent(ctx context.Context, params CreateTimelineEventParams) (TimelineEvent, error)
	ListTimelineEvents(ctx context.Context, leadID, studioID uuid.UUID) ([]TimelineEvent, error)
}

// LeadsRepository is the full repository surface used by the service.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	TagStore
	StageStore
	TimelineStore
}
