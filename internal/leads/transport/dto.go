package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	ContactID    *uuid.UUID `json:"contactId" validate:"excluded_with=ContactName"`
	ContactName  *string    `json:"contactName" validate:"omitempty,min=1,max=200"`
	ContactPhone *string    `json:"contactPhone" validate:"omitempty,max=40"`
	EventType    *string    `json:"eventType" validate:"omitempty,max=100"`
	InterestDate *time.Time `json:"interestDate"`
	EventDate    *time.Time `json:"eventDate"`
}

type MoveStageRequest struct {
	Stage string `json:"stage" validate:"required,max=100"`
}

// SetEventDateRequest confirms or clears the event date; null clears it.
type SetEventDateRequest struct {
	EventDate *time.Time `json:"eventDate"`
}

type StageResponse struct {
	ID    uuid.UUID `json:"id"`
	Slug  string    `json:"slug"`
	Name  string    `json:"name"`
	Order int       `json:"order"`
}

type PipelineResponse struct {
	Pipeline string          `json:"pipeline"`
	Stages   []StageResponse `json:"stages"`
}

type LeadResponse struct {
	ID           uuid.UUID     `json:"id"`
	ContactID    *uuid.UUID    `json:"contactId,omitempty"`
	Stage        StageResponse `json:"stage"`
	EventType    *string       `json:"eventType,omitempty"`
	InterestDate *time.Time    `json:"interestDate,omitempty"`
	EventDate    *time.Time    `json:"eventDate,omitempty"`
	Tags         []string      `json:"tags"`
	Cancelled    bool          `json:"cancelled"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type TimelineEventResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorType string         `json:"actorType"`
	ActorName string         `json:"actorName"`
	EventType string         `json:"eventType"`
	Title     string         `json:"title"`
	Summary   *string        `json:"summary,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
