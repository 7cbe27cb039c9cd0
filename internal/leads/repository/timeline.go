package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimelineSummaryMaxLen is the canonical maximum character length for timeline event summaries.
const TimelineSummaryMaxLen = 400

// TruncateSummary trims text to maxLen, appending "..." on overflow.
// Returns nil for blank input.
func TruncateSummary(text string, maxLen int) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return &trimmed
}

type TimelineEvent struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	StudioID  uuid.UUID
	ActorType string
	ActorName string
	EventType string
	Title     string
	Summary   *string
	Metadata  map[string]any
	CreatedAt time.Time
}

type CreateTimelineEventParams struct {
	LeadID    uuid.UUID
	StudioID  uuid.UUID
	ActorType string
	ActorName string
	EventType string
	Title     string
	Summary   *string
	Metadata  map[string]any
}

func (r *Repository) CreateTimelineEvent(ctx context.Context, params CreateTimelineEventParams) (TimelineEvent, error) {
	if params.Metadata == nil {
		params.Metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return TimelineEvent{}, err
	}

	var event TimelineEvent
	// metadata is excluded from RETURNING: params.Metadata is already in hand.
	err = r.pool.QueryRow(ctx, `
		INSERT INTO lead_timeline_events (
			lead_id,
			studio_id,
			actor_type,
			actor_name,
			event_type,
			title,
			summary,
			metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, lead_id, studio_id, actor_type, actor_name, event_type, title, summary, created_at
	`, params.LeadID, params.StudioID, params.ActorType, params.ActorName, params.EventType, params.Title, params.Summary, metadataJSON).Scan(
		&event.ID,
		&event.LeadID,
		&event.StudioID,
		&event.ActorType,
		&event.ActorName,
		&event.EventType,
		&event.Title,
		&event.Summary,
		&event.CreatedAt,
	)
	if err != nil {
		return TimelineEvent{}, err
	}
	event.Metadata = params.Metadata
	return event, nil
}

// timelineRowScanner is satisfied by pgx.Rows and pgx.Row.
type timelineRowScanner interface {
	Scan(dest ...any) error
}

// scanTimelineEvent expects the columns of timelineSelectCols.
func scanTimelineEvent(s timelineRowScanner) (TimelineEvent, error) {
	var event TimelineEvent
	var rawMetadata []byte
	if err := s.Scan(
		&event.ID,
		&event.LeadID,
		&event.StudioID,
		&event.ActorType,
		&event.ActorName,
		&event.EventType,
		&event.Title,
		&event.Summary,
		&rawMetadata,
		&event.CreatedAt,
	); err != nil {
		return TimelineEvent{}, err
	}
	if len(rawMetadata) > 0 {
		_ = json.Unmarshal(rawMetadata, &event.Metadata)
	}
	return event, nil
}

const timelineSelectCols = `
	id, lead_id, studio_id, actor_type, actor_name, event_type, title, summary, metadata, created_at`

// ListTimelineEvents returns all timeline events for a lead, ordered newest first.
func (r *Repository) ListTimelineEvents(ctx context.Context, leadID, studioID uuid.UUID) ([]TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+timelineSelectCols+`
		FROM lead_timeline_events
		WHERE lead_id = $1 AND studio_id = $2
		ORDER BY created_at DESC
	`, leadID, studioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]TimelineEvent, 0)
	for rows.Next() {
		event, err := scanTimelineEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, event)
	}
	return items, rows.Err()
}
