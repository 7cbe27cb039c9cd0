package inapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studio_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"

	errRepoNotConfigured = "in-app notification repository not configured"
	errStudioIDRequired  = "studioId is required"
)

type Notification struct {
	ID           uuid.UUID       `json:"id"`
	StudioID     uuid.UUID       `json:"studioId"`
	EventType    string          `json:"eventType"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	ResourceID   *uuid.UUID      `json:"resourceId,omitempty"`
	ResourceType *string         `json:"resourceType,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	IsRead       bool            `json:"isRead"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type CreateParams struct {
	StudioID     uuid.UUID
	EventType    string
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Payload      any
}

// Store is the persistence surface of the in-app service.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, studioID uuid.UUID, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, studioID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, studioID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, studioID uuid.UUID) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const notificationCols = `id, studio_id, event_type, title, content, resource_id, resource_type, payload, is_read, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.StudioID, &n.EventType, &n.Title, &n.Content, &n.ResourceID, &n.ResourceType, &n.Payload, &n.IsRead, &n.CreatedAt)
	return n, err
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.StudioID == uuid.Nil {
		return Notification{}, apperr.Validation(errStudioIDRequired).WithOp(opCreate)
	}
	if p.EventType == "" || p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("eventType, title and content are required").WithOp(opCreate)
	}

	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return Notification{}, apperr.Validation("payload is not serializable").WithOp(opCreate)
	}

	n, err := scanNotification(r.pool.QueryRow(ctx, `
		INSERT INTO in_app_notifications
		(studio_id, event_type, title, content, resource_id, resource_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationCols,
		p.StudioID, p.EventType, p.Title, p.Content, p.ResourceID, p.ResourceType, payload))
	if err != nil {
		return Notification{}, apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}
	return n, nil
}

func (r *Repository) List(ctx context.Context, studioID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if studioID == uuid.Nil {
		return nil, 0, apperr.Validation(errStudioIDRequired).WithOp(opList)
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM in_app_notifications WHERE studio_id = $1`, studioID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationCols+`
		FROM in_app_notifications
		WHERE studio_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, studioID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", err)).WithOp(opList)
	}
	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, studioID uuid.UUID) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if studioID == uuid.Nil {
		return 0, apperr.Validation(errStudioIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM in_app_notifications
		WHERE studio_id = $1 AND is_read = FALSE
	`, studioID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}
	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, studioID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE
		WHERE id = $1 AND studio_id = $2
	`, notificationID, studioID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, studioID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE in_app_notifications
		SET is_read = TRUE
		WHERE studio_id = $1 AND is_read = FALSE
	`, studioID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}
	return nil
}
