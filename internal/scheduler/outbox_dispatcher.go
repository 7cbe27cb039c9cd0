package scheduler

import (
	"context"
	"time"

	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/platform/config"
	"studio_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
)

// OutboxClaimer hands out due outbox rows and takes them back on failure.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// OutboxDispatcher polls the outbox and turns due rows into asynq tasks.
type OutboxDispatcher struct {
	enqueuer FollowUpEnqueuer
	repo     OutboxClaimer
	interval time.Duration
	batch    int
	log      *logger.Logger
}

func NewOutboxDispatcher(cfg config.SchedulerConfig, enqueuer FollowUpEnqueuer, repo OutboxClaimer, log *logger.Logger) *OutboxDispatcher {
	interval := cfg.GetOutboxPollInterval()
	if interval <= 0 {
		interval = defaultPollInterval
	}
	batch := cfg.GetOutboxBatchSize()
	if batch < 1 {
		batch = defaultBatchSize
	}
	return &OutboxDispatcher{
		enqueuer: enqueuer,
		repo:     repo,
		interval: interval,
		batch:    batch,
		log:      log,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.enqueuer == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatch(ctx)
	}
}

// dispatch enqueues one batch and reports how many rows were handed over.
func (d *OutboxDispatcher) dispatch(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, d.batch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		err := d.enqueuer.EnqueueFollowUp(ctx, FollowUpDuePayload{
			OutboxID: rec.ID.String(),
			StudioID: rec.StudioID.String(),
		}, rec.RunAt)
		if err != nil {
			msg := err.Error()
			if markErr := d.repo.MarkPending(ctx, rec.ID, &msg); markErr != nil {
				d.log.Error("outbox release failed", "outboxId", rec.ID, "error", markErr)
			}
			d.log.Warn("follow-up enqueue failed", "outboxId", rec.ID, "kind", rec.Kind, "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		d.log.Debug("follow-ups enqueued", "count", enqueued)
	}
	return enqueued
}
