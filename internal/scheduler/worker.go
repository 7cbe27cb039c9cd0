package scheduler

import (
	"context"
	"fmt"

	"studio_portal_backend/internal/events"
	"studio_portal_backend/platform/config"
	"studio_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes follow-up tasks and hands them to the event bus.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		bus:    bus,
		log:    log,
	}
	w.mux.HandleFunc(TaskFollowUpDue, w.handleFollowUpDue)

	return w, nil
}

func (w *Worker) handleFollowUpDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseFollowUpDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: outbox id: %v", asynq.SkipRetry, err)
	}

	studioID, err := uuid.Parse(payload.StudioID)
	if err != nil {
		return fmt.Errorf("%w: studio id: %v", asynq.SkipRetry, err)
	}

	return w.bus.PublishSync(ctx, events.FollowUpDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
		StudioID:  studioID,
	})
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start scheduler worker: %w", err)
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}
