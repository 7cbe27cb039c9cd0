package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio_portal_backend/internal/adapters"
	"studio_portal_backend/internal/events"
	leadsrepo "studio_portal_backend/internal/leads/repository"
	leadsservice "studio_portal_backend/internal/leads/service"
	"studio_portal_backend/internal/notification"
	"studio_portal_backend/internal/notification/outbox"
	"studio_portal_backend/internal/scheduler"
	"studio_portal_backend/platform/cache"
	"studio_portal_backend/platform/config"
	"studio_portal_backend/platform/db"
	"studio_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const outboxCleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	eventBus := events.NewInMemoryBus(log)

	leadsSvc := leadsservice.New(leadsrepo.New(pool), log)
	notificationModule := notification.New(pool, cache.NewRedisDedupStore(redisClient, "studio:"), cfg, log)
	notificationModule.SetAuditWriter(adapters.NewLeadTimelineWriter(leadsSvc))
	notificationModule.SetCalendarSyncer(adapters.NewCalendarSyncRequester(pool))
	notificationModule.SetContractRequester(adapters.NewContractRequester(pool))
	notificationModule.RegisterHandlers(eventBus)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	outboxRepo := outbox.New(pool)
	dispatcher := scheduler.NewOutboxDispatcher(cfg, client, outboxRepo, log)
	cleanup := scheduler.NewOutboxCleanup(outboxRepo, log, outboxCleanupInterval, cfg.GetOutboxRetention())

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		cleanup.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	eventBus.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
