package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio_portal_backend/internal/adapters"
	"studio_portal_backend/internal/authorization"
	"studio_portal_backend/internal/catalog"
	"studio_portal_backend/internal/conditions"
	"studio_portal_backend/internal/events"
	apphttp "studio_portal_backend/internal/http"
	"studio_portal_backend/internal/http/router"
	"studio_portal_backend/internal/leads"
	"studio_portal_backend/internal/notification"
	"studio_portal_backend/internal/quotes"
	"studio_portal_backend/migrations"
	"studio_portal_backend/platform/cache"
	"studio_portal_backend/platform/config"
	"studio_portal_backend/platform/db"
	"studio_portal_backend/platform/logger"
	"studio_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if cfg.MigrationsEnabled {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg, migrations.FS, log)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	dedup, closeDedup := initDedupStore(ctx, cfg, log)
	defer closeDedup()

	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	catalogModule := catalog.NewModule(pool, val, log)
	conditionsModule := conditions.NewModule(pool, val, log)
	leadsModule := leads.NewModule(pool, val, log)
	quotesModule := quotes.NewModule(
		pool,
		adapters.NewCatalogPricer(catalogModule.Service()),
		conditionsModule.Service(),
		leadsModule.Service(),
		val,
		log,
	)
	authorizationModule := authorization.NewModule(
		pool,
		leadsModule.Service(),
		quotesModule.Repository(),
		conditionsModule.Service(),
		eventBus,
		val,
		log,
	)

	notificationModule := notification.New(pool, dedup, cfg, log)
	notificationModule.SetAuditWriter(adapters.NewLeadTimelineWriter(leadsModule.Service()))
	notificationModule.SetCalendarSyncer(adapters.NewCalendarSyncRequester(pool))
	notificationModule.SetContractRequester(adapters.NewContractRequester(pool))
	notificationModule.RegisterHandlers(eventBus)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			catalogModule,
			conditionsModule,
			leadsModule,
			quotesModule,
			authorizationModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDedupStore prefers Redis so claims are shared with the scheduler
// process, and falls back to an in-process store.
func initDedupStore(ctx context.Context, cfg config.SchedulerConfig, log *logger.Logger) (cache.DedupStore, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up dedup is process-local")
		return cache.NewMemoryDedupStore(), func() {}
	}

	client, err := cache.NewRedisClient(ctx, cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to connect to redis; follow-up dedup is process-local", "error", err)
		return cache.NewMemoryDedupStore(), func() {}
	}
	return cache.NewRedisDedupStore(client, "studio:"), func() { _ = client.Close() }
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
