package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaddash/internal/cache"
	"leaddash/internal/config"
	"leaddash/internal/dashboard"
	"leaddash/internal/db"
	"leaddash/internal/db/sqlite"
	"leaddash/internal/events"
	"leaddash/internal/jobs"
	"leaddash/internal/logging"
	"leaddash/internal/metagraph"
	"leaddash/internal/metrics"
	"leaddash/internal/server"
	"leaddash/internal/telemetry"
)

// eventStore is a transparency log backend.
type eventStore interface {
	events.Source
	SeedDevEvents(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.Setup(os.Stdout, cfg.LogLevel, cfg.IsDev())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "leaddash", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	dashCfg, err := config.LoadYAMLConfig(cfg.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", cfg.ConfigFile, err)
	}

	// Initialize event store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open event store: %v", err)
	}
	if cfg.SeedDevData {
		if err := store.SeedDevEvents(ctx); err != nil {
			log.Fatalf("Failed to seed dev events: %v", err)
		}
		logger.Info("seeded development events")
	}

	client := events.NewClient(store, events.Options{
		BatchSize:              cfg.BatchSize,
		MaxAttempts:            cfg.MaxAttempts,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		RetryDelay:             cfg.RetryDelay,
		BatchTimeout:           cfg.BatchTimeout,
		Logger:                 logger,
	})
	snapshots := metagraph.NewLoader(metagraph.Options{
		Command: cfg.MetagraphCommand,
		File:    cfg.MetagraphFile,
		Timeout: cfg.MetagraphTimeout,
		Logger:  logger,
	})

	// Optional shared cache
	var shared cache.Store
	var closeShared func() error
	if cfg.RedisURL != "" {
		redisStore := cache.NewRedisStore(cfg.RedisURL)
		shared = redisStore
		closeShared = redisStore.Close
		logger.Info("shared cache enabled")
	}

	svc := dashboard.NewService(client, snapshots, dashboard.Options{
		TTL:      cfg.CacheTTL,
		MaxStale: cfg.CacheMaxStale,
		Shared:   shared,
		Prewarm:  prewarmKeys(dashCfg),
		Logger:   logger,
	})
	metrics.Init(svc.AgeSources()...)

	// Background refresher
	refresher := jobs.NewRefresher(svc, cfg.RefreshInterval, logger)
	go refresher.Start(ctx)

	srv := server.New(cfg, logger)
	srv.RegisterRoutes(svc, svc, dashCfg.Windows)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	if err := srv.Shutdown(); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	svc.Close()
	if closeShared != nil {
		if err := closeShared(); err != nil {
			logger.Warn("failed to close shared cache", "error", err)
		}
	}
	closeStore()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("failed to flush traces", "error", err)
	}
	logger.Info("server exited")
}

// openStore connects to Postgres when DATABASE_URL is set and to the local
// SQLite file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (eventStore, func(), error) {
	if cfg.UsePostgres() {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			database.Close()
			return nil, nil, err
		}
		slog.Info("migrations completed successfully")
		return database, database.Close, nil
	}

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using sqlite event store", "path", cfg.SQLitePath)
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close sqlite store", "error", err)
		}
	}, nil
}

func prewarmKeys(c *config.YAMLConfig) []cache.Key {
	keys := make([]cache.Key, 0, len(c.Prewarm))
	for _, p := range c.Prewarm {
		keys = append(keys, cache.Key{Dataset: p.Dataset, Window: p.Window})
	}
	return keys
}
