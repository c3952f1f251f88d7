// Package main is the entry point for the back-office background worker.
// It drains the PostgreSQL outbox and expires idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/core/events"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log.WithComponent("worker"))

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = 4
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	relay := postgres.NewOutboxRelay(txManager, cfg.OutboxBatchSize, events.LogHandler())
	keys := postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL)

	log.Infow("worker started",
		"poll_interval", cfg.OutboxPollInterval,
		"batch_size", cfg.OutboxBatchSize,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		events.Poll(ctx, relay, cfg.OutboxPollInterval)
	}()
	go func() {
		defer wg.Done()
		runMaintenance(ctx, pool, keys)
	}()

	<-ctx.Done()
	log.Info("shutting down worker...")
	wg.Wait()
	log.Info("worker stopped")
}

func runMaintenance(ctx context.Context, pool *postgres.Pool, keys *postgres.IdempotencyStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
			removed, err := keys.CleanupExpired(ctx)
			if err != nil {
				logger.Error(ctx, "idempotency cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info(ctx, "cleaned up idempotency keys", "count", removed)
			}
		}
	}
}
