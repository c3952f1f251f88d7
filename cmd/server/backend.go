package main

import (
	"context"
	"fmt"

	"backoffice/internal/config"
	"backoffice/internal/core/events"
	"backoffice/internal/core/idempotency"
	corenumerator "backoffice/internal/core/numerator"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/reports"
	"backoffice/internal/domain/stock"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/storage/memory"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/internal/infrastructure/storage/postgres/catalog_repo"
	"backoffice/internal/infrastructure/storage/postgres/order_repo"
	"backoffice/internal/infrastructure/storage/postgres/report_repo"
	"backoffice/internal/infrastructure/storage/postgres/stock_repo"
	"backoffice/pkg/numerator"
)

// backend is one storage implementation behind the domain contracts.
type backend struct {
	name        string
	txManager   tx.Manager
	orders      order.Repository
	stock       stock.Repository
	catalog     catalog.Repository
	reports     reports.Repository
	publisher   events.Publisher
	numerator   corenumerator.Generator
	idempotency idempotency.Store
	health      handlers.Pinger
	pool        *postgres.Pool

	// relay drains the outbox in-process. Nil when cmd/worker does it.
	relay events.Relay
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.DatabaseURL == "" {
		return memoryBackend(cfg), nil
	}
	return postgresBackend(ctx, cfg)
}

func memoryBackend(cfg *config.Config) *backend {
	store := memory.NewStore()
	b := &backend{
		name:      "memory",
		txManager: memory.NewTxManager(store),
		orders:    memory.NewOrderRepo(store),
		stock:     memory.NewStockRepo(store),
		catalog:   memory.NewCatalogRepo(store),
		reports:   memory.NewReportRepo(store),
		publisher: memory.NewOutboxPublisher(store),
		numerator: corenumerator.NewInMemory(),
		health:    store,
		relay:     memory.NewOutboxRelay(store, cfg.OutboxBatchSize, events.LogHandler()),
		close:     func() {},
	}
	if cfg.IdempotencyTTL > 0 {
		b.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}
	return b
}

func postgresBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBMaxConns
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	codec, err := postgres.NewSnapshotCodec(postgres.DefaultSnapshotThreshold)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshot codec: %w", err)
	}

	txm := postgres.NewTxManager(pool)
	b := &backend{
		name:      "postgres",
		txManager: txm,
		orders:    order_repo.NewOrderRepo(txm, codec),
		stock:     stock_repo.NewStockRepo(txm),
		catalog:   catalog_repo.NewCatalogRepo(txm),
		reports:   report_repo.NewReportRepo(txm),
		publisher: postgres.NewOutboxPublisher(txm),
		numerator: numerator.New(pool),
		health:    pool,
		pool:      pool,
		close:     pool.Close,
	}
	if cfg.IdempotencyTTL > 0 {
		b.idempotency = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
	}
	return b, nil
}
