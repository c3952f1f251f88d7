// Package main is the entry point for the back-office API server.
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

	"backoffice/internal/config"
	"backoffice/internal/core/events"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/reports"
	"backoffice/internal/domain/stock"
	v1 "backoffice/internal/infrastructure/http/v1"
	"backoffice/pkg/logger"
)

const version = "0.1.0"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	b, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer b.close()
	log.Infow("storage ready", "backend", b.name)

	transitions, err := transitionPolicy(cfg)
	if err != nil {
		log.Fatalw("invalid transition policy", "error", err)
	}

	// --- Domain services ---
	ledger := stock.NewLedger(b.stock, cfg.StockPolicy)
	engine := order.NewEngine(b.txManager, b.orders, ledger,
		order.WithPolicy(transitions),
		order.WithPublisher(b.publisher),
	)
	orderService := order.NewService(b.orders, engine, b.catalog, b.numerator, b.txManager,
		order.Defaults{Currency: cfg.Currency, TaxRate: cfg.DefaultTaxRate},
		order.WithServicePublisher(b.publisher),
	)
	stockService := stock.NewService(b.stock, ledger, b.txManager)
	var reportOpts []reports.ServiceOption
	if ro, ok := b.txManager.(tx.ReadOnlyManager); ok {
		reportOpts = append(reportOpts, reports.WithReadOnly(ro))
	}
	reportService := reports.NewService(b.reports, reportOpts...)

	routerCfg := v1.RouterConfig{
		Orders:      orderService,
		Stock:       stockService,
		Reports:     reportService,
		Health:      b.health,
		Backend:     b.name,
		Version:     version,
		Pool:        b.pool,
		Logger:      log,
		Idempotency: b.idempotency,
		Debug:       cfg.IsDevelopment(),
	}
	if cfg.AuthRequired {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
	} else {
		log.Warn("authentication disabled; requests act as the system user")
	}
	router := v1.NewRouter(routerCfg)

	if b.relay != nil {
		go events.Poll(ctx, b.relay, cfg.OutboxPollInterval)
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting",
			"port", cfg.AppPort,
			"stock_policy", cfg.StockPolicy,
			"transition_policy", cfg.TransitionPolicy,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func transitionPolicy(cfg *config.Config) (order.TransitionPolicy, error) {
	switch cfg.TransitionPolicy {
	case config.TransitionTable:
		return order.DefaultTransitionTable(), nil
	case config.TransitionCEL:
		return order.NewCELPolicy(cfg.TransitionRule)
	default:
		return order.PermissivePolicy{}, nil
	}
}
