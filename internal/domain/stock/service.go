package stock

import (
	"context"
	"fmt"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/tx"
	"backoffice/internal/core/types"
	"backoffice/pkg/logger"
)

// Service exposes stock queries and manual adjustments.
// Order-driven changes go through the Ledger inside the order transaction instead.
type Service struct {
	repo      Repository
	ledger    *Ledger
	txManager tx.Manager
}

// NewService creates a new stock service.
func NewService(repo Repository, ledger *Ledger, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		txManager: txManager,
	}
}

// AdjustmentInput describes a manual stock correction.
// UnitCost is optional; without it the average cost is left alone.
type AdjustmentInput struct {
	Key      Key
	Delta    int64
	UnitCost *types.Money
	Note     string
}

// Validate checks the adjustment before any mutation.
func (in AdjustmentInput) Validate() error {
	if id.IsNil(in.Key.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(in.Key.WarehouseID) {
		return apperror.NewValidation("warehouse is required").WithDetail("field", "warehouseId")
	}
	if in.Delta == 0 {
		return apperror.NewValidation("quantity must not be zero").WithDetail("field", "quantity")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost must not be negative").WithDetail("field", "unitCost")
	}
	return nil
}

// Adjust applies a manual correction in its own transaction.
func (s *Service) Adjust(ctx context.Context, in AdjustmentInput, act actor.Actor) (*Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	note := in.Note
	if note == "" {
		note = "Manual stock adjustment"
	}

	ref := AdjustmentReference{AdjustmentID: id.New()}
	var movement *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.ledger.Adjust(ctx, in.Key, in.Delta, in.UnitCost, ref, note, act)
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"key", in.Key.String(),
		"delta", in.Delta,
		"after", movement.QuantityAfter,
		"actor", act.String(),
	)
	return movement, nil
}

// GetLevel returns the level for key.
func (s *Service) GetLevel(ctx context.Context, key Key) (*Level, error) {
	return s.repo.GetLevel(ctx, key)
}

// ListLevels returns levels with default pagination applied.
func (s *Service) ListLevels(ctx context.Context, filter LevelFilter) ([]Level, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	levels, err := s.repo.ListLevels(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	return levels, nil
}

// ListMovements returns the movement history matching filter.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	movements, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	return movements, nil
}
