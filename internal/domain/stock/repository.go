package stock

import (
	"context"
)

// Repository defines persistence for stock levels and movements.
type Repository interface {
	// GetLevel returns the level for key or a NOT_FOUND AppError.
	GetLevel(ctx context.Context, key Key) (*Level, error)

	// GetLevelForUpdate returns the level with a row lock held until the
	// surrounding transaction ends, or a NOT_FOUND AppError.
	GetLevelForUpdate(ctx context.Context, key Key) (*Level, error)

	// CreateLevel inserts a new level.
	CreateLevel(ctx context.Context, level *Level) error

	// UpdateLevel persists quantities, cost and last movement time.
	UpdateLevel(ctx context.Context, level *Level) error

	// ListLevels returns levels matching filter.
	ListLevels(ctx context.Context, filter LevelFilter) ([]Level, error)

	// AppendMovements inserts movements. Movements are never updated or deleted.
	AppendMovements(ctx context.Context, movements []Movement) error

	// ListMovements returns movements matching filter, oldest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}
