package memory

import (
	"context"
	"sort"

	"backoffice/internal/core/apperror"
	"backoffice/internal/domain/stock"
)

// StockRepo implements stock.Repository. Inside a transaction the store
// lock already serializes writers, which stands in for row locks.
type StockRepo struct {
	store *Store
}

// NewStockRepo creates a stock repository over store.
func NewStockRepo(store *Store) *StockRepo {
	return &StockRepo{store: store}
}

var _ stock.Repository = (*StockRepo)(nil)

// GetLevel implements stock.Repository.
func (r *StockRepo) GetLevel(ctx context.Context, key stock.Key) (*stock.Level, error) {
	defer r.store.lock(ctx)()

	level, ok := r.store.data.levels[key.String()]
	if !ok {
		return nil, apperror.NewNotFound("stock level", key.String())
	}
	return &level, nil
}

// GetLevelForUpdate implements stock.Repository.
func (r *StockRepo) GetLevelForUpdate(ctx context.Context, key stock.Key) (*stock.Level, error) {
	return r.GetLevel(ctx, key)
}

// CreateLevel implements stock.Repository.
func (r *StockRepo) CreateLevel(ctx context.Context, level *stock.Level) error {
	defer r.store.lock(ctx)()

	k := level.Key.String()
	if _, ok := r.store.data.levels[k]; ok {
		return apperror.NewDuplicate("stock level", "key", k)
	}
	r.store.data.levels[k] = *level
	return nil
}

// UpdateLevel implements stock.Repository.
func (r *StockRepo) UpdateLevel(ctx context.Context, level *stock.Level) error {
	defer r.store.lock(ctx)()

	k := level.Key.String()
	if _, ok := r.store.data.levels[k]; !ok {
		return apperror.NewNotFound("stock level", k)
	}
	r.store.data.levels[k] = *level
	return nil
}

// ListLevels implements stock.Repository.
func (r *StockRepo) ListLevels(ctx context.Context, filter stock.LevelFilter) ([]stock.Level, error) {
	defer r.store.lock(ctx)()

	levels := make([]stock.Level, 0)
	for _, l := range r.store.data.levels {
		if filter.ProductID != nil && l.Key.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && l.Key.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.ExcludeZero && l.Quantity == 0 {
			continue
		}
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Key.String() < levels[j].Key.String()
	})
	return page(levels, filter.Limit, filter.Offset), nil
}

// AppendMovements implements stock.Repository.
func (r *StockRepo) AppendMovements(ctx context.Context, movements []stock.Movement) error {
	defer r.store.lock(ctx)()

	r.store.data.movements = append(r.store.data.movements, movements...)
	return nil
}

// ListMovements implements stock.Repository.
func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]stock.Movement, error) {
	defer r.store.lock(ctx)()

	movements := make([]stock.Movement, 0)
	for _, m := range r.store.data.movements {
		if filter.ProductID != nil && m.Key.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && m.Key.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.Reference != nil && !stock.SameReference(filter.Reference, m.Reference) {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.FromDate != nil && m.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && m.CreatedAt.After(*filter.ToDate) {
			continue
		}
		movements = append(movements, m)
	}
	// append order is creation order; stable sort keeps it for equal timestamps
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].CreatedAt.Before(movements[j].CreatedAt)
	})
	return page(movements, filter.Limit, filter.Offset), nil
}
