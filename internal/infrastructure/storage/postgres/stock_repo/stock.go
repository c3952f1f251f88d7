// Package stock_repo provides the PostgreSQL implementation of stock.Repository.
package stock_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/stock"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	levelsTable    = "stock_levels"
	movementsTable = "stock_movements"
)

type levelRow struct {
	ID                id.ID       `db:"id"`
	ProductID         id.ID       `db:"product_id"`
	VariantID         *id.ID      `db:"variant_id"`
	WarehouseID       id.ID       `db:"warehouse_id"`
	Quantity          int64       `db:"quantity"`
	ReservedQuantity  int64       `db:"reserved_quantity"`
	AvailableQuantity int64       `db:"available_quantity"`
	AverageCost       types.Money `db:"average_cost"`
	LastMovementAt    *time.Time  `db:"last_movement_at"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

var levelColumns = postgres.ExtractDBColumns[levelRow]()

func toLevelRow(l *stock.Level) levelRow {
	return levelRow{
		ID:                l.ID,
		ProductID:         l.Key.ProductID,
		VariantID:         l.Key.VariantID,
		WarehouseID:       l.Key.WarehouseID,
		Quantity:          l.Quantity,
		ReservedQuantity:  l.ReservedQuantity,
		AvailableQuantity: l.AvailableQuantity,
		AverageCost:       l.AverageCost,
		LastMovementAt:    l.LastMovementAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func (r levelRow) toDomain() stock.Level {
	return stock.Level{
		ID:                r.ID,
		Key:               stock.Key{ProductID: r.ProductID, VariantID: r.VariantID, WarehouseID: r.WarehouseID},
		Quantity:          r.Quantity,
		ReservedQuantity:  r.ReservedQuantity,
		AvailableQuantity: r.AvailableQuantity,
		AverageCost:       r.AverageCost,
		LastMovementAt:    r.LastMovementAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// movementRow stores the reference union as a (ref_kind, ref_id) pair.
type movementRow struct {
	ID             id.ID       `db:"id"`
	ProductID      id.ID       `db:"product_id"`
	VariantID      *id.ID      `db:"variant_id"`
	WarehouseID    id.ID       `db:"warehouse_id"`
	Type           string      `db:"type"`
	Quantity       int64       `db:"quantity"`
	QuantityBefore int64       `db:"quantity_before"`
	QuantityAfter  int64       `db:"quantity_after"`
	UnitCost       types.Money `db:"unit_cost"`
	RefKind        string      `db:"ref_kind"`
	RefID          id.ID       `db:"ref_id"`
	Note           *string     `db:"note"`
	CreatedBy      *id.ID      `db:"created_by"`
	CreatedAt      time.Time   `db:"created_at"`
}

var movementColumns = postgres.ExtractDBColumns[movementRow]()

func toMovementValues(m stock.Movement) []any {
	var note *string
	if m.Note != "" {
		note = &m.Note
	}
	return []any{
		m.ID, m.Key.ProductID, m.Key.VariantID, m.Key.WarehouseID,
		string(m.Type), m.Quantity, m.QuantityBefore, m.QuantityAfter, m.UnitCost,
		string(m.Reference.Kind()), m.Reference.RefID(), note, m.CreatedBy, m.CreatedAt,
	}
}

func (r movementRow) toDomain() (stock.Movement, error) {
	ref, err := stock.ParseReference(r.RefKind, r.RefID)
	if err != nil {
		return stock.Movement{}, err
	}
	m := stock.Movement{
		ID:             r.ID,
		Key:            stock.Key{ProductID: r.ProductID, VariantID: r.VariantID, WarehouseID: r.WarehouseID},
		Type:           stock.MovementType(r.Type),
		Quantity:       r.Quantity,
		QuantityBefore: r.QuantityBefore,
		QuantityAfter:  r.QuantityAfter,
		UnitCost:       r.UnitCost,
		Reference:      ref,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
	}
	if r.Note != nil {
		m.Note = *r.Note
	}
	return m, nil
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ stock.Repository = (*StockRepo)(nil)

// keyCondition matches one stock key. A nil variant must match IS NULL.
func keyCondition(key stock.Key) squirrel.Eq {
	eq := squirrel.Eq{
		"product_id":   key.ProductID,
		"warehouse_id": key.WarehouseID,
		"variant_id":   nil,
	}
	if key.VariantID != nil {
		eq["variant_id"] = *key.VariantID
	}
	return eq
}

// GetLevel returns the level for key.
func (r *StockRepo) GetLevel(ctx context.Context, key stock.Key) (*stock.Level, error) {
	return r.getLevel(ctx, r.levelQuery(key), key)
}

// GetLevelForUpdate returns the level for key and locks its row until the
// transaction ends.
func (r *StockRepo) GetLevelForUpdate(ctx context.Context, key stock.Key) (*stock.Level, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetLevelForUpdate requires transaction context")
	}
	return r.getLevel(ctx, r.levelQuery(key).Suffix("FOR UPDATE"), key)
}

func (r *StockRepo) levelQuery(key stock.Key) squirrel.SelectBuilder {
	return r.builder.Select(levelColumns...).
		From(levelsTable).
		Where(keyCondition(key)).
		Limit(1)
}

func (r *StockRepo) getLevel(ctx context.Context, q squirrel.SelectBuilder, key stock.Key) (*stock.Level, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row levelRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock level", key.String())
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	level := row.toDomain()
	return &level, nil
}

// CreateLevel inserts a new level row.
func (r *StockRepo) CreateLevel(ctx context.Context, level *stock.Level) error {
	sql, args, err := r.builder.Insert(levelsTable).SetMap(postgres.StructToMap(toLevelRow(level))).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("stock level", "key", level.Key.String())
		}
		return fmt.Errorf("insert stock level: %w", err)
	}
	return nil
}

// UpdateLevel writes quantities and cost of an existing level.
func (r *StockRepo) UpdateLevel(ctx context.Context, level *stock.Level) error {
	sql, args, err := r.builder.Update(levelsTable).
		Set("quantity", level.Quantity).
		Set("reserved_quantity", level.ReservedQuantity).
		Set("available_quantity", level.AvailableQuantity).
		Set("average_cost", level.AverageCost).
		Set("last_movement_at", level.LastMovementAt).
		Set("updated_at", level.UpdatedAt).
		Where(squirrel.Eq{"id": level.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock level: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock level", level.Key.String())
	}
	return nil
}

// ListLevels returns levels ordered by product, variant and warehouse.
func (r *StockRepo) ListLevels(ctx context.Context, filter stock.LevelFilter) ([]stock.Level, error) {
	q := r.builder.Select(levelColumns...).
		From(levelsTable).
		OrderBy("product_id", "variant_id NULLS FIRST", "warehouse_id")
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": 0})
	}
	q = paginate(q, filter.Limit, filter.Offset)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []levelRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}

	levels := make([]stock.Level, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, row.toDomain())
	}
	return levels, nil
}

// AppendMovements inserts movements, with COPY inside a transaction.
func (r *StockRepo) AppendMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		if m.Reference == nil {
			return fmt.Errorf("movement %s has no reference", m.ID)
		}
		rows = append(rows, toMovementValues(m))
	}

	if r.txManager.GetTx(ctx) != nil {
		if _, err := postgres.NewBatchInserter(r.txManager).CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: non-transactional insert.
	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, values := range rows {
		q = q.Values(values...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// ListMovements returns movements in creation order.
func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]stock.Movement, error) {
	sql, args, err := r.movementsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}

	movements := make([]stock.Movement, 0, len(rows))
	for _, row := range rows {
		m, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("movement %s: %w", row.ID, err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func (r *StockRepo) movementsQuery(filter stock.MovementFilter) squirrel.SelectBuilder {
	// ids are UUIDv7, so id breaks created_at ties in insertion order
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		OrderBy("created_at", "id")
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Reference != nil {
		q = q.Where(squirrel.Eq{
			"ref_kind": string(filter.Reference.Kind()),
			"ref_id":   filter.Reference.RefID(),
		})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": string(*filter.Type)})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	return paginate(q, filter.Limit, filter.Offset)
}

func paginate(q squirrel.SelectBuilder, limit, offset int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}
