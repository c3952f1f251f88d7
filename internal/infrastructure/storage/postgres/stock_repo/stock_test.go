package stock_repo

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/stock"
)

func newTestRepo() *StockRepo {
	return &StockRepo{builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

func TestLevelQuery_NullVariant(t *testing.T) {
	r := newTestRepo()
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}

	sql, args, err := r.levelQuery(key).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE product_id = $1 AND variant_id IS NULL AND warehouse_id = $2")
	assert.Contains(t, sql, "LIMIT 1 FOR UPDATE")
	// squirrel.Eq passes uuids through driver.Valuer
	assert.Equal(t, []any{key.ProductID.String(), key.WarehouseID.String()}, args)
}

func TestLevelQuery_WithVariant(t *testing.T) {
	r := newTestRepo()
	variant := id.New()
	key := stock.Key{ProductID: id.New(), VariantID: &variant, WarehouseID: id.New()}

	sql, args, err := r.levelQuery(key).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3")
	assert.Equal(t, []any{key.ProductID.String(), variant.String(), key.WarehouseID.String()}, args)
}

func TestMovementsQuery(t *testing.T) {
	r := newTestRepo()
	orderID := id.New()
	out := stock.MovementOut

	sql, args, err := r.movementsQuery(stock.MovementFilter{
		Reference: stock.OrderReference{OrderID: orderID},
		Type:      &out,
		Limit:     20,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM stock_movements WHERE ref_id = $1 AND ref_kind = $2 AND type = $3")
	assert.Contains(t, sql, "ORDER BY created_at, id LIMIT 20")
	assert.Equal(t, []any{orderID.String(), "order", "out"}, args)
}

func TestMovementRow(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	adj := id.New()
	m := stock.Movement{
		ID:             id.New(),
		Key:            stock.Key{ProductID: id.New(), WarehouseID: id.New()},
		Type:           stock.MovementIn,
		Quantity:       5,
		QuantityBefore: 0,
		QuantityAfter:  5,
		UnitCost:       types.MustMoney("2.50"),
		Reference:      stock.AdjustmentReference{AdjustmentID: adj},
		CreatedAt:      now,
	}

	values := toMovementValues(m)
	require.Len(t, values, len(movementColumns))
	assert.Equal(t, "adjustment", values[9])
	assert.Nil(t, values[11], "empty note is stored as NULL")

	row := movementRow{
		ID:        m.ID,
		ProductID: m.Key.ProductID,
		Type:      "in",
		RefKind:   "adjustment",
		RefID:     adj,
		CreatedAt: now,
	}
	got, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, stock.AdjustmentReference{AdjustmentID: adj}, got.Reference)

	row.RefKind = "invoice"
	_, err = row.toDomain()
	assert.Error(t, err)
}
