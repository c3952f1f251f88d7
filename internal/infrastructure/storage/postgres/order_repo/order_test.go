package order_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/order"
	"backoffice/internal/infrastructure/storage/postgres"
)

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func sampleOrder() *order.Order {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	return &order.Order{
		ID:             id.New(),
		Number:         "ORD-2026-00001",
		Kind:           order.KindRetail,
		Status:         order.StatusProcessing,
		Currency:       "USD",
		Customer:       order.GuestCustomer{Email: "ann@example.com", Name: "Ann"},
		Subtotal:       types.MustMoney("25.50"),
		ShippingCost:   types.MustMoney("5.00"),
		TaxRate:        types.MoneyPtr(types.MustMoney("6")),
		TaxAmount:      types.MustMoney("1.53"),
		DiscountAmount: types.MustMoney("2.00"),
		TotalAmount:    types.MustMoney("30.03"),
		StockDeducted:  true,
		OrderDate:      now,
		Version:        3,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestBuildUpdate(t *testing.T) {
	o := sampleOrder()
	q, err := buildUpdate(builder, toOrderRow(o))
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "UPDATE orders SET "))
	assert.Contains(t, sql, "version = version + 1")
	assert.Contains(t, sql, "stock_deducted = ")
	assert.NotContains(t, sql, " number = ")
	assert.NotContains(t, sql, " kind = ")
	assert.NotContains(t, sql, "created_at = ")

	require.Len(t, args, len(orderColumns)-len(immutableColumns)+2)
	assert.Equal(t, o.ID.String(), args[len(args)-2])
	assert.Equal(t, 3, args[len(args)-1])
}

func TestListConditions(t *testing.T) {
	kind := order.KindAgent
	status := order.StatusShipped
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := builder.Select("COUNT(*)").
		From(ordersTable).
		Where(listConditions(order.ListFilter{Kind: &kind, Status: &status, DateFrom: &from, Search: " AGT-2026 "})).
		ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM orders WHERE (kind = $1 AND status = $2 AND order_date >= $3 AND number ILIKE $4)", sql)
	assert.Equal(t, []any{"agent", "shipped", from, "%AGT-2026%"}, args)
}

func TestOrderRow_RoundTrip(t *testing.T) {
	o := sampleOrder()
	row := toOrderRow(o)
	require.NotNil(t, row.GuestEmail)
	assert.Nil(t, row.CustomerID)
	assert.Nil(t, row.CancellationReason)

	got, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, o.Customer, got.Customer)
	assert.True(t, got.StockDeducted)
	assert.True(t, got.TotalAmount.Equal(o.TotalAmount))
}

func TestOrderRow_LegacyDeductedFlag(t *testing.T) {
	o := sampleOrder()

	row := toOrderRow(o)
	row.StockDeducted = nil
	got, err := row.toDomain()
	require.NoError(t, err)
	assert.True(t, got.StockDeducted, "processing rows count as deducted")

	row.Status = string(order.StatusConfirmed)
	got, err = row.toDomain()
	require.NoError(t, err)
	assert.False(t, got.StockDeducted)
}

func TestOrderRow_RejectsAmbiguousCustomer(t *testing.T) {
	row := toOrderRow(sampleOrder())
	agent := id.New()
	row.AgentID = &agent

	_, err := row.toDomain()
	assert.Error(t, err)
}

func TestItemRow_Snapshot(t *testing.T) {
	codec, err := postgres.NewSnapshotCodec(32)
	require.NoError(t, err)

	snap := catalog.Snapshot{
		ProductID: id.New(),
		SKU:       "MUG-01",
		Name:      "Stoneware mug with a long descriptive name",
		Price:     types.MustMoney("20.00"),
		Cost:      types.MustMoney("8.00"),
	}
	it := order.Item{
		ID:        id.New(),
		OrderID:   id.New(),
		LineNo:    1,
		ProductID: snap.ProductID,
		Quantity:  2,
		UnitPrice: snap.Price,
		Snapshot:  &snap,
	}

	row, err := toItemRow(codec, it)
	require.NoError(t, err)
	require.NotNil(t, row.SnapshotCompression)
	assert.Equal(t, string(postgres.CompressionZstd), *row.SnapshotCompression)
	assert.Len(t, row.values(), len(itemColumns))

	got, err := row.toDomain(codec)
	require.NoError(t, err)
	require.NotNil(t, got.Snapshot)
	assert.Equal(t, "MUG-01", got.Snapshot.SKU)
	assert.True(t, got.Snapshot.Cost.Equal(snap.Cost))

	it.Snapshot = nil
	row, err = toItemRow(codec, it)
	require.NoError(t, err)
	got, err = row.toDomain(codec)
	require.NoError(t, err)
	assert.Nil(t, got.Snapshot)
}
