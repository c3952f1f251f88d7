package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/events"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/reports"
	"backoffice/internal/domain/stock"
)

func testOrder(number string, status order.Status, date time.Time) *order.Order {
	orderID := id.New()
	return &order.Order{
		ID:          orderID,
		Number:      number,
		Kind:        order.KindRetail,
		Status:      status,
		Currency:    "USD",
		Customer:    order.GuestCustomer{Email: "ann@example.com", Name: "Ann"},
		TotalAmount: types.MustMoney("50.00"),
		OrderDate:   date,
		Items: []order.Item{{
			ID:        id.New(),
			OrderID:   orderID,
			LineNo:    1,
			ProductID: id.New(),
			Quantity:  2,
			UnitPrice: types.MustMoney("25.00"),
			UnitCost:  types.MustMoney("10.00"),
		}},
	}
}

func TestTxManager_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	txm := NewTxManager(store)
	orders := NewOrderRepo(store)
	levels := NewStockRepo(store)

	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	boom := errors.New("boom")

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, orders.Create(ctx, testOrder("ORD-1", order.StatusPending, time.Now())))
		require.NoError(t, levels.CreateLevel(ctx, stock.NewLevel(key, time.Now())))

		// nested calls join the outer transaction
		return txm.RunInTransaction(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	_, err = orders.GetByNumber(ctx, "ORD-1")
	assert.True(t, apperror.IsNotFound(err))
	_, err = levels.GetLevel(ctx, key)
	assert.True(t, apperror.IsNotFound(err))
}

func TestOrderRepo_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewOrderRepo(store)

	o := testOrder("ORD-1", order.StatusPending, time.Now())
	require.NoError(t, repo.Create(ctx, o))

	first, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)

	first.Status = order.StatusConfirmed
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 1, first.Version)

	second.Status = order.StatusCancelled
	err = repo.Update(ctx, second)
	assert.True(t, apperror.IsConcurrentModification(err))

	stored, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, stored.Status)
	assert.Len(t, stored.Items, 1, "header updates keep children")
}

func TestOrderRepo_ListPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewOrderRepo(store)
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for i, number := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		require.NoError(t, repo.Create(ctx, testOrder(number, order.StatusPending, day.AddDate(0, 0, i))))
	}

	result, err := repo.List(ctx, order.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "ORD-3", result.Items[0].Number)
	assert.Nil(t, result.Items[0].Items)

	result, err = repo.List(ctx, order.ListFilter{Search: "ord-1", Offset: 0})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "ORD-1", result.Items[0].Number)
}

func TestOutboxRelay_RetriesThenFails(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	publisher := NewOutboxPublisher(store)

	require.NoError(t, publisher.Publish(ctx, events.Event{
		AggregateType: "order",
		AggregateID:   id.New(),
		EventType:     "order.created",
		Payload:       map[string]string{"number": "ORD-1"},
	}))

	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	calls := 0
	relay := NewOutboxRelay(store, 10, events.HandlerFunc(func(context.Context, *events.Message) error {
		calls++
		return errors.New("broker down")
	}))
	relay.now = func() time.Time { return now }

	for i := 0; i < events.MaxRetries; i++ {
		n, err := relay.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		// not due again until the backoff passes
		n, err = relay.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		now = now.Add(events.RetryDelay(i))
	}
	assert.Equal(t, events.MaxRetries, calls)

	msgs := publisher.Messages(ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, events.StatusFailed, msgs[0].Status)
	require.NotNil(t, msgs[0].LastError)
	assert.Equal(t, "broker down", *msgs[0].LastError)
}

func TestOutboxRelay_Publishes(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	publisher := NewOutboxPublisher(store)
	txm := NewTxManager(store)

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, publisher.Publish(ctx, events.Event{EventType: "order.created"}))
		return errors.New("rollback")
	})
	require.Error(t, err)
	assert.Empty(t, publisher.Messages(ctx), "rolled back with the transaction")

	require.NoError(t, publisher.Publish(ctx, events.Event{EventType: "order.created"}))

	var seen []string
	relay := NewOutboxRelay(store, 10, events.HandlerFunc(func(_ context.Context, msg *events.Message) error {
		seen = append(seen, msg.EventType)
		return nil
	}))
	n, err := relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"order.created"}, seen)

	n, err = relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, events.StatusPublished, publisher.Messages(ctx)[0].Status)
}

func TestReportRepo_MonthlyPerformance(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	orders := NewOrderRepo(store)
	repo := NewReportRepo(store)

	march := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, orders.Create(ctx, testOrder("ORD-1", order.StatusDelivered, march)))
	require.NoError(t, orders.Create(ctx, testOrder("ORD-2", order.StatusCancelled, march)))
	require.NoError(t, orders.Create(ctx, testOrder("ORD-3", order.StatusDelivered, march.AddDate(1, 0, 0))))

	rows, err := repo.GetMonthlyPerformance(ctx, reports.MonthlyPerformanceFilter{Year: 2026})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 3, row.Month)
	assert.Equal(t, int64(2), row.OrderCount)
	assert.Equal(t, int64(1), row.DeliveredCount)
	assert.Equal(t, int64(1), row.CancelledCount)
	assert.True(t, row.GrossRevenue.Equal(types.MustMoney("50.00")))
	assert.True(t, row.CostOfGoods.Equal(types.MustMoney("20.00")))

	rows, err = repo.GetMonthlyPerformance(ctx, reports.MonthlyPerformanceFilter{Year: 2026, Kind: "agent"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
