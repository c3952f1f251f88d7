package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/id"
	corenumerator "backoffice/internal/core/numerator"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/stock"
	"backoffice/internal/infrastructure/storage/memory"
)

var fixedNow = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	orders    *memory.OrderRepo
	stockRepo *memory.StockRepo
	catalog   *memory.CatalogRepo
	outbox    *memory.OutboxPublisher
	ledger    *stock.Ledger
	engine    *order.Engine
	svc       *order.Service

	warehouse id.ID
	product   catalog.Product
	clock     time.Time
}

type fixtureOpts struct {
	policy      stock.NegativePolicy
	transitions order.TransitionPolicy
}

func newFixture(t *testing.T, opts ...func(*fixtureOpts)) *fixture {
	t.Helper()

	o := fixtureOpts{policy: stock.PolicyReject}
	for _, opt := range opts {
		opt(&o)
	}

	store := memory.NewStore()
	f := &fixture{
		orders:    memory.NewOrderRepo(store),
		stockRepo: memory.NewStockRepo(store),
		catalog:   memory.NewCatalogRepo(store),
		outbox:    memory.NewOutboxPublisher(store),
		warehouse: id.New(),
		clock:     fixedNow,
	}
	now := func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}

	txm := memory.NewTxManager(store)
	f.ledger = stock.NewLedger(f.stockRepo, o.policy, stock.WithClock(now))

	engineOpts := []order.EngineOption{order.WithClock(now), order.WithPublisher(f.outbox)}
	if o.transitions != nil {
		engineOpts = append(engineOpts, order.WithPolicy(o.transitions))
	}
	f.engine = order.NewEngine(txm, f.orders, f.ledger, engineOpts...)
	f.svc = order.NewService(f.orders, f.engine, f.catalog, corenumerator.NewInMemory(), txm,
		order.Defaults{Currency: "USD"},
		order.WithServiceClock(now),
		order.WithServicePublisher(f.outbox),
	)

	f.product = catalog.Product{
		ID:       id.New(),
		SKU:      "MUG-01",
		Name:     "Mug",
		Price:    types.MustMoney("20.00"),
		Cost:     types.MustMoney("8.00"),
		IsActive: true,
	}
	f.catalog.SaveProduct(context.Background(), f.product)
	return f
}

func withNegativePolicy(p stock.NegativePolicy) func(*fixtureOpts) {
	return func(o *fixtureOpts) { o.policy = p }
}

func withTransitions(p order.TransitionPolicy) func(*fixtureOpts) {
	return func(o *fixtureOpts) { o.transitions = p }
}

func (f *fixture) key() stock.Key {
	return stock.Key{ProductID: f.product.ID, WarehouseID: f.warehouse}
}

func (f *fixture) stockUp(t *testing.T, qty int64) {
	t.Helper()
	unitCost := f.product.Cost
	_, err := f.ledger.Adjust(context.Background(), f.key(), qty, &unitCost,
		stock.AdjustmentReference{AdjustmentID: id.New()}, "opening balance", actor.System())
	require.NoError(t, err)
}

func (f *fixture) level(t *testing.T) stock.Level {
	t.Helper()
	l, err := f.stockRepo.GetLevel(context.Background(), f.key())
	require.NoError(t, err)
	return *l
}

func (f *fixture) orderMovements(t *testing.T, orderID id.ID) []stock.Movement {
	t.Helper()
	ms, err := f.stockRepo.ListMovements(context.Background(), stock.MovementFilter{
		Reference: stock.OrderReference{OrderID: orderID},
	})
	require.NoError(t, err)
	return ms
}

// createOrder places a pending retail order for qty mugs from the fixture warehouse.
func (f *fixture) createOrder(t *testing.T, qty int64) *order.Order {
	t.Helper()
	wh := f.warehouse
	o, err := f.svc.Create(context.Background(), order.CreateInput{
		Customer: order.GuestCustomer{Email: "ann@example.com", Name: "Ann"},
		Status:   order.StatusPending,
		Items: []order.ItemInput{
			{ProductID: f.product.ID, WarehouseID: &wh, Quantity: qty},
		},
	}, actor.System())
	require.NoError(t, err)
	return o
}
