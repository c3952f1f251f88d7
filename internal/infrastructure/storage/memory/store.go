// Package memory is an in-process store implementing the repository
// contracts. A transaction holds the store lock and restores a snapshot of
// the whole state on rollback, so it is serializable by construction.
package memory

import (
	"context"
	"sync"

	"backoffice/internal/core/events"
	"backoffice/internal/core/id"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/stock"
)

type state struct {
	orders    map[id.ID]order.Order
	numbers   map[string]id.ID
	levels    map[string]stock.Level
	movements []stock.Movement
	products  map[id.ID]catalog.Product
	variants  map[id.ID]catalog.Variant
	outbox    []events.Message
}

func newState() state {
	return state{
		orders:   make(map[id.ID]order.Order),
		numbers:  make(map[string]id.ID),
		levels:   make(map[string]stock.Level),
		products: make(map[id.ID]catalog.Product),
		variants: make(map[id.ID]catalog.Variant),
	}
}

func (s state) copy() state {
	c := state{
		orders:    make(map[id.ID]order.Order, len(s.orders)),
		numbers:   make(map[string]id.ID, len(s.numbers)),
		levels:    make(map[string]stock.Level, len(s.levels)),
		movements: append([]stock.Movement(nil), s.movements...),
		products:  make(map[id.ID]catalog.Product, len(s.products)),
		variants:  make(map[id.ID]catalog.Variant, len(s.variants)),
		outbox:    append([]events.Message(nil), s.outbox...),
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.numbers {
		c.numbers[k] = v
	}
	for k, v := range s.levels {
		c.levels[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	return c
}

func cloneOrder(o order.Order) order.Order {
	o.Items = append([]order.Item(nil), o.Items...)
	o.Addresses = append([]order.Address(nil), o.Addresses...)
	o.Payments = append([]order.Payment(nil), o.Payments...)
	o.Notes = append([]order.Note(nil), o.Notes...)
	return o
}

// Store holds all data. Use the repository constructors to access it.
type Store struct {
	mu   sync.Mutex
	data state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// lock takes the store lock unless ctx already runs inside a transaction.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// TxManager implements tx.Manager over a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction runs fn holding the store lock. Nested calls join the
// outer transaction. An error restores the state from before fn.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snapshot := m.store.data.copy()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.data = snapshot
		return err
	}
	return nil
}

// ReadOnly runs fn under the store lock without snapshotting.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
