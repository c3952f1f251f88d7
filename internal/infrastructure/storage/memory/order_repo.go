package memory

import (
	"context"
	"sort"
	"strings"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/order"
)

// OrderRepo implements order.Repository.
type OrderRepo struct {
	store *Store
}

// NewOrderRepo creates an order repository over store.
func NewOrderRepo(store *Store) *OrderRepo {
	return &OrderRepo{store: store}
}

var _ order.Repository = (*OrderRepo)(nil)

// Create implements order.Repository.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	defer r.store.lock(ctx)()

	if _, ok := r.store.data.orders[o.ID]; ok {
		return apperror.NewDuplicate("order", "id", o.ID.String())
	}
	if _, ok := r.store.data.numbers[o.Number]; ok {
		return apperror.NewDuplicate("order", "number", o.Number)
	}
	r.store.data.orders[o.ID] = cloneOrder(*o)
	r.store.data.numbers[o.Number] = o.ID
	return nil
}

// Update implements order.Repository.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.data.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("order", o.ID)
	}
	if stored.Version != o.Version {
		return apperror.NewConcurrentModification("order", o.ID)
	}

	o.Version++
	header := cloneOrder(*o)
	header.Items = stored.Items
	header.Addresses = stored.Addresses
	header.Payments = stored.Payments
	header.Notes = stored.Notes
	header.Number = stored.Number
	r.store.data.orders[o.ID] = header
	return nil
}

// ReplaceItems implements order.Repository.
func (r *OrderRepo) ReplaceItems(ctx context.Context, orderID id.ID, items []order.Item) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.data.orders[orderID]
	if !ok {
		return apperror.NewNotFound("order", orderID)
	}
	stored.Items = append([]order.Item(nil), items...)
	r.store.data.orders[orderID] = stored
	return nil
}

// ReplaceAddresses implements order.Repository.
func (r *OrderRepo) ReplaceAddresses(ctx context.Context, orderID id.ID, addresses []order.Address) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.data.orders[orderID]
	if !ok {
		return apperror.NewNotFound("order", orderID)
	}
	stored.Addresses = append([]order.Address(nil), addresses...)
	r.store.data.orders[orderID] = stored
	return nil
}

// GetByID implements order.Repository.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	defer r.store.lock(ctx)()

	stored, ok := r.store.data.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	o := cloneOrder(stored)
	return &o, nil
}

// GetByNumber implements order.Repository.
func (r *OrderRepo) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	defer r.store.lock(ctx)()

	orderID, ok := r.store.data.numbers[number]
	if !ok {
		return nil, apperror.NewNotFound("order", number)
	}
	o := cloneOrder(r.store.data.orders[orderID])
	return &o, nil
}

// List implements order.Repository. Newest orders come first.
func (r *OrderRepo) List(ctx context.Context, filter order.ListFilter) (*order.ListResult, error) {
	defer r.store.lock(ctx)()

	matched := make([]order.Order, 0)
	for _, o := range r.store.data.orders {
		if !matches(o, filter) {
			continue
		}
		o.Items, o.Addresses, o.Payments, o.Notes = nil, nil, nil, nil
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].OrderDate.Equal(matched[j].OrderDate) {
			return matched[i].OrderDate.After(matched[j].OrderDate)
		}
		return matched[i].Number > matched[j].Number
	})

	result := &order.ListResult{
		TotalCount: len(matched),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	result.Items = page(matched, filter.Limit, filter.Offset)
	return result, nil
}

func matches(o order.Order, f order.ListFilter) bool {
	if f.Kind != nil && o.Kind != *f.Kind {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.DateFrom != nil && o.OrderDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.OrderDate.After(*f.DateTo) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(o.Number), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// AddNote implements order.Repository.
func (r *OrderRepo) AddNote(ctx context.Context, note order.Note) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.data.orders[note.OrderID]
	if !ok {
		return apperror.NewNotFound("order", note.OrderID)
	}
	stored.Notes = append(stored.Notes, note)
	r.store.data.orders[note.OrderID] = stored
	return nil
}

// CreatePayment implements order.Repository.
func (r *OrderRepo) CreatePayment(ctx context.Context, p order.Payment) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.data.orders[p.OrderID]
	if !ok {
		return apperror.NewNotFound("order", p.OrderID)
	}
	stored.Payments = append(stored.Payments, p)
	r.store.data.orders[p.OrderID] = stored
	return nil
}

// UpdatePayment implements order.Repository.
func (r *OrderRepo) UpdatePayment(ctx context.Context, p order.Payment) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.data.orders[p.OrderID]
	if !ok {
		return apperror.NewNotFound("order", p.OrderID)
	}
	for i := range stored.Payments {
		if stored.Payments[i].ID == p.ID {
			stored.Payments[i] = p
			r.store.data.orders[p.OrderID] = stored
			return nil
		}
	}
	return apperror.NewNotFound("payment", p.ID)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
