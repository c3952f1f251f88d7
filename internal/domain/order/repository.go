package order

import (
	"context"
	"time"

	"backoffice/internal/core/id"
)

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	Kind     *Kind
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
	// Search matches a substring of the order number.
	Search string
	Limit  int
	Offset int
}

// ListResult is one page of order headers.
type ListResult struct {
	Items      []Order
	TotalCount int
	Limit      int
	Offset     int
}

// Repository defines persistence for the order aggregate.
// Methods called inside a transaction participate in it.
type Repository interface {
	// Create inserts the header and every child collection.
	Create(ctx context.Context, o *Order) error

	// Update writes header fields when the stored version equals o.Version,
	// then increments o.Version. A stale version yields CONCURRENT_MODIFICATION.
	Update(ctx context.Context, o *Order) error

	// ReplaceItems deletes the order's items and inserts items.
	ReplaceItems(ctx context.Context, orderID id.ID, items []Item) error

	// ReplaceAddresses deletes the order's addresses and inserts addresses.
	ReplaceAddresses(ctx context.Context, orderID id.ID, addresses []Address) error

	// GetByID loads the full aggregate or returns NOT_FOUND.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// GetByNumber loads the full aggregate by its human-readable number.
	GetByNumber(ctx context.Context, number string) (*Order, error)

	// List returns order headers without child collections.
	List(ctx context.Context, filter ListFilter) (*ListResult, error)

	AddNote(ctx context.Context, note Note) error
	CreatePayment(ctx context.Context, p Payment) error
	UpdatePayment(ctx context.Context, p Payment) error
}
