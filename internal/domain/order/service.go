package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/events"
	"backoffice/internal/core/id"
	corenumerator "backoffice/internal/core/numerator"
	"backoffice/internal/core/tx"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalog"
	"backoffice/pkg/logger"
)

// Defaults are applied to new orders that leave the fields empty.
type Defaults struct {
	Currency string
	TaxRate  *types.Money
	// NumberOptions selects the numbering strategy. Nil means strict.
	NumberOptions *corenumerator.Options
}

// ItemInput is one requested order line. A nil UnitPrice takes the catalog price.
type ItemInput struct {
	ProductID   id.ID
	VariantID   *id.ID
	WarehouseID *id.ID
	Quantity    int64
	UnitPrice   *types.Money
}

// CreateInput is the data for a new order.
type CreateInput struct {
	Customer     Customer
	Status       Status
	Currency     string
	ShippingCost *types.Money
	TaxRate      *types.Money
	Discount     *types.Money
	OrderDate    *time.Time
	Items        []ItemInput
	Addresses    []Address
	Note         string
}

// UpdateInput is an edit of header fields and items. Items always replace
// the existing lines; a nil Addresses leaves addresses untouched.
type UpdateInput struct {
	Customer     Customer
	Currency     string
	ShippingCost *types.Money
	TaxRate      *types.Money
	Discount     *types.Money
	Items        []ItemInput
	Addresses    []Address
}

// Service is the application facade over the order aggregate.
type Service struct {
	repo      Repository
	engine    *Engine
	catalog   catalog.Repository
	numerator corenumerator.Generator
	txManager tx.Manager
	publisher events.Publisher
	defaults  Defaults
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithServicePublisher sets the outbox publisher for create and update events.
func WithServicePublisher(p events.Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a new order service.
func NewService(
	repo Repository,
	engine *Engine,
	catalogRepo catalog.Repository,
	numerator corenumerator.Generator,
	txManager tx.Manager,
	defaults Defaults,
	opts ...ServiceOption,
) *Service {
	if defaults.Currency == "" {
		defaults.Currency = "USD"
	}
	s := &Service{
		repo:      repo,
		engine:    engine,
		catalog:   catalogRepo,
		numerator: numerator,
		txManager: txManager,
		publisher: events.Discard{},
		defaults:  defaults,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new order in draft (or pending when asked).
func (s *Service) Create(ctx context.Context, in CreateInput, act actor.Actor) (*Order, error) {
	if in.Customer == nil {
		return nil, apperror.NewValidation("exactly one of customer, guest or agent must be set").
			WithDetail("field", "customer")
	}

	status := in.Status
	if status == "" {
		status = StatusDraft
	}
	if status != StatusDraft && status != StatusPending {
		return nil, apperror.NewValidation("new orders start as draft or pending").
			WithDetail("field", "status").
			WithDetail("value", status)
	}

	now := s.now()
	orderDate := now
	if in.OrderDate != nil {
		orderDate = in.OrderDate.UTC()
	}

	o := &Order{
		ID:             id.New(),
		Kind:           in.Customer.Kind(),
		Status:         status,
		Currency:       s.currency(in.Currency),
		Customer:       in.Customer,
		ShippingCost:   types.Round(types.OrZero(in.ShippingCost)),
		TaxRate:        s.taxRate(in.TaxRate),
		DiscountAmount: types.Round(types.OrZero(in.Discount)),
		OrderDate:      orderDate,
		Version:        1,
		CreatedBy:      act.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Addresses:      in.Addresses,
	}

	items, err := s.buildItems(ctx, o.ID, in.Items, now)
	if err != nil {
		return nil, err
	}
	o.Items = items
	o.RecalculateTotals()
	s.bindAddresses(o.ID, o.Addresses)

	if err := o.Validate(ctx); err != nil {
		return nil, err
	}

	// Numbers are allocated before the transaction; a rolled back create leaves a gap.
	number, err := s.numerator.GetNextNumber(ctx, corenumerator.DefaultConfig(o.Kind.NumberPrefix()), s.defaults.NumberOptions, orderDate)
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}
	o.Number = number

	o.Notes = append(o.Notes, newNote(o.ID, NoteSystem, "Order created", act, now))
	if strings.TrimSpace(in.Note) != "" {
		o.Notes = append(o.Notes, newNote(o.ID, NoteCustomer, strings.TrimSpace(in.Note), act, now))
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.publisher.Publish(ctx, orderEvent(o, EventCreated, s.payload(o, act)))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", o.ID,
		"number", o.Number,
		"kind", o.Kind,
		"total", types.FormatMoney(o.TotalAmount),
		"actor", act.String(),
	)
	return o, nil
}

// Update edits header fields and replaces items. Orders whose stock is
// out of the warehouse cannot be edited.
func (s *Service) Update(ctx context.Context, orderID id.ID, kind Kind, in UpdateInput, act actor.Actor) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.get(ctx, orderID, kind)
		if err != nil {
			return err
		}
		if o.StockDeducted {
			return apperror.NewOrderLocked(o.ID, string(o.Status))
		}

		now := s.now()
		if in.Customer != nil {
			o.Customer = in.Customer
		}
		if in.Currency != "" {
			o.Currency = strings.ToUpper(in.Currency)
		}
		if in.ShippingCost != nil {
			o.ShippingCost = types.Round(*in.ShippingCost)
		}
		if in.TaxRate != nil {
			o.TaxRate = in.TaxRate
		}
		if in.Discount != nil {
			o.DiscountAmount = types.Round(*in.Discount)
		}

		items, err := s.buildItems(ctx, o.ID, in.Items, now)
		if err != nil {
			return err
		}
		o.Items = items
		if in.Addresses != nil {
			o.Addresses = in.Addresses
			s.bindAddresses(o.ID, o.Addresses)
		}
		o.RecalculateTotals()
		o.UpdatedAt = now

		if err := o.Validate(ctx); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		if err := s.repo.ReplaceItems(ctx, o.ID, o.Items); err != nil {
			return fmt.Errorf("replace order items: %w", err)
		}
		if in.Addresses != nil {
			if err := s.repo.ReplaceAddresses(ctx, o.ID, o.Addresses); err != nil {
				return fmt.Errorf("replace order addresses: %w", err)
			}
		}

		note := newNote(o.ID, NoteSystem, "Order updated", act, now)
		if err := s.repo.AddNote(ctx, note); err != nil {
			return fmt.Errorf("add update note: %w", err)
		}
		o.Notes = append(o.Notes, note)

		result = o
		return s.publisher.Publish(ctx, orderEvent(o, EventUpdated, s.payload(o, act)))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order updated",
		"order_id", result.ID,
		"number", result.Number,
		"items", len(result.Items),
		"total", types.FormatMoney(result.TotalAmount),
		"actor", act.String(),
	)
	return result, nil
}

// Get loads an order of the given kind. Orders of the other kind are NOT_FOUND.
func (s *Service) Get(ctx context.Context, orderID id.ID, kind Kind) (*Order, error) {
	return s.get(ctx, orderID, kind)
}

// GetByNumber loads an order of the given kind by number.
func (s *Service) GetByNumber(ctx context.Context, number string, kind Kind) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.Kind != kind {
		return nil, apperror.NewNotFound("order", number)
	}
	return o, nil
}

// List returns a page of order headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperror.NewInvalidStatus(string(*filter.Status))
	}

	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return result, nil
}

// AddNote appends a customer or internal note.
func (s *Service) AddNote(ctx context.Context, orderID id.ID, kind Kind, typ NoteType, content string, act actor.Actor) (*Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.NewValidation("note content is required").WithDetail("field", "content")
	}
	if typ == "" {
		typ = NoteInternal
	}
	if typ != NoteCustomer && typ != NoteInternal {
		return nil, apperror.NewValidation("note type must be customer or internal").
			WithDetail("field", "type").
			WithDetail("value", typ)
	}

	var note Note
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.get(ctx, orderID, kind)
		if err != nil {
			return err
		}
		note = newNote(o.ID, typ, content, act, s.now())
		return s.repo.AddNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// Transition loads the order and moves it to next.
func (s *Service) Transition(ctx context.Context, orderID id.ID, kind Kind, next Status, act actor.Actor) (*Order, error) {
	return s.withOrder(ctx, orderID, kind, func(ctx context.Context, o *Order) error {
		return s.engine.Transition(ctx, o, next, act)
	})
}

// Confirm marks the order confirmed.
func (s *Service) Confirm(ctx context.Context, orderID id.ID, kind Kind, act actor.Actor) (*Order, error) {
	return s.withOrder(ctx, orderID, kind, func(ctx context.Context, o *Order) error {
		return s.engine.MarkAsConfirmed(ctx, o, act)
	})
}

// Process marks the order processing, deducting stock.
func (s *Service) Process(ctx context.Context, orderID id.ID, kind Kind, act actor.Actor) (*Order, error) {
	return s.withOrder(ctx, orderID, kind, func(ctx context.Context, o *Order) error {
		return s.engine.MarkAsProcessing(ctx, o, act)
	})
}

// Ship marks the order shipped.
func (s *Service) Ship(ctx context.Context, orderID id.ID, kind Kind, act actor.Actor) (*Order, error) {
	return s.withOrder(ctx, orderID, kind, func(ctx context.Context, o *Order) error {
		return s.engine.MarkAsShipped(ctx, o, act)
	})
}

// Deliver marks the order delivered.
func (s *Service) Deliver(ctx context.Context, orderID id.ID, kind Kind, act actor.Actor) (*Order, error) {
	return s.withOrder(ctx, orderID, kind, func(ctx context.Context, o *Order) error {
		return s.engine.MarkAsDelivered(ctx, o, act)
	})
}

// Cancel marks the order cancelled with reason.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, kind Kind, reason string, act actor.Actor) (*Order, error) {
	return s.withOrder(ctx, orderID, kind, func(ctx context.Context, o *Order) error {
		return s.engine.MarkAsCancelled(ctx, o, strings.TrimSpace(reason), act)
	})
}

// UpdatePayment changes the status of the order's current payment.
func (s *Service) UpdatePayment(ctx context.Context, orderID id.ID, kind Kind, u PaymentUpdate, act actor.Actor) (*Order, error) {
	return s.withOrder(ctx, orderID, kind, func(ctx context.Context, o *Order) error {
		return s.engine.UpdatePaymentStatus(ctx, o, u, act)
	})
}

// PreviewTotals runs the totals calculator with the default tax rate applied
// when none is given, rounded the same way Create stores them. Nothing is stored.
func (s *Service) PreviewTotals(in TotalsInput) Totals {
	if in.TaxRate == nil {
		in.TaxRate = s.defaults.TaxRate
	}
	return CalculateTotals(in).Rounded()
}

func (s *Service) withOrder(ctx context.Context, orderID id.ID, kind Kind, fn func(ctx context.Context, o *Order) error) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.get(ctx, orderID, kind)
		if err != nil {
			return err
		}
		if err := fn(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) get(ctx context.Context, orderID id.ID, kind Kind) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Kind != kind {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return o, nil
}

// buildItems resolves catalog data for every line and freezes a snapshot.
func (s *Service) buildItems(ctx context.Context, orderID id.ID, inputs []ItemInput, now time.Time) ([]Item, error) {
	if len(inputs) == 0 {
		return nil, apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}

	items := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		lineNo := i + 1
		if id.IsNil(in.ProductID) {
			return nil, apperror.NewValidation("product is required").
				WithDetail("field", "items").
				WithDetail("lineNo", lineNo)
		}
		if in.Quantity < 1 {
			return nil, apperror.NewValidation("quantity must be at least 1").
				WithDetail("field", "items").
				WithDetail("lineNo", lineNo)
		}

		product, err := s.catalog.GetProduct(ctx, in.ProductID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewValidation("product not found").
					WithDetail("field", "items").
					WithDetail("lineNo", lineNo)
			}
			return nil, fmt.Errorf("load product: %w", err)
		}
		if !product.IsActive {
			return nil, apperror.NewValidation("product is not active").
				WithDetail("field", "items").
				WithDetail("lineNo", lineNo)
		}

		var variant *catalog.Variant
		if in.VariantID != nil {
			variant, err = s.catalog.GetVariant(ctx, *in.VariantID)
			if err != nil {
				if apperror.IsNotFound(err) {
					return nil, apperror.NewValidation("variant not found").
						WithDetail("field", "items").
						WithDetail("lineNo", lineNo)
				}
				return nil, fmt.Errorf("load variant: %w", err)
			}
			if variant.ProductID != product.ID {
				return nil, apperror.NewValidation("variant does not belong to product").
					WithDetail("field", "items").
					WithDetail("lineNo", lineNo)
			}
		}

		snap := catalog.TakeSnapshot(product, variant, now)
		price := snap.Price
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}

		items = append(items, Item{
			ID:          id.New(),
			OrderID:     orderID,
			LineNo:      lineNo,
			ProductID:   in.ProductID,
			VariantID:   in.VariantID,
			WarehouseID: in.WarehouseID,
			ProductName: snap.DisplayName(),
			SKU:         snap.SKU,
			Quantity:    in.Quantity,
			UnitPrice:   types.Round(price),
			UnitCost:    types.Round(snap.Cost),
			Snapshot:    &snap,
		})
	}
	return items, nil
}

func (s *Service) bindAddresses(orderID id.ID, addresses []Address) {
	for i := range addresses {
		if id.IsNil(addresses[i].ID) {
			addresses[i].ID = id.New()
		}
		addresses[i].OrderID = orderID
	}
}

func (s *Service) currency(c string) string {
	if c == "" {
		return s.defaults.Currency
	}
	return strings.ToUpper(c)
}

func (s *Service) taxRate(rate *types.Money) *types.Money {
	if rate != nil {
		return rate
	}
	return s.defaults.TaxRate
}

func (s *Service) payload(o *Order, act actor.Actor) OrderPayload {
	return OrderPayload{
		Number:      o.Number,
		Kind:        o.Kind,
		Status:      o.Status,
		TotalAmount: types.FormatMoney(o.TotalAmount),
		Currency:    o.Currency,
		ItemCount:   len(o.Items),
		Actor:       act.String(),
	}
}
