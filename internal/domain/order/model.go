package order

import (
	"context"
	"strings"
	"time"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/stock"
)

// Order is the order aggregate: header, items, addresses, payments and notes.
type Order struct {
	ID       id.ID
	Number   string
	Kind     Kind
	Status   Status
	Currency string
	Customer Customer

	Subtotal       types.Money
	ShippingCost   types.Money
	TaxRate        *types.Money
	TaxAmount      types.Money
	DiscountAmount types.Money
	TotalAmount    types.Money

	// StockDeducted is true while the items' stock is out of the warehouse.
	StockDeducted bool

	OrderDate          time.Time
	ConfirmedAt        *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string

	Version   int
	CreatedBy *id.ID
	CreatedAt time.Time
	UpdatedAt time.Time

	Items     []Item
	Addresses []Address
	Payments  []Payment
	Notes     []Note
}

// Item is one order line. Snapshot freezes the product as it was when ordered.
type Item struct {
	ID          id.ID
	OrderID     id.ID
	LineNo      int
	ProductID   id.ID
	VariantID   *id.ID
	WarehouseID *id.ID
	ProductName string
	SKU         string
	Quantity    int64
	UnitPrice   types.Money
	UnitCost    types.Money
	TotalPrice  types.Money
	Snapshot    *catalog.Snapshot
}

// StockKey returns the ledger key for the item, or false when no warehouse is assigned.
func (it Item) StockKey() (stock.Key, bool) {
	if it.WarehouseID == nil {
		return stock.Key{}, false
	}
	return stock.Key{
		ProductID:   it.ProductID,
		VariantID:   it.VariantID,
		WarehouseID: *it.WarehouseID,
	}, true
}

// AddressType distinguishes billing from shipping addresses.
type AddressType string

const (
	AddressBilling  AddressType = "billing"
	AddressShipping AddressType = "shipping"
)

// Address is a postal address attached to an order.
type Address struct {
	ID         id.ID
	OrderID    id.ID
	Type       AddressType
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// PaymentMethod is how the order is paid.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCredit       PaymentMethod = "credit"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodEWallet      PaymentMethod = "e_wallet"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCredit, MethodCreditCard, MethodDebitCard, MethodEWallet:
		return true
	}
	return false
}

// PaymentStatus is the state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment is one payment record. Orders keep every record; the latest wins.
type Payment struct {
	ID        id.ID
	OrderID   id.ID
	Method    PaymentMethod
	Amount    types.Money
	Currency  string
	Status    PaymentStatus
	Reference string
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteType classifies order notes.
type NoteType string

const (
	NoteSystem   NoteType = "system"
	NoteCustomer NoteType = "customer"
	NoteInternal NoteType = "internal"
)

// Note is a timestamped remark on an order.
type Note struct {
	ID        id.ID
	OrderID   id.ID
	Type      NoteType
	Content   string
	UserID    *id.ID
	CreatedAt time.Time
}

func newNote(orderID id.ID, typ NoteType, content string, act actor.Actor, at time.Time) Note {
	return Note{
		ID:        id.New(),
		OrderID:   orderID,
		Type:      typ,
		Content:   content,
		UserID:    act.UserID,
		CreatedAt: at,
	}
}

// CurrentPayment returns the most recently created payment, or nil.
// Ties on CreatedAt go to the later element.
func (o *Order) CurrentPayment() *Payment {
	var latest *Payment
	for i := range o.Payments {
		p := &o.Payments[i]
		if latest == nil || !p.CreatedAt.Before(latest.CreatedAt) {
			latest = p
		}
	}
	return latest
}

// PaymentStatus returns the status of the current payment, or "" when there is none.
func (o *Order) PaymentStatus() PaymentStatus {
	if p := o.CurrentPayment(); p != nil {
		return p.Status
	}
	return ""
}

// RecalculateTotals recomputes line totals and order totals in place.
func (o *Order) RecalculateTotals() {
	lines := make([]LineAmount, len(o.Items))
	for i := range o.Items {
		o.Items[i].TotalPrice = o.Items[i].UnitPrice.Mul(types.MoneyFromInt(o.Items[i].Quantity))
		lines[i] = LineAmount{Quantity: o.Items[i].Quantity, UnitPrice: o.Items[i].UnitPrice}
	}

	shipping := o.ShippingCost
	discount := o.DiscountAmount
	totals := CalculateTotals(TotalsInput{
		Lines:    lines,
		Shipping: &shipping,
		TaxRate:  o.TaxRate,
		Discount: &discount,
	}).Rounded()

	o.Subtotal = totals.Subtotal
	o.TaxAmount = totals.Tax
	o.TotalAmount = totals.Total
}

// StockLines returns the ledger lines for items that have a warehouse.
func (o *Order) StockLines() []stock.Line {
	lines := make([]stock.Line, 0, len(o.Items))
	for _, it := range o.Items {
		key, ok := it.StockKey()
		if !ok {
			continue
		}
		lines = append(lines, stock.Line{Key: key, Quantity: it.Quantity, UnitCost: it.UnitCost})
	}
	return lines
}

// Validate checks the order before it is written. Errors name the offending field.
func (o *Order) Validate(_ context.Context) error {
	if o.Customer == nil {
		return apperror.NewValidation("exactly one of customer, guest or agent must be set").
			WithDetail("field", "customer")
	}
	if err := o.Customer.validate(); err != nil {
		return err
	}
	if o.Kind != o.Customer.Kind() {
		return apperror.NewValidation("customer does not match order kind").
			WithDetail("field", "customer").
			WithDetail("kind", o.Kind)
	}
	if !o.Status.Valid() {
		return apperror.NewInvalidStatus(string(o.Status))
	}
	if len(strings.TrimSpace(o.Currency)) != 3 {
		return apperror.NewValidation("currency must be a 3-letter code").WithDetail("field", "currency")
	}
	if o.ShippingCost.IsNegative() {
		return apperror.NewValidation("shipping cost must not be negative").WithDetail("field", "shippingCost")
	}
	if o.DiscountAmount.IsNegative() {
		return apperror.NewValidation("discount must not be negative").WithDetail("field", "discountAmount")
	}
	if o.TaxRate != nil && (o.TaxRate.IsNegative() || o.TaxRate.GreaterThan(types.MoneyFromInt(100))) {
		return apperror.NewValidation("tax rate must be between 0 and 100").WithDetail("field", "taxRate")
	}

	if len(o.Items) == 0 {
		return apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}
	for i, it := range o.Items {
		if id.IsNil(it.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if it.Quantity < 1 {
			return apperror.NewValidation("quantity must be at least 1").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if it.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if it.WarehouseID != nil && id.IsNil(*it.WarehouseID) {
			return apperror.NewValidation("warehouse is invalid").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}

	for i, addr := range o.Addresses {
		if addr.Type != AddressBilling && addr.Type != AddressShipping {
			return apperror.NewValidation("address type must be billing or shipping").
				WithDetail("field", "addresses").
				WithDetail("index", i)
		}
	}
	return nil
}

// clone copies the order deeply enough that mutating the copy leaves o untouched.
func (o *Order) clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.Addresses = append([]Address(nil), o.Addresses...)
	c.Payments = append([]Payment(nil), o.Payments...)
	c.Notes = append([]Note(nil), o.Notes...)
	return &c
}
