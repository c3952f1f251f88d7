package order_repo

import (
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/order"
	"backoffice/internal/infrastructure/storage/postgres"
)

// orderRow mirrors the orders table.
type orderRow struct {
	ID       id.ID  `db:"id"`
	Number   string `db:"number"`
	Kind     string `db:"kind"`
	Status   string `db:"status"`
	Currency string `db:"currency"`

	CustomerID *id.ID  `db:"customer_id"`
	AgentID    *id.ID  `db:"agent_id"`
	GuestEmail *string `db:"guest_email"`
	GuestName  *string `db:"guest_name"`
	GuestPhone *string `db:"guest_phone"`

	Subtotal       types.Money  `db:"subtotal"`
	ShippingCost   types.Money  `db:"shipping_cost"`
	TaxRate        *types.Money `db:"tax_rate"`
	TaxAmount      types.Money  `db:"tax_amount"`
	DiscountAmount types.Money  `db:"discount_amount"`
	TotalAmount    types.Money  `db:"total_amount"`

	// NULL on rows written before the flag existed.
	StockDeducted *bool `db:"stock_deducted"`

	OrderDate          time.Time  `db:"order_date"`
	ConfirmedAt        *time.Time `db:"confirmed_at"`
	ShippedAt          *time.Time `db:"shipped_at"`
	DeliveredAt        *time.Time `db:"delivered_at"`
	CancelledAt        *time.Time `db:"cancelled_at"`
	CancellationReason *string    `db:"cancellation_reason"`

	Version   int       `db:"version"`
	CreatedBy *id.ID    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

var orderColumns = postgres.ExtractDBColumns[orderRow]()

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toOrderRow(o *order.Order) orderRow {
	fields := order.Flatten(o.Customer)
	deducted := o.StockDeducted
	return orderRow{
		ID:                 o.ID,
		Number:             o.Number,
		Kind:               string(o.Kind),
		Status:             string(o.Status),
		Currency:           o.Currency,
		CustomerID:         fields.CustomerID,
		AgentID:            fields.AgentID,
		GuestEmail:         nullString(fields.GuestEmail),
		GuestName:          nullString(fields.GuestName),
		GuestPhone:         nullString(fields.GuestPhone),
		Subtotal:           o.Subtotal,
		ShippingCost:       o.ShippingCost,
		TaxRate:            o.TaxRate,
		TaxAmount:          o.TaxAmount,
		DiscountAmount:     o.DiscountAmount,
		TotalAmount:        o.TotalAmount,
		StockDeducted:      &deducted,
		OrderDate:          o.OrderDate,
		ConfirmedAt:        o.ConfirmedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
		CancellationReason: nullString(o.CancellationReason),
		Version:            o.Version,
		CreatedBy:          o.CreatedBy,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func (r orderRow) toDomain() (*order.Order, error) {
	customer, err := order.CustomerFields{
		CustomerID: r.CustomerID,
		AgentID:    r.AgentID,
		GuestEmail: deref(r.GuestEmail),
		GuestName:  deref(r.GuestName),
		GuestPhone: deref(r.GuestPhone),
	}.Customer()
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", r.Number, err)
	}

	status := order.Status(r.Status)
	deducted := order.DeductedIn(status)
	if r.StockDeducted != nil {
		deducted = *r.StockDeducted
	}

	return &order.Order{
		ID:                 r.ID,
		Number:             r.Number,
		Kind:               order.Kind(r.Kind),
		Status:             status,
		Currency:           r.Currency,
		Customer:           customer,
		Subtotal:           r.Subtotal,
		ShippingCost:       r.ShippingCost,
		TaxRate:            r.TaxRate,
		TaxAmount:          r.TaxAmount,
		DiscountAmount:     r.DiscountAmount,
		TotalAmount:        r.TotalAmount,
		StockDeducted:      deducted,
		OrderDate:          r.OrderDate,
		ConfirmedAt:        r.ConfirmedAt,
		ShippedAt:          r.ShippedAt,
		DeliveredAt:        r.DeliveredAt,
		CancelledAt:        r.CancelledAt,
		CancellationReason: deref(r.CancellationReason),
		Version:            r.Version,
		CreatedBy:          r.CreatedBy,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

// itemRow mirrors order_items. The catalog snapshot is stored as jsonb, or
// as zstd bytes once it grows past the codec threshold.
type itemRow struct {
	ID                  id.ID           `db:"id"`
	OrderID             id.ID           `db:"order_id"`
	LineNo              int             `db:"line_no"`
	ProductID           id.ID           `db:"product_id"`
	VariantID           *id.ID          `db:"variant_id"`
	WarehouseID         *id.ID          `db:"warehouse_id"`
	ProductName         string          `db:"product_name"`
	SKU                 string          `db:"sku"`
	Quantity            int64           `db:"quantity"`
	UnitPrice           types.Money     `db:"unit_price"`
	UnitCost            types.Money     `db:"unit_cost"`
	TotalPrice          types.Money     `db:"total_price"`
	Snapshot            json.RawMessage `db:"snapshot"`
	SnapshotCompressed  []byte          `db:"snapshot_compressed"`
	SnapshotCompression *string         `db:"snapshot_compression"`
}

var itemColumns = postgres.ExtractDBColumns[itemRow]()

func toItemRow(codec *postgres.SnapshotCodec, it order.Item) (itemRow, error) {
	row := itemRow{
		ID:          it.ID,
		OrderID:     it.OrderID,
		LineNo:      it.LineNo,
		ProductID:   it.ProductID,
		VariantID:   it.VariantID,
		WarehouseID: it.WarehouseID,
		ProductName: it.ProductName,
		SKU:         it.SKU,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		UnitCost:    it.UnitCost,
		TotalPrice:  it.TotalPrice,
	}
	if it.Snapshot == nil {
		return row, nil
	}

	raw, compressed, algo, err := codec.Encode(it.Snapshot)
	if err != nil {
		return row, fmt.Errorf("line %d: %w", it.LineNo, err)
	}
	row.Snapshot = raw
	row.SnapshotCompressed = compressed
	a := string(algo)
	row.SnapshotCompression = &a
	return row, nil
}

func (r itemRow) values() []any {
	return []any{
		r.ID, r.OrderID, r.LineNo, r.ProductID, r.VariantID, r.WarehouseID,
		r.ProductName, r.SKU, r.Quantity, r.UnitPrice, r.UnitCost, r.TotalPrice,
		r.Snapshot, r.SnapshotCompressed, r.SnapshotCompression,
	}
}

func (r itemRow) toDomain(codec *postgres.SnapshotCodec) (order.Item, error) {
	it := order.Item{
		ID:          r.ID,
		OrderID:     r.OrderID,
		LineNo:      r.LineNo,
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		WarehouseID: r.WarehouseID,
		ProductName: r.ProductName,
		SKU:         r.SKU,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		UnitCost:    r.UnitCost,
		TotalPrice:  r.TotalPrice,
	}

	algo := postgres.CompressionNone
	if r.SnapshotCompression != nil {
		algo = postgres.CompressionAlgo(*r.SnapshotCompression)
	}
	var snap catalog.Snapshot
	ok, err := codec.Decode(r.Snapshot, r.SnapshotCompressed, algo, &snap)
	if err != nil {
		return it, fmt.Errorf("line %d: %w", r.LineNo, err)
	}
	if ok {
		it.Snapshot = &snap
	}
	return it, nil
}

type addressRow struct {
	ID         id.ID   `db:"id"`
	OrderID    id.ID   `db:"order_id"`
	Type       string  `db:"type"`
	Name       string  `db:"name"`
	Phone      *string `db:"phone"`
	Line1      string  `db:"line1"`
	Line2      *string `db:"line2"`
	City       string  `db:"city"`
	State      *string `db:"state"`
	PostalCode *string `db:"postal_code"`
	Country    string  `db:"country"`
}

var addressColumns = postgres.ExtractDBColumns[addressRow]()

func toAddressRow(a order.Address) addressRow {
	return addressRow{
		ID:         a.ID,
		OrderID:    a.OrderID,
		Type:       string(a.Type),
		Name:       a.Name,
		Phone:      nullString(a.Phone),
		Line1:      a.Line1,
		Line2:      nullString(a.Line2),
		City:       a.City,
		State:      nullString(a.State),
		PostalCode: nullString(a.PostalCode),
		Country:    a.Country,
	}
}

func (r addressRow) toDomain() order.Address {
	return order.Address{
		ID:         r.ID,
		OrderID:    r.OrderID,
		Type:       order.AddressType(r.Type),
		Name:       r.Name,
		Phone:      deref(r.Phone),
		Line1:      r.Line1,
		Line2:      deref(r.Line2),
		City:       r.City,
		State:      deref(r.State),
		PostalCode: deref(r.PostalCode),
		Country:    r.Country,
	}
}

type paymentRow struct {
	ID        id.ID       `db:"id"`
	OrderID   id.ID       `db:"order_id"`
	Method    string      `db:"method"`
	Amount    types.Money `db:"amount"`
	Currency  string      `db:"currency"`
	Status    string      `db:"status"`
	Reference *string     `db:"reference"`
	PaidAt    *time.Time  `db:"paid_at"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

var paymentColumns = postgres.ExtractDBColumns[paymentRow]()

func toPaymentRow(p order.Payment) paymentRow {
	return paymentRow{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Method:    string(p.Method),
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    string(p.Status),
		Reference: nullString(p.Reference),
		PaidAt:    p.PaidAt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r paymentRow) toDomain() order.Payment {
	return order.Payment{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Method:    order.PaymentMethod(r.Method),
		Amount:    r.Amount,
		Currency:  r.Currency,
		Status:    order.PaymentStatus(r.Status),
		Reference: deref(r.Reference),
		PaidAt:    r.PaidAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type noteRow struct {
	ID        id.ID     `db:"id"`
	OrderID   id.ID     `db:"order_id"`
	Type      string    `db:"type"`
	Content   string    `db:"content"`
	UserID    *id.ID    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

var noteColumns = postgres.ExtractDBColumns[noteRow]()

func toNoteRow(n order.Note) noteRow {
	return noteRow{
		ID:        n.ID,
		OrderID:   n.OrderID,
		Type:      string(n.Type),
		Content:   n.Content,
		UserID:    n.UserID,
		CreatedAt: n.CreatedAt,
	}
}

func (r noteRow) toDomain() order.Note {
	return order.Note{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Type:      order.NoteType(r.Type),
		Content:   r.Content,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
	}
}
