package dto

import (
	"time"

	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/order"
)

// --- Request DTOs ---

// CustomerRequest names who the order is for. Exactly one of customerId,
// agentId or the guest fields must be set.
type CustomerRequest struct {
	CustomerID *string `json:"customerId,omitempty"`
	AgentID    *string `json:"agentId,omitempty"`
	GuestEmail string  `json:"guestEmail,omitempty"`
	GuestName  string  `json:"guestName,omitempty"`
	GuestPhone string  `json:"guestPhone,omitempty"`
}

func (r CustomerRequest) toCustomer() (order.Customer, error) {
	customerID, err := parseOptionalID("customerId", r.CustomerID)
	if err != nil {
		return nil, err
	}
	agentID, err := parseOptionalID("agentId", r.AgentID)
	if err != nil {
		return nil, err
	}
	return order.CustomerFields{
		CustomerID: customerID,
		AgentID:    agentID,
		GuestEmail: r.GuestEmail,
		GuestName:  r.GuestName,
		GuestPhone: r.GuestPhone,
	}.Customer()
}

type OrderItemRequest struct {
	ProductID   string       `json:"productId" binding:"required"`
	VariantID   *string      `json:"variantId,omitempty"`
	WarehouseID *string      `json:"warehouseId,omitempty"`
	Quantity    int64        `json:"quantity"`
	UnitPrice   *types.Money `json:"unitPrice,omitempty"`
}

func (r OrderItemRequest) toInput() (order.ItemInput, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return order.ItemInput{}, err
	}
	variantID, err := parseOptionalID("variantId", r.VariantID)
	if err != nil {
		return order.ItemInput{}, err
	}
	warehouseID, err := parseOptionalID("warehouseId", r.WarehouseID)
	if err != nil {
		return order.ItemInput{}, err
	}
	return order.ItemInput{
		ProductID:   productID,
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
	}, nil
}

func (r CustomerRequest) empty() bool {
	return r.CustomerID == nil && r.AgentID == nil && r.GuestEmail == "" && r.GuestName == ""
}

func itemInputs(items []OrderItemRequest) ([]order.ItemInput, error) {
	inputs := make([]order.ItemInput, 0, len(items))
	for _, it := range items {
		in, err := it.toInput()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

type AddressRequest struct {
	Type       string `json:"type" binding:"required,oneof=billing shipping"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (r AddressRequest) toAddress() order.Address {
	return order.Address{
		Type:       order.AddressType(r.Type),
		Name:       r.Name,
		Phone:      r.Phone,
		Line1:      r.Line1,
		Line2:      r.Line2,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
	}
}

// addresses keeps nil as nil so updates can leave addresses untouched.
func addresses(in []AddressRequest) []order.Address {
	if in == nil {
		return nil
	}
	out := make([]order.Address, 0, len(in))
	for _, a := range in {
		out = append(out, a.toAddress())
	}
	return out
}

type CreateOrderRequest struct {
	CustomerRequest
	Status       string             `json:"status,omitempty"`
	Currency     string             `json:"currency,omitempty"`
	ShippingCost *types.Money       `json:"shippingCost,omitempty"`
	TaxRate      *types.Money       `json:"taxRate,omitempty"`
	Discount     *types.Money       `json:"discountAmount,omitempty"`
	OrderDate    *time.Time         `json:"orderDate,omitempty"`
	Items        []OrderItemRequest `json:"items" binding:"dive"`
	Addresses    []AddressRequest   `json:"addresses,omitempty" binding:"dive"`
	Note         string             `json:"note,omitempty"`
}

// ToInput converts the request into service input.
func (r *CreateOrderRequest) ToInput() (order.CreateInput, error) {
	customer, err := r.toCustomer()
	if err != nil {
		return order.CreateInput{}, err
	}
	items, err := itemInputs(r.Items)
	if err != nil {
		return order.CreateInput{}, err
	}

	in := order.CreateInput{
		Customer:     customer,
		Currency:     r.Currency,
		ShippingCost: r.ShippingCost,
		TaxRate:      r.TaxRate,
		Discount:     r.Discount,
		OrderDate:    r.OrderDate,
		Items:        items,
		Addresses:    addresses(r.Addresses),
		Note:         r.Note,
	}
	if r.Status != "" {
		status, err := order.ParseStatus(r.Status)
		if err != nil {
			return order.CreateInput{}, err
		}
		in.Status = status
	}
	return in, nil
}

type UpdateOrderRequest struct {
	CustomerRequest
	Currency     string             `json:"currency,omitempty"`
	ShippingCost *types.Money       `json:"shippingCost,omitempty"`
	TaxRate      *types.Money       `json:"taxRate,omitempty"`
	Discount     *types.Money       `json:"discountAmount,omitempty"`
	Items        []OrderItemRequest `json:"items" binding:"dive"`
	Addresses    []AddressRequest   `json:"addresses,omitempty" binding:"dive"`
}

// ToInput converts the request into service input. An empty customer
// keeps the stored one.
func (r *UpdateOrderRequest) ToInput() (order.UpdateInput, error) {
	var customer order.Customer
	if !r.CustomerRequest.empty() {
		c, err := r.toCustomer()
		if err != nil {
			return order.UpdateInput{}, err
		}
		customer = c
	}
	items, err := itemInputs(r.Items)
	if err != nil {
		return order.UpdateInput{}, err
	}
	return order.UpdateInput{
		Customer:     customer,
		Currency:     r.Currency,
		ShippingCost: r.ShippingCost,
		TaxRate:      r.TaxRate,
		Discount:     r.Discount,
		Items:        items,
		Addresses:    addresses(r.Addresses),
	}, nil
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type PaymentRequest struct {
	Status    string       `json:"status" binding:"required"`
	Method    *string      `json:"method,omitempty"`
	Amount    *types.Money `json:"amount,omitempty"`
	Reference string       `json:"reference,omitempty"`
}

// ToUpdate converts the request into a payment update.
func (r *PaymentRequest) ToUpdate() order.PaymentUpdate {
	u := order.PaymentUpdate{
		Status:    order.PaymentStatus(r.Status),
		Amount:    r.Amount,
		Reference: r.Reference,
	}
	if r.Method != nil {
		m := order.PaymentMethod(*r.Method)
		u.Method = &m
	}
	return u
}

type NoteRequest struct {
	Type    string `json:"type,omitempty"`
	Content string `json:"content" binding:"required"`
}

type TotalsLineRequest struct {
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unitPrice"`
}

// TotalsRequest previews totals for an unsaved order form.
type TotalsRequest struct {
	Items        []TotalsLineRequest `json:"items"`
	ShippingCost *types.Money        `json:"shippingCost,omitempty"`
	TaxRate      *types.Money        `json:"taxRate,omitempty"`
	Discount     *types.Money        `json:"discountAmount,omitempty"`
}

func (r *TotalsRequest) ToInput() order.TotalsInput {
	lines := make([]order.LineAmount, 0, len(r.Items))
	for _, l := range r.Items {
		lines = append(lines, order.LineAmount{Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return order.TotalsInput{
		Lines:    lines,
		Shipping: r.ShippingCost,
		TaxRate:  r.TaxRate,
		Discount: r.Discount,
	}
}

// OrderListQuery holds list filters from the query string.
type OrderListQuery struct {
	PageQuery
	Status   string     `form:"status"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
	Search   string     `form:"search"`
}

// ToFilter converts the query into a repository filter for kind.
func (q *OrderListQuery) ToFilter(kind order.Kind) (order.ListFilter, error) {
	f := order.ListFilter{
		Kind:     &kind,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
		Search:   q.Search,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Status != "" {
		status, err := order.ParseStatus(q.Status)
		if err != nil {
			return order.ListFilter{}, err
		}
		f.Status = &status
	}
	return f, nil
}

// --- Response DTOs ---

type OrderItemResponse struct {
	ID          string            `json:"id"`
	LineNo      int               `json:"lineNo"`
	ProductID   string            `json:"productId"`
	VariantID   *string           `json:"variantId,omitempty"`
	WarehouseID *string           `json:"warehouseId,omitempty"`
	ProductName string            `json:"productName"`
	SKU         string            `json:"sku"`
	Quantity    int64             `json:"quantity"`
	UnitPrice   types.Money       `json:"unitPrice"`
	UnitCost    types.Money       `json:"unitCost"`
	TotalPrice  types.Money       `json:"totalPrice"`
	Snapshot    *catalog.Snapshot `json:"snapshot,omitempty"`
}

type AddressResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type PaymentResponse struct {
	ID        string      `json:"id"`
	Method    string      `json:"method"`
	Amount    types.Money `json:"amount"`
	Currency  string      `json:"currency"`
	Status    string      `json:"status"`
	Reference string      `json:"reference,omitempty"`
	PaidAt    *time.Time  `json:"paidAt,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type NoteResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	UserID    *string   `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromNote converts a note to its response.
func FromNote(n order.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID.String(),
		Type:      string(n.Type),
		Content:   n.Content,
		UserID:    idString(n.UserID),
		CreatedAt: n.CreatedAt,
	}
}

type OrderResponse struct {
	ID            string  `json:"id"`
	Number        string  `json:"number"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"paymentStatus,omitempty"`
	Currency      string  `json:"currency"`
	CustomerID    *string `json:"customerId,omitempty"`
	AgentID       *string `json:"agentId,omitempty"`
	GuestEmail    string  `json:"guestEmail,omitempty"`
	GuestName     string  `json:"guestName,omitempty"`
	GuestPhone    string  `json:"guestPhone,omitempty"`

	Subtotal       types.Money  `json:"subtotal"`
	ShippingCost   types.Money  `json:"shippingCost"`
	TaxRate        *types.Money `json:"taxRate,omitempty"`
	TaxAmount      types.Money  `json:"taxAmount"`
	DiscountAmount types.Money  `json:"discountAmount"`
	TotalAmount    types.Money  `json:"totalAmount"`
	StockDeducted  bool         `json:"stockDeducted"`

	OrderDate          time.Time  `json:"orderDate"`
	ConfirmedAt        *time.Time `json:"confirmedAt,omitempty"`
	ShippedAt          *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt        *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`

	Version   int       `json:"version"`
	CreatedBy *string   `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Items     []OrderItemResponse `json:"items,omitempty"`
	Addresses []AddressResponse   `json:"addresses,omitempty"`
	Payments  []PaymentResponse   `json:"payments,omitempty"`
	Notes     []NoteResponse      `json:"notes,omitempty"`
}

// FromOrder converts the aggregate to its response. List results carry
// no children, so the child arrays are omitted there.
func FromOrder(o *order.Order) OrderResponse {
	c := order.Flatten(o.Customer)
	resp := OrderResponse{
		ID:                 o.ID.String(),
		Number:             o.Number,
		Kind:               string(o.Kind),
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus()),
		Currency:           o.Currency,
		CustomerID:         idString(c.CustomerID),
		AgentID:            idString(c.AgentID),
		GuestEmail:         c.GuestEmail,
		GuestName:          c.GuestName,
		GuestPhone:         c.GuestPhone,
		Subtotal:           o.Subtotal,
		ShippingCost:       o.ShippingCost,
		TaxRate:            o.TaxRate,
		TaxAmount:          o.TaxAmount,
		DiscountAmount:     o.DiscountAmount,
		TotalAmount:        o.TotalAmount,
		StockDeducted:      o.StockDeducted,
		OrderDate:          o.OrderDate,
		ConfirmedAt:        o.ConfirmedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
		CancellationReason: o.CancellationReason,
		Version:            o.Version,
		CreatedBy:          idString(o.CreatedBy),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}

	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:          it.ID.String(),
			LineNo:      it.LineNo,
			ProductID:   it.ProductID.String(),
			VariantID:   idString(it.VariantID),
			WarehouseID: idString(it.WarehouseID),
			ProductName: it.ProductName,
			SKU:         it.SKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			UnitCost:    it.UnitCost,
			TotalPrice:  it.TotalPrice,
			Snapshot:    it.Snapshot,
		})
	}
	for _, a := range o.Addresses {
		resp.Addresses = append(resp.Addresses, AddressResponse{
			ID:         a.ID.String(),
			Type:       string(a.Type),
			Name:       a.Name,
			Phone:      a.Phone,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		})
	}
	for _, p := range o.Payments {
		resp.Payments = append(resp.Payments, PaymentResponse{
			ID:        p.ID.String(),
			Method:    string(p.Method),
			Amount:    p.Amount,
			Currency:  p.Currency,
			Status:    string(p.Status),
			Reference: p.Reference,
			PaidAt:    p.PaidAt,
			CreatedAt: p.CreatedAt,
		})
	}
	for _, n := range o.Notes {
		resp.Notes = append(resp.Notes, FromNote(n))
	}
	return resp
}

// FromOrderList converts a page of order headers.
func FromOrderList(r *order.ListResult) ListResponse[OrderResponse] {
	items := make([]OrderResponse, 0, len(r.Items))
	for i := range r.Items {
		items = append(items, FromOrder(&r.Items[i]))
	}
	return ListResponse[OrderResponse]{
		Items:      items,
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}
