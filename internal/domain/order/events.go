package order

import (
	"time"

	"backoffice/internal/core/events"
)

// Outbox event types.
const (
	EventCreated        = "order.created"
	EventUpdated        = "order.updated"
	EventStatusChanged  = "order.status_changed"
	EventPaymentUpdated = "order.payment_updated"
)

const aggregateType = "order"

// StatusChangedPayload is the body of order.status_changed.
type StatusChangedPayload struct {
	Number        string    `json:"number"`
	Kind          Kind      `json:"kind"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	StockAction   string    `json:"stockAction"`
	StockDeducted bool      `json:"stockDeducted"`
	Actor         string    `json:"actor"`
	ChangedAt     time.Time `json:"changedAt"`
}

// PaymentUpdatedPayload is the body of order.payment_updated.
type PaymentUpdatedPayload struct {
	Number    string        `json:"number"`
	From      PaymentStatus `json:"from"`
	To        PaymentStatus `json:"to"`
	Method    PaymentMethod `json:"method"`
	Amount    string        `json:"amount"`
	Actor     string        `json:"actor"`
	ChangedAt time.Time     `json:"changedAt"`
}

// OrderPayload is the body of order.created and order.updated.
type OrderPayload struct {
	Number      string `json:"number"`
	Kind        Kind   `json:"kind"`
	Status      Status `json:"status"`
	TotalAmount string `json:"totalAmount"`
	Currency    string `json:"currency"`
	ItemCount   int    `json:"itemCount"`
	Actor       string `json:"actor"`
}

func orderEvent(o *Order, eventType string, payload any) events.Event {
	return events.Event{
		AggregateType: aggregateType,
		AggregateID:   o.ID,
		EventType:     eventType,
		Payload:       payload,
	}
}
