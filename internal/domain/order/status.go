// Package order provides the order aggregate, its lifecycle engine and the
// stock reconciliation that follows status changes.
package order

import (
	"backoffice/internal/core/apperror"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusReturned   Status = "returned"
	StatusOnHold     Status = "on_hold"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
	StatusReturned,
	StatusOnHold,
}

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", apperror.NewInvalidStatus(s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Deducting reports whether stock is out of the warehouse in this status.
func (s Status) Deducting() bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// Restoring reports whether entering this status returns deducted stock.
// Confirmed and on_hold are neither deducting nor restoring.
func (s Status) Restoring() bool {
	switch s {
	case StatusDraft, StatusPending, StatusCancelled, StatusRefunded, StatusReturned:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Kind separates retail orders from agent (wholesale) orders.
type Kind string

const (
	KindRetail Kind = "retail"
	KindAgent  Kind = "agent"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRetail, KindAgent:
		return k, nil
	}
	return "", apperror.NewValidation("unknown order kind").
		WithDetail("field", "kind").
		WithDetail("value", s)
}

// NumberPrefix is the order number prefix for the kind.
func (k Kind) NumberPrefix() string {
	if k == KindAgent {
		return "AGT"
	}
	return "ORD"
}
