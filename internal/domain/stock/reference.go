package stock

import (
	"fmt"

	"backoffice/internal/core/id"
)

// ReferenceKind is the persisted discriminator of a Reference.
type ReferenceKind string

const (
	ReferenceOrder      ReferenceKind = "order"
	ReferenceAdjustment ReferenceKind = "adjustment"
)

// Reference points at whatever caused a movement.
// The set of implementations is closed: OrderReference and AdjustmentReference.
type Reference interface {
	Kind() ReferenceKind
	RefID() id.ID
	isReference()
}

// OrderReference ties a movement to an order.
type OrderReference struct {
	OrderID id.ID
}

func (r OrderReference) Kind() ReferenceKind { return ReferenceOrder }
func (r OrderReference) RefID() id.ID        { return r.OrderID }
func (OrderReference) isReference()          {}

// AdjustmentReference ties a movement to a manual stock correction.
type AdjustmentReference struct {
	AdjustmentID id.ID
}

func (r AdjustmentReference) Kind() ReferenceKind { return ReferenceAdjustment }
func (r AdjustmentReference) RefID() id.ID        { return r.AdjustmentID }
func (AdjustmentReference) isReference()          {}

// ParseReference rebuilds a Reference from its stored discriminator and id.
func ParseReference(kind string, refID id.ID) (Reference, error) {
	switch ReferenceKind(kind) {
	case ReferenceOrder:
		return OrderReference{OrderID: refID}, nil
	case ReferenceAdjustment:
		return AdjustmentReference{AdjustmentID: refID}, nil
	default:
		return nil, fmt.Errorf("unknown movement reference kind %q", kind)
	}
}

// SameReference reports whether a and b point at the same thing.
func SameReference(a, b Reference) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Kind() == b.Kind() && a.RefID() == b.RefID()
}
