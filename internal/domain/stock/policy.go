package stock

import (
	"fmt"

	"backoffice/internal/core/apperror"
)

// NegativePolicy decides what happens when a deduction exceeds the quantity on hand.
// One policy applies to every order kind.
type NegativePolicy string

const (
	// PolicyReject fails the deduction with INSUFFICIENT_STOCK.
	PolicyReject NegativePolicy = "reject"
	// PolicyClamp deducts what is there and stops at zero.
	PolicyClamp NegativePolicy = "clamp"
	// PolicyBackorder lets the level go negative.
	PolicyBackorder NegativePolicy = "backorder"
)

// ParseNegativePolicy validates a configured policy name.
func ParseNegativePolicy(s string) (NegativePolicy, error) {
	switch p := NegativePolicy(s); p {
	case PolicyReject, PolicyClamp, PolicyBackorder:
		return p, nil
	default:
		return "", fmt.Errorf("unknown negative stock policy %q", s)
	}
}

// apply returns the quantity after removing qty from before.
func (p NegativePolicy) apply(key Key, before, qty int64) (int64, error) {
	after := before - qty
	if after >= 0 {
		return after, nil
	}

	switch p {
	case PolicyBackorder:
		return after, nil
	case PolicyClamp:
		if before < 0 {
			return before, nil
		}
		return 0, nil
	default:
		return 0, apperror.NewInsufficientStock(key.ProductID.String(), qty, before).
			WithDetail("warehouse_id", key.WarehouseID.String())
	}
}
