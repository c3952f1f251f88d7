// Package stock provides the stock ledger: per-warehouse stock levels and
// the append-only movement log that explains every change to them.
package stock

import (
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Key identifies a stock level. VariantID is nil for products without variants.
type Key struct {
	ProductID   id.ID  `json:"productId"`
	VariantID   *id.ID `json:"variantId,omitempty"`
	WarehouseID id.ID  `json:"warehouseId"`
}

// Equal compares keys including the optional variant.
func (k Key) Equal(other Key) bool {
	if k.ProductID != other.ProductID || k.WarehouseID != other.WarehouseID {
		return false
	}
	if k.VariantID == nil || other.VariantID == nil {
		return k.VariantID == nil && other.VariantID == nil
	}
	return *k.VariantID == *other.VariantID
}

// String renders the key for logs and map lookups.
func (k Key) String() string {
	variant := "-"
	if k.VariantID != nil {
		variant = k.VariantID.String()
	}
	return k.ProductID.String() + "/" + variant + "@" + k.WarehouseID.String()
}

// Level is the current stock of one product (variant) in one warehouse.
// Quantity and AvailableQuantity move in lock-step with every movement.
type Level struct {
	ID                id.ID       `json:"id"`
	Key               Key         `json:"key"`
	Quantity          int64       `json:"quantity"`
	ReservedQuantity  int64       `json:"reservedQuantity"`
	AvailableQuantity int64       `json:"availableQuantity"`
	AverageCost       types.Money `json:"averageCost"`
	LastMovementAt    *time.Time  `json:"lastMovementAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// NewLevel creates a zero level for key.
func NewLevel(key Key, now time.Time) *Level {
	return &Level{
		ID:          id.New(),
		Key:         key,
		AverageCost: types.Zero(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MovementType is the direction of a stock movement.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Movement is an immutable record of a single change to a Level.
// Quantity is signed: negative for out, positive for in.
type Movement struct {
	ID             id.ID        `json:"id"`
	Key            Key          `json:"key"`
	Type           MovementType `json:"type"`
	Quantity       int64        `json:"quantity"`
	QuantityBefore int64        `json:"quantityBefore"`
	QuantityAfter  int64        `json:"quantityAfter"`
	UnitCost       types.Money  `json:"unitCost"`
	Reference      Reference    `json:"-"`
	Note           string       `json:"note"`
	CreatedBy      *id.ID       `json:"createdBy,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Line is one quantity of one stock key, as carried by an order item.
type Line struct {
	Key      Key
	Quantity int64
	UnitCost types.Money
}

// LevelFilter narrows level listings.
type LevelFilter struct {
	ProductID   *id.ID
	WarehouseID *id.ID
	ExcludeZero bool
	Limit       int
	Offset      int
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID   *id.ID
	WarehouseID *id.ID
	Reference   Reference
	Type        *MovementType
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}
