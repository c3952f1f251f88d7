// Package catalog is the read side of the product catalog used when pricing
// and snapshotting order items. Catalog maintenance lives elsewhere.
package catalog

import (
	"context"
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Product is a sellable catalog entry.
type Product struct {
	ID         id.ID          `db:"id" json:"id"`
	SKU        string         `db:"sku" json:"sku"`
	Name       string         `db:"name" json:"name"`
	Price      types.Money    `db:"price" json:"price"`
	Cost       types.Money    `db:"cost" json:"cost"`
	IsActive   bool           `db:"is_active" json:"isActive"`
	Attributes map[string]any `db:"attributes" json:"attributes,omitempty"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// Variant is a purchasable variation of a product (size, color).
// Price and Cost override the product's when set.
type Variant struct {
	ID         id.ID          `db:"id" json:"id"`
	ProductID  id.ID          `db:"product_id" json:"productId"`
	SKU        string         `db:"sku" json:"sku"`
	Name       string         `db:"name" json:"name"`
	Price      *types.Money   `db:"price" json:"price,omitempty"`
	Cost       *types.Money   `db:"cost" json:"cost,omitempty"`
	Attributes map[string]any `db:"attributes" json:"attributes,omitempty"`
}

// Repository loads catalog entries. Missing rows yield a NOT_FOUND AppError.
type Repository interface {
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)
	GetVariant(ctx context.Context, variantID id.ID) (*Variant, error)
}

// Snapshot is the immutable copy of product state stored on an order item.
type Snapshot struct {
	ProductID  id.ID          `json:"productId"`
	VariantID  *id.ID         `json:"variantId,omitempty"`
	SKU        string         `json:"sku"`
	Name       string         `json:"name"`
	Variant    string         `json:"variant,omitempty"`
	Price      types.Money    `json:"price"`
	Cost       types.Money    `json:"cost"`
	Attributes map[string]any `json:"attributes,omitempty"`
	TakenAt    time.Time      `json:"takenAt"`
}

// TakeSnapshot merges product and optional variant into a Snapshot.
func TakeSnapshot(p *Product, v *Variant, at time.Time) Snapshot {
	snap := Snapshot{
		ProductID:  p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		Price:      p.Price,
		Cost:       p.Cost,
		Attributes: make(map[string]any, len(p.Attributes)),
		TakenAt:    at,
	}
	for k, val := range p.Attributes {
		snap.Attributes[k] = val
	}

	if v == nil {
		return snap
	}

	vid := v.ID
	snap.VariantID = &vid
	snap.Variant = v.Name
	if v.SKU != "" {
		snap.SKU = v.SKU
	}
	if v.Price != nil {
		snap.Price = *v.Price
	}
	if v.Cost != nil {
		snap.Cost = *v.Cost
	}
	for k, val := range v.Attributes {
		snap.Attributes[k] = val
	}
	return snap
}

// DisplayName is the product name with the variant appended.
func (s Snapshot) DisplayName() string {
	if s.Variant == "" {
		return s.Name
	}
	return s.Name + " (" + s.Variant + ")"
}
