package order

import (
	"backoffice/internal/core/types"
)

// LineAmount is the priced part of an item.
type LineAmount struct {
	Quantity  int64
	UnitPrice types.Money
}

// Total is quantity × unit price.
func (l LineAmount) Total() types.Money {
	return l.UnitPrice.Mul(types.MoneyFromInt(l.Quantity))
}

// TotalsInput carries the editable values totals are derived from.
// Nil shipping, tax rate and discount count as zero.
type TotalsInput struct {
	Lines    []LineAmount
	Shipping *types.Money
	TaxRate  *types.Money
	Discount *types.Money
}

// Totals is the result of CalculateTotals.
type Totals struct {
	Subtotal types.Money `json:"subtotal"`
	Shipping types.Money `json:"shippingCost"`
	Tax      types.Money `json:"taxAmount"`
	Discount types.Money `json:"discountAmount"`
	Total    types.Money `json:"totalAmount"`
}

var hundred = types.MoneyFromInt(100)

// CalculateTotals computes subtotal, tax and total at full precision.
//
//	subtotal = Σ quantity × unit price
//	tax      = subtotal × rate / 100
//	total    = subtotal + shipping + tax − discount
func CalculateTotals(in TotalsInput) Totals {
	subtotal := types.Zero()
	for _, l := range in.Lines {
		subtotal = subtotal.Add(l.Total())
	}

	shipping := types.OrZero(in.Shipping)
	discount := types.OrZero(in.Discount)
	tax := subtotal.Mul(types.OrZero(in.TaxRate)).Div(hundred)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}
}

// Rounded returns t with every amount rounded to cents.
// Total is re-derived from the rounded parts so the invariant holds on stored values.
func (t Totals) Rounded() Totals {
	r := Totals{
		Subtotal: types.Round(t.Subtotal),
		Shipping: types.Round(t.Shipping),
		Tax:      types.Round(t.Tax),
		Discount: types.Round(t.Discount),
	}
	r.Total = r.Subtotal.Add(r.Shipping).Add(r.Tax).Sub(r.Discount)
	return r
}
