// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept when an amount is persisted or shown.
const MoneyScale int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// MoneyFromInt returns an integral Money value.
func MoneyFromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// Round rounds half away from zero to MoneyScale digits.
func Round(m Money) Money {
	return m.Round(MoneyScale)
}

// OrZero dereferences an optional amount, treating nil as zero.
func OrZero(m *Money) Money {
	if m == nil {
		return decimal.Zero
	}
	return *m
}

// MoneyPtr returns a pointer to a copy of m.
func MoneyPtr(m Money) *Money {
	return &m
}

// FormatMoney renders m with exactly MoneyScale fractional digits.
func FormatMoney(m Money) string {
	return m.StringFixed(MoneyScale)
}
