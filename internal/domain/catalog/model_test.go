package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

func TestTakeSnapshot_VariantOverrides(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Product{
		ID:         id.New(),
		SKU:        "TEE",
		Name:       "T-Shirt",
		Price:      types.MustMoney("20.00"),
		Cost:       types.MustMoney("8.00"),
		Attributes: map[string]any{"material": "cotton"},
	}
	v := &Variant{
		ID:         id.New(),
		ProductID:  p.ID,
		SKU:        "TEE-L",
		Name:       "L",
		Price:      types.MoneyPtr(types.MustMoney("22.00")),
		Attributes: map[string]any{"size": "L"},
	}

	snap := TakeSnapshot(p, v, at)

	require.NotNil(t, snap.VariantID)
	assert.Equal(t, v.ID, *snap.VariantID)
	assert.Equal(t, "TEE-L", snap.SKU)
	assert.Equal(t, "22", snap.Price.String())
	assert.Equal(t, "8", snap.Cost.String())
	assert.Equal(t, "T-Shirt (L)", snap.DisplayName())
	assert.Equal(t, map[string]any{"material": "cotton", "size": "L"}, snap.Attributes)

	// product attributes are copied, not shared
	assert.Len(t, p.Attributes, 1)
}

func TestTakeSnapshot_ProductOnly(t *testing.T) {
	p := &Product{ID: id.New(), SKU: "MUG", Name: "Mug", Price: types.MustMoney("5.50")}

	snap := TakeSnapshot(p, nil, time.Now())

	assert.Nil(t, snap.VariantID)
	assert.Equal(t, "Mug", snap.DisplayName())
	assert.Equal(t, "5.5", snap.Price.String())
}
