package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Len(t, Statuses, 10)

	_, err := ParseStatus("archived")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatus))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ORD", KindRetail.NumberPrefix())
	assert.Equal(t, "AGT", KindAgent.NumberPrefix())

	_, err := ParseKind("wholesale")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCustomerFields_RoundTrip(t *testing.T) {
	cid := id.New()
	c, err := Flatten(RegisteredCustomer{CustomerID: cid}).Customer()
	require.NoError(t, err)
	assert.Equal(t, RegisteredCustomer{CustomerID: cid}, c)
	assert.Equal(t, KindRetail, c.Kind())

	aid := id.New()
	c, err = Flatten(AgentCustomer{AgentID: aid}).Customer()
	require.NoError(t, err)
	assert.Equal(t, KindAgent, c.Kind())

	guest := GuestCustomer{Email: "ann@example.com", Name: "Ann", Phone: "555"}
	c, err = Flatten(guest).Customer()
	require.NoError(t, err)
	assert.Equal(t, guest, c)

	_, err = CustomerFields{CustomerID: &cid, AgentID: &aid}.Customer()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = CustomerFields{}.Customer()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestOrder_Validate(t *testing.T) {
	valid := func() *Order {
		return &Order{
			Kind:     KindRetail,
			Status:   StatusDraft,
			Currency: "USD",
			Customer: GuestCustomer{Email: "ann@example.com", Name: "Ann"},
			Items:    []Item{{ProductID: id.New(), Quantity: 1}},
		}
	}
	ctx := context.Background()
	require.NoError(t, valid().Validate(ctx))

	tests := []struct {
		name   string
		mutate func(o *Order)
		field  string
	}{
		{"no customer", func(o *Order) { o.Customer = nil }, "customer"},
		{"bad guest email", func(o *Order) { o.Customer = GuestCustomer{Email: "nope", Name: "Ann"} }, "guestEmail"},
		{"kind mismatch", func(o *Order) { o.Customer = AgentCustomer{AgentID: id.New()} }, "customer"},
		{"no items", func(o *Order) { o.Items = nil }, "items"},
		{"zero quantity", func(o *Order) { o.Items[0].Quantity = 0 }, "items"},
		{"nil product", func(o *Order) { o.Items[0].ProductID = id.Nil() }, "items"},
		{"bad currency", func(o *Order) { o.Currency = "US" }, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)
			err := o.Validate(ctx)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}
