package order_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"backoffice/internal/core/actor"
	"backoffice/internal/domain/order"
)

func TestEngine_StockProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	const initial, qty = 100, 3

	properties.Property("stock and movements follow boundary crossings", prop.ForAll(
		func(steps []int) bool {
			ctx := context.Background()
			f := newFixture(t)
			f.stockUp(t, initial)
			o := f.createOrder(t, qty)

			crossings := 0
			for _, i := range steps {
				next := order.Statuses[i]
				if order.PlanStockAction(o.StockDeducted, next) != order.StockNone {
					crossings++
				}
				if err := f.engine.Transition(ctx, o, next, actor.System()); err != nil {
					return false
				}
			}

			want := int64(initial)
			if o.StockDeducted {
				want -= qty
			}
			level := f.level(t)
			if level.Quantity != want || level.AvailableQuantity != want {
				return false
			}

			ms := f.orderMovements(t, o.ID)
			if len(ms) != crossings {
				return false
			}
			prev := int64(initial)
			for _, m := range ms {
				if m.QuantityBefore != prev || m.QuantityAfter != m.QuantityBefore+m.Quantity {
					return false
				}
				prev = m.QuantityAfter
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(0, len(order.Statuses)-1)),
	))

	properties.TestingRun(t)
}
