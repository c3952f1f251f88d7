package order

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/events"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/stock"
	"backoffice/pkg/logger"
)

var tracer = otel.Tracer("backoffice/order")

// StockLedger is the part of stock.Ledger the engine needs.
type StockLedger interface {
	Deduct(ctx context.Context, line stock.Line, ref stock.Reference, note string, act actor.Actor) (*stock.Movement, error)
	Restore(ctx context.Context, line stock.Line, ref stock.Reference, note string, act actor.Actor) (*stock.Movement, error)
}

// Engine runs status transitions and payment updates.
// Each call is one transaction covering the order, its notes, stock and the outbox.
type Engine struct {
	txManager tx.Manager
	repo      Repository
	ledger    StockLedger
	publisher events.Publisher
	policy    TransitionPolicy
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source used for stamps and notes.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithPolicy sets the transition policy. The default allows everything.
func WithPolicy(p TransitionPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithPublisher sets the outbox publisher. The default discards events.
func WithPublisher(p events.Publisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// NewEngine creates a lifecycle engine.
func NewEngine(txManager tx.Manager, repo Repository, ledger StockLedger, opts ...EngineOption) *Engine {
	e := &Engine{
		txManager: txManager,
		repo:      repo,
		ledger:    ledger,
		publisher: events.Discard{},
		policy:    PermissivePolicy{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transition moves o to next, reconciling stock when the move crosses the
// deducting boundary. On success o reflects the persisted state; on error o
// is left unchanged.
func (e *Engine) Transition(ctx context.Context, o *Order, next Status, act actor.Actor) error {
	return e.transition(ctx, o, next, act, nil)
}

// MarkAsConfirmed transitions to confirmed and stamps ConfirmedAt.
func (e *Engine) MarkAsConfirmed(ctx context.Context, o *Order, act actor.Actor) error {
	return e.transition(ctx, o, StatusConfirmed, act, func(c *Order, now time.Time) {
		c.ConfirmedAt = &now
	})
}

// MarkAsProcessing transitions to processing.
func (e *Engine) MarkAsProcessing(ctx context.Context, o *Order, act actor.Actor) error {
	return e.transition(ctx, o, StatusProcessing, act, nil)
}

// MarkAsShipped transitions to shipped and stamps ShippedAt.
func (e *Engine) MarkAsShipped(ctx context.Context, o *Order, act actor.Actor) error {
	return e.transition(ctx, o, StatusShipped, act, func(c *Order, now time.Time) {
		c.ShippedAt = &now
	})
}

// MarkAsDelivered transitions to delivered and stamps DeliveredAt.
func (e *Engine) MarkAsDelivered(ctx context.Context, o *Order, act actor.Actor) error {
	return e.transition(ctx, o, StatusDelivered, act, func(c *Order, now time.Time) {
		c.DeliveredAt = &now
	})
}

// MarkAsCancelled transitions to cancelled and records the reason.
func (e *Engine) MarkAsCancelled(ctx context.Context, o *Order, reason string, act actor.Actor) error {
	return e.transition(ctx, o, StatusCancelled, act, func(c *Order, now time.Time) {
		c.CancelledAt = &now
		c.CancellationReason = reason
	})
}

func (e *Engine) transition(ctx context.Context, o *Order, next Status, act actor.Actor, stamp func(*Order, time.Time)) error {
	ctx, span := tracer.Start(ctx, "order.transition",
		trace.WithAttributes(
			attribute.String("order.id", o.ID.String()),
			attribute.String("order.from", string(o.Status)),
			attribute.String("order.to", string(next)),
		))
	defer span.End()

	if !next.Valid() {
		return apperror.NewInvalidStatus(string(next))
	}
	if err := e.policy.Allow(ctx, o, next); err != nil {
		return err
	}

	work := o.clone()
	prev := work.Status
	now := e.now()
	action := PlanStockAction(work.StockDeducted, next)
	span.SetAttributes(attribute.String("order.stock_action", action.String()))

	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		work.Status = next
		work.UpdatedAt = now
		if stamp != nil {
			stamp(work, now)
		}

		if err := e.reconcile(ctx, work, action, act); err != nil {
			return err
		}

		note := newNote(work.ID, NoteSystem,
			fmt.Sprintf("Order status changed from %s to %s", prev, next), act, now)
		if err := e.repo.AddNote(ctx, note); err != nil {
			return fmt.Errorf("add status note: %w", err)
		}
		work.Notes = append(work.Notes, note)

		if err := e.repo.Update(ctx, work); err != nil {
			return err
		}

		return e.publisher.Publish(ctx, orderEvent(work, EventStatusChanged, StatusChangedPayload{
			Number:        work.Number,
			Kind:          work.Kind,
			From:          prev,
			To:            next,
			StockAction:   action.String(),
			StockDeducted: work.StockDeducted,
			Actor:         act.String(),
			ChangedAt:     now,
		}))
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	*o = *work
	logger.Info(ctx, "order status changed",
		"order_id", o.ID,
		"number", o.Number,
		"from", prev,
		"to", next,
		"stock_action", action.String(),
		"actor", act.String(),
	)
	return nil
}

// reconcile applies action to every item with a warehouse and flips the flag.
func (e *Engine) reconcile(ctx context.Context, o *Order, action StockAction, act actor.Actor) error {
	ref := stock.OrderReference{OrderID: o.ID}

	switch action {
	case StockDeduct:
		note := fmt.Sprintf("Order %s: %s", o.Number, o.Status)
		for _, line := range o.StockLines() {
			if _, err := e.ledger.Deduct(ctx, line, ref, note, act); err != nil {
				return err
			}
		}
		o.StockDeducted = true
	case StockRestore:
		note := fmt.Sprintf("Order %s: %s (restored)", o.Number, o.Status)
		for _, line := range o.StockLines() {
			if _, err := e.ledger.Restore(ctx, line, ref, note, act); err != nil {
				return err
			}
		}
		o.StockDeducted = false
	}
	return nil
}
