package order

import (
	"context"
	"fmt"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/pkg/logger"
)

// PaymentUpdate is the requested payment change. Method and Amount are
// optional; unset values keep the current payment's (or the defaults for a
// new payment).
type PaymentUpdate struct {
	Status    PaymentStatus
	Method    *PaymentMethod
	Amount    *types.Money
	Reference string
}

// Validate checks the update before any mutation.
func (u PaymentUpdate) Validate() error {
	if !u.Status.Valid() {
		return apperror.NewValidation("unknown payment status").
			WithDetail("field", "status").
			WithDetail("value", u.Status)
	}
	if u.Method != nil && !u.Method.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "method").
			WithDetail("value", *u.Method)
	}
	if u.Amount != nil && u.Amount.IsNegative() {
		return apperror.NewValidation("amount must not be negative").WithDetail("field", "amount")
	}
	return nil
}

// UpdatePaymentStatus sets the status of the order's current payment,
// creating a cash payment for the order total when none exists. Stock is
// never touched.
func (e *Engine) UpdatePaymentStatus(ctx context.Context, o *Order, u PaymentUpdate, act actor.Actor) error {
	if err := u.Validate(); err != nil {
		return err
	}

	work := o.clone()
	now := e.now()
	current := work.CurrentPayment()

	var (
		prev    PaymentStatus
		payment Payment
		created bool
	)
	if current == nil {
		created = true
		payment = Payment{
			ID:        id.New(),
			OrderID:   work.ID,
			Method:    MethodCash,
			Amount:    work.TotalAmount,
			Currency:  work.Currency,
			CreatedAt: now,
		}
	} else {
		prev = current.Status
		payment = *current
	}

	payment.Status = u.Status
	payment.UpdatedAt = now
	if u.Method != nil {
		payment.Method = *u.Method
	}
	if u.Amount != nil {
		payment.Amount = types.Round(*u.Amount)
	}
	if u.Reference != "" {
		payment.Reference = u.Reference
	}
	if u.Status == PaymentCompleted {
		payment.PaidAt = &now
	} else {
		payment.PaidAt = nil
	}

	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if created {
			if err := e.repo.CreatePayment(ctx, payment); err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
			work.Payments = append(work.Payments, payment)
		} else {
			if err := e.repo.UpdatePayment(ctx, payment); err != nil {
				return fmt.Errorf("update payment: %w", err)
			}
			*current = payment
		}

		note := newNote(work.ID, NoteSystem,
			fmt.Sprintf("Payment status changed from %s to %s", displayPaymentStatus(prev), u.Status), act, now)
		if err := e.repo.AddNote(ctx, note); err != nil {
			return fmt.Errorf("add payment note: %w", err)
		}
		work.Notes = append(work.Notes, note)

		return e.publisher.Publish(ctx, orderEvent(work, EventPaymentUpdated, PaymentUpdatedPayload{
			Number:    work.Number,
			From:      prev,
			To:        u.Status,
			Method:    payment.Method,
			Amount:    types.FormatMoney(payment.Amount),
			Actor:     act.String(),
			ChangedAt: now,
		}))
	})
	if err != nil {
		return err
	}

	*o = *work
	logger.Info(ctx, "order payment updated",
		"order_id", o.ID,
		"number", o.Number,
		"from", displayPaymentStatus(prev),
		"to", u.Status,
		"created", created,
		"actor", act.String(),
	)
	return nil
}

func displayPaymentStatus(s PaymentStatus) string {
	if s == "" {
		return "none"
	}
	return string(s)
}
