package stock

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/pkg/logger"
)

// Ledger applies stock deductions and restorations.
// Every method must run inside the caller's transaction: the level lock,
// the level update and the movement insert commit or roll back together.
type Ledger struct {
	repo   Repository
	policy NegativePolicy
	now    func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger. An empty policy means PolicyReject.
func NewLedger(repo Repository, policy NegativePolicy, opts ...LedgerOption) *Ledger {
	if policy == "" {
		policy = PolicyReject
	}
	l := &Ledger{
		repo:   repo,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deduct removes line.Quantity from the level, creating an empty level first
// when none exists, and appends an out movement. Under PolicyClamp the
// movement records only what was actually taken; when nothing could be taken
// no movement is written and (nil, nil) is returned.
func (l *Ledger) Deduct(ctx context.Context, line Line, ref Reference, note string, act actor.Actor) (*Movement, error) {
	if line.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}

	now := l.now()
	level, created, err := l.lockOrCreate(ctx, line.Key, line.UnitCost, now)
	if err != nil {
		return nil, err
	}

	before := level.Quantity
	after, err := l.policy.apply(line.Key, before, line.Quantity)
	if err != nil {
		return nil, err
	}

	if after == before {
		logger.Debug(ctx, "stock deduction clamped to nothing", "key", line.Key.String(), "requested", line.Quantity)
		return nil, nil
	}

	m, err := l.move(ctx, level, created, MovementOut, after, line.UnitCost, ref, note, act, now)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "stock deducted",
		"key", line.Key.String(),
		"requested", line.Quantity,
		"before", before,
		"after", after,
	)
	return m, nil
}

// Restore gives back what ref still holds at line.Key, at most line.Quantity,
// and appends an in movement. What ref holds is the negated sum of its
// movements at the key, so a clamped deduction is restored only by the amount
// it actually took. A missing level, or nothing left to give back, returns (nil, nil).
func (l *Ledger) Restore(ctx context.Context, line Line, ref Reference, note string, act actor.Actor) (*Movement, error) {
	if line.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}

	level, err := l.repo.GetLevelForUpdate(ctx, line.Key)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "restore skipped, no stock level", "key", line.Key.String())
			return nil, nil
		}
		return nil, fmt.Errorf("lock stock level: %w", err)
	}

	held, err := l.heldBy(ctx, line.Key, ref)
	if err != nil {
		return nil, err
	}
	qty := min(line.Quantity, held)
	if qty <= 0 {
		logger.Debug(ctx, "restore skipped, nothing held", "key", line.Key.String(), "ref", ref.RefID().String())
		return nil, nil
	}

	m, err := l.move(ctx, level, false, MovementIn, level.Quantity+qty, line.UnitCost, ref, note, act, l.now())
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "stock restored",
		"key", line.Key.String(),
		"requested", line.Quantity,
		"quantity", qty,
		"after", m.QuantityAfter,
	)
	return m, nil
}

// heldBy is the net quantity ref has taken out of key and not yet returned.
func (l *Ledger) heldBy(ctx context.Context, key Key, ref Reference) (int64, error) {
	movements, err := l.repo.ListMovements(ctx, MovementFilter{
		ProductID:   &key.ProductID,
		WarehouseID: &key.WarehouseID,
		Reference:   ref,
	})
	if err != nil {
		return 0, fmt.Errorf("list movements for %s: %w", ref.RefID(), err)
	}

	var net int64
	for _, m := range movements {
		if m.Key.Equal(key) {
			net += m.Quantity
		}
	}
	return -net, nil
}

// Adjust applies a signed manual correction. Positive deltas may create the
// level; with a unit cost they also fold it into the average cost.
// Negative deltas follow the negative policy.
func (l *Ledger) Adjust(ctx context.Context, key Key, delta int64, unitCost *types.Money, ref Reference, note string, act actor.Actor) (*Movement, error) {
	if delta == 0 {
		return nil, apperror.NewValidation("adjustment quantity must not be zero").WithDetail("field", "quantity")
	}
	if delta < 0 {
		line := Line{Key: key, Quantity: -delta, UnitCost: types.Zero()}
		if unitCost != nil {
			line.UnitCost = *unitCost
		}
		m, err := l.Deduct(ctx, line, ref, note, act)
		if err == nil && m == nil {
			// clamped away entirely; a manual correction must change something
			return nil, apperror.NewInsufficientStock(key.ProductID.String(), -delta, 0).
				WithDetail("warehouse_id", key.WarehouseID.String())
		}
		return m, err
	}

	now := l.now()
	level, created, err := l.lockOrCreate(ctx, key, types.Zero(), now)
	if err != nil {
		return nil, err
	}

	movementCost := level.AverageCost
	if unitCost != nil {
		movementCost = *unitCost
		if !created && level.Quantity > 0 {
			// weighted average over the stock on hand
			total := level.AverageCost.Mul(types.MoneyFromInt(level.Quantity)).
				Add(unitCost.Mul(types.MoneyFromInt(delta)))
			level.AverageCost = total.Div(types.MoneyFromInt(level.Quantity + delta))
		} else {
			level.AverageCost = *unitCost
		}
	}

	return l.move(ctx, level, created, MovementIn, level.Quantity+delta, movementCost, ref, note, act, now)
}

func (l *Ledger) lockOrCreate(ctx context.Context, key Key, unitCost types.Money, now time.Time) (*Level, bool, error) {
	level, err := l.repo.GetLevelForUpdate(ctx, key)
	if err == nil {
		return level, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, fmt.Errorf("lock stock level: %w", err)
	}

	level = NewLevel(key, now)
	level.AverageCost = unitCost
	return level, true, nil
}

// move sets the level to after, persists it and appends the matching movement.
func (l *Ledger) move(
	ctx context.Context,
	level *Level,
	created bool,
	movementType MovementType,
	after int64,
	unitCost types.Money,
	ref Reference,
	note string,
	act actor.Actor,
	now time.Time,
) (*Movement, error) {
	before := level.Quantity
	delta := after - before

	level.Quantity = after
	level.AvailableQuantity += delta
	level.LastMovementAt = &now
	level.UpdatedAt = now

	if created {
		if err := l.repo.CreateLevel(ctx, level); err != nil {
			return nil, fmt.Errorf("create stock level: %w", err)
		}
	} else if err := l.repo.UpdateLevel(ctx, level); err != nil {
		return nil, fmt.Errorf("update stock level: %w", err)
	}

	m := Movement{
		ID:             id.New(),
		Key:            level.Key,
		Type:           movementType,
		Quantity:       delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		UnitCost:       unitCost,
		Reference:      ref,
		Note:           note,
		CreatedBy:      act.UserID,
		CreatedAt:      now,
	}
	if err := l.repo.AppendMovements(ctx, []Movement{m}); err != nil {
		return nil, fmt.Errorf("append stock movement: %w", err)
	}
	return &m, nil
}
