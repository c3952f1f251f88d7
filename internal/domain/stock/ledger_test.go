package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/actor"
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/stock"
	"backoffice/internal/infrastructure/storage/memory"
)

var fixedNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func newLedger(t *testing.T, policy stock.NegativePolicy) (*stock.Ledger, *memory.StockRepo, *memory.TxManager) {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewStockRepo(store)
	ledger := stock.NewLedger(repo, policy, stock.WithClock(func() time.Time { return fixedNow }))
	return ledger, repo, memory.NewTxManager(store)
}

func cost(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

func seed(t *testing.T, ledger *stock.Ledger, key stock.Key, qty int64) {
	t.Helper()
	_, err := ledger.Adjust(context.Background(), key, qty, cost("4.00"),
		stock.AdjustmentReference{AdjustmentID: id.New()}, "opening balance", actor.System())
	require.NoError(t, err)
}

func TestLedger_DeductAndRestore(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := newLedger(t, stock.PolicyReject)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	seed(t, ledger, key, 10)

	user := id.New()
	ref := stock.OrderReference{OrderID: id.New()}

	out, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 3, UnitCost: types.MustMoney("4.00")}, ref, "ship", actor.User(user))
	require.NoError(t, err)
	assert.Equal(t, stock.MovementOut, out.Type)
	assert.Equal(t, int64(-3), out.Quantity)
	assert.Equal(t, int64(10), out.QuantityBefore)
	assert.Equal(t, int64(7), out.QuantityAfter)
	require.NotNil(t, out.CreatedBy)
	assert.Equal(t, user, *out.CreatedBy)

	level, err := repo.GetLevel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(7), level.Quantity)
	assert.Equal(t, int64(7), level.AvailableQuantity)
	require.NotNil(t, level.LastMovementAt)
	assert.Equal(t, fixedNow, *level.LastMovementAt)

	in, err := ledger.Restore(ctx, stock.Line{Key: key, Quantity: 3}, ref, "cancel", actor.System())
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.Equal(t, stock.MovementIn, in.Type)
	assert.Equal(t, int64(3), in.Quantity)
	assert.Nil(t, in.CreatedBy)

	level, err = repo.GetLevel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10), level.Quantity)
	assert.Equal(t, int64(10), level.AvailableQuantity)

	movements, err := repo.ListMovements(ctx, stock.MovementFilter{Reference: ref})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, movements[0].QuantityAfter, movements[1].QuantityBefore)
}

func TestLedger_DeductCreatesLevelLazily(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := newLedger(t, stock.PolicyBackorder)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}

	m, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 2}, stock.OrderReference{OrderID: id.New()}, "", actor.System())
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.QuantityBefore)
	assert.Equal(t, int64(-2), m.QuantityAfter)

	level, err := repo.GetLevel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), level.Quantity)
	assert.Equal(t, int64(-2), level.AvailableQuantity)
}

func TestLedger_RejectLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	ledger, repo, txm := newLedger(t, stock.PolicyReject)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	seed(t, ledger, key, 1)

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 5}, stock.OrderReference{OrderID: id.New()}, "", actor.System())
		return err
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	level, err := repo.GetLevel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), level.Quantity)

	movements, err := repo.ListMovements(ctx, stock.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, movements, 1, "only the opening balance")
}

func TestLedger_ClampStopsAtZero(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedger(t, stock.PolicyClamp)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	seed(t, ledger, key, 3)

	m, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 5}, stock.OrderReference{OrderID: id.New()}, "", actor.System())
	require.NoError(t, err)
	assert.Equal(t, stock.MovementOut, m.Type)
	assert.Equal(t, int64(-3), m.Quantity)
	assert.Equal(t, int64(0), m.QuantityAfter)
}

func TestLedger_ClampedDeductionRestoresWhatWasTaken(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := newLedger(t, stock.PolicyClamp)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	seed(t, ledger, key, 2)
	ref := stock.OrderReference{OrderID: id.New()}

	out, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 5}, ref, "", actor.System())
	require.NoError(t, err)
	assert.Equal(t, int64(-2), out.Quantity)

	in, err := ledger.Restore(ctx, stock.Line{Key: key, Quantity: 5}, ref, "", actor.System())
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.Equal(t, int64(2), in.Quantity)

	level, err := repo.GetLevel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), level.Quantity)
	assert.Equal(t, int64(2), level.AvailableQuantity)

	// a second restore finds nothing held
	again, err := ledger.Restore(ctx, stock.Line{Key: key, Quantity: 5}, ref, "", actor.System())
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestLedger_ClampAtZeroWritesNoMovement(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := newLedger(t, stock.PolicyClamp)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	seed(t, ledger, key, 1)
	ref := stock.OrderReference{OrderID: id.New()}

	_, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 1}, ref, "", actor.System())
	require.NoError(t, err)
	m, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 3}, stock.OrderReference{OrderID: id.New()}, "", actor.System())
	require.NoError(t, err)
	assert.Nil(t, m)

	movements, err := repo.ListMovements(ctx, stock.MovementFilter{ProductID: &key.ProductID})
	require.NoError(t, err)
	assert.Len(t, movements, 2, "opening balance and the first deduction")

	_, err = ledger.Adjust(ctx, key, -1, nil, stock.AdjustmentReference{AdjustmentID: id.New()}, "", actor.System())
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestLedger_RestoreIgnoresOtherReferences(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newLedger(t, stock.PolicyReject)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	seed(t, ledger, key, 10)

	_, err := ledger.Deduct(ctx, stock.Line{Key: key, Quantity: 4}, stock.OrderReference{OrderID: id.New()}, "", actor.System())
	require.NoError(t, err)

	m, err := ledger.Restore(ctx, stock.Line{Key: key, Quantity: 4}, stock.OrderReference{OrderID: id.New()}, "", actor.System())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLedger_AdjustWithoutCostKeepsAverage(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := newLedger(t, stock.PolicyReject)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	ref := stock.AdjustmentReference{AdjustmentID: id.New()}

	_, err := ledger.Adjust(ctx, key, 20, cost("8.00"), ref, "", actor.System())
	require.NoError(t, err)
	m, err := ledger.Adjust(ctx, key, 10, nil, ref, "recount", actor.System())
	require.NoError(t, err)
	assert.True(t, m.UnitCost.Equal(types.MustMoney("8.00")), m.UnitCost.String())

	level, err := repo.GetLevel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(30), level.Quantity)
	assert.True(t, level.AverageCost.Equal(types.MustMoney("8.00")), level.AverageCost.String())
}

func TestLedger_RestoreWithoutLevelIsSkipped(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := newLedger(t, stock.PolicyReject)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}

	m, err := ledger.Restore(ctx, stock.Line{Key: key, Quantity: 2}, stock.OrderReference{OrderID: id.New()}, "", actor.System())
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = repo.GetLevel(ctx, key)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLedger_AdjustAveragesCost(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := newLedger(t, stock.PolicyReject)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}
	ref := stock.AdjustmentReference{AdjustmentID: id.New()}

	_, err := ledger.Adjust(ctx, key, 10, cost("2.00"), ref, "", actor.System())
	require.NoError(t, err)
	_, err = ledger.Adjust(ctx, key, 10, cost("4.00"), ref, "", actor.System())
	require.NoError(t, err)

	level, err := repo.GetLevel(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(20), level.Quantity)
	assert.True(t, level.AverageCost.Equal(types.MustMoney("3.00")), level.AverageCost.String())

	_, err = ledger.Adjust(ctx, key, 0, nil, ref, "", actor.System())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	m, err := ledger.Adjust(ctx, key, -5, nil, ref, "", actor.System())
	require.NoError(t, err)
	assert.Equal(t, stock.MovementOut, m.Type)
	assert.Equal(t, int64(15), m.QuantityAfter)
}

func TestService_Adjust(t *testing.T) {
	ctx := context.Background()
	ledger, repo, txm := newLedger(t, stock.PolicyReject)
	svc := stock.NewService(repo, ledger, txm)
	key := stock.Key{ProductID: id.New(), WarehouseID: id.New()}

	_, err := svc.Adjust(ctx, stock.AdjustmentInput{Key: key}, actor.System())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	m, err := svc.Adjust(ctx, stock.AdjustmentInput{Key: key, Delta: 4, UnitCost: cost("1.50")}, actor.System())
	require.NoError(t, err)
	assert.Equal(t, "Manual stock adjustment", m.Note)
	assert.Equal(t, stock.ReferenceAdjustment, m.Reference.Kind())

	_, err = svc.Adjust(ctx, stock.AdjustmentInput{Key: key, Delta: -9}, actor.System())
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	levels, err := svc.ListLevels(ctx, stock.LevelFilter{ProductID: &key.ProductID})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, int64(4), levels[0].Quantity)

	movements, err := svc.ListMovements(ctx, stock.MovementFilter{ProductID: &key.ProductID})
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}
