package reports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/reports"
)

type stubRepo struct {
	rows      []reports.MonthlyPerformanceRow
	valuation []reports.StockValuationRow
	filter    reports.MonthlyPerformanceFilter
}

func (s *stubRepo) GetMonthlyPerformance(_ context.Context, f reports.MonthlyPerformanceFilter) ([]reports.MonthlyPerformanceRow, error) {
	s.filter = f
	return s.rows, nil
}

func (s *stubRepo) GetStockValuation(context.Context, reports.StockValuationFilter) ([]reports.StockValuationRow, error) {
	return s.valuation, nil
}

func TestService_GetMonthlyPerformance(t *testing.T) {
	repo := &stubRepo{rows: []reports.MonthlyPerformanceRow{
		{Month: 3, OrderCount: 4, DeliveredCount: 2, CancelledCount: 1, GrossRevenue: types.MustMoney("100.005"), CostOfGoods: types.MustMoney("40")},
		{Month: 11, OrderCount: 1, DeliveredCount: 1, GrossRevenue: types.MustMoney("10"), CostOfGoods: types.MustMoney("12.50")},
	}}
	svc := reports.NewService(repo)

	report, err := svc.GetMonthlyPerformance(context.Background(), reports.MonthlyPerformanceFilter{Year: 2026, Kind: "agent"})
	require.NoError(t, err)
	assert.Equal(t, "agent", repo.filter.Kind)

	require.Len(t, report.Months, 12)
	assert.Equal(t, 1, report.Months[0].Month)
	assert.Zero(t, report.Months[0].OrderCount)
	assert.True(t, report.Months[0].GrossProfit.IsZero())

	march := report.Months[2]
	assert.Equal(t, int64(4), march.OrderCount)
	assert.Equal(t, "100.01", types.FormatMoney(march.GrossRevenue))
	assert.Equal(t, "60.01", types.FormatMoney(march.GrossProfit))

	assert.Equal(t, "-2.50", types.FormatMoney(report.Months[10].GrossProfit))

	assert.Equal(t, int64(5), report.Totals.OrderCount)
	assert.Equal(t, int64(3), report.Totals.DeliveredCount)
	assert.Equal(t, int64(1), report.Totals.CancelledCount)
	assert.Equal(t, "110.01", types.FormatMoney(report.Totals.GrossRevenue))
	assert.Equal(t, "57.51", types.FormatMoney(report.Totals.GrossProfit))
}

func TestService_GetMonthlyPerformance_Validation(t *testing.T) {
	svc := reports.NewService(&stubRepo{})

	_, err := svc.GetMonthlyPerformance(context.Background(), reports.MonthlyPerformanceFilter{Year: 1999})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.GetMonthlyPerformance(context.Background(), reports.MonthlyPerformanceFilter{Year: 2026, Kind: "vip"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestService_GetStockValuation(t *testing.T) {
	repo := &stubRepo{valuation: []reports.StockValuationRow{
		{ProductID: id.New(), WarehouseID: id.New(), Quantity: 3, AverageCost: types.MustMoney("2.333")},
		{ProductID: id.New(), WarehouseID: id.New(), Quantity: 10, AverageCost: types.MustMoney("1.50")},
	}}
	svc := reports.NewService(repo)

	report, err := svc.GetStockValuation(context.Background(), reports.StockValuationFilter{})
	require.NoError(t, err)
	assert.Equal(t, "7.00", types.FormatMoney(report.Items[0].Value))
	assert.Equal(t, int64(13), report.TotalQty)
	assert.Equal(t, "22.00", types.FormatMoney(report.TotalValue))
}

type countingReadOnly struct{ calls int }

func (c *countingReadOnly) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *countingReadOnly) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}

func TestService_WithReadOnly(t *testing.T) {
	ro := &countingReadOnly{}
	svc := reports.NewService(&stubRepo{}, reports.WithReadOnly(ro))

	_, err := svc.GetMonthlyPerformance(context.Background(), reports.MonthlyPerformanceFilter{Year: 2026})
	require.NoError(t, err)
	_, err = svc.GetStockValuation(context.Background(), reports.StockValuationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, ro.calls)

	// validation fails before any transaction is opened
	_, err = svc.GetMonthlyPerformance(context.Background(), reports.MonthlyPerformanceFilter{Year: 1})
	require.Error(t, err)
	assert.Equal(t, 2, ro.calls)
}
