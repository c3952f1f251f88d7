package reports

import (
	"context"
	"fmt"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/tx"
	"backoffice/internal/core/types"
)

// Service provides report generation operations.
type Service struct {
	repo     Repository
	readOnly tx.ReadOnlyManager
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithReadOnly runs report queries inside read-only transactions so a
// report sees one consistent snapshot.
func WithReadOnly(txManager tx.ReadOnlyManager) ServiceOption {
	return func(s *Service) { s.readOnly = txManager }
}

// NewService creates a new reports service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.readOnly == nil {
		return fn(ctx)
	}
	return s.readOnly.ReadOnly(ctx, fn)
}

// GetMonthlyPerformance builds the twelve-month performance report for a year.
func (s *Service) GetMonthlyPerformance(ctx context.Context, filter MonthlyPerformanceFilter) (*MonthlyPerformanceReport, error) {
	if filter.Year < 2000 || filter.Year > 2100 {
		return nil, apperror.NewValidation("year must be between 2000 and 2100").
			WithDetail("field", "year").
			WithDetail("value", filter.Year)
	}
	if filter.Kind != "" && filter.Kind != "retail" && filter.Kind != "agent" {
		return nil, apperror.NewValidation("kind must be retail or agent").
			WithDetail("field", "kind").
			WithDetail("value", filter.Kind)
	}

	var rows []MonthlyPerformanceRow
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.GetMonthlyPerformance(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get monthly performance: %w", err)
	}

	report := &MonthlyPerformanceReport{
		Year:   filter.Year,
		Kind:   filter.Kind,
		Months: make([]MonthlyPerformanceRow, 12),
		Totals: MonthlyPerformanceRow{GrossRevenue: types.Zero(), CostOfGoods: types.Zero()},
	}
	for i := range report.Months {
		report.Months[i] = MonthlyPerformanceRow{
			Month:        i + 1,
			GrossRevenue: types.Zero(),
			CostOfGoods:  types.Zero(),
			GrossProfit:  types.Zero(),
		}
	}

	for _, row := range rows {
		if row.Month < 1 || row.Month > 12 {
			continue
		}
		m := &report.Months[row.Month-1]
		m.OrderCount += row.OrderCount
		m.DeliveredCount += row.DeliveredCount
		m.CancelledCount += row.CancelledCount
		m.GrossRevenue = m.GrossRevenue.Add(row.GrossRevenue)
		m.CostOfGoods = m.CostOfGoods.Add(row.CostOfGoods)
	}

	t := &report.Totals
	for i := range report.Months {
		m := &report.Months[i]
		m.GrossRevenue = types.Round(m.GrossRevenue)
		m.CostOfGoods = types.Round(m.CostOfGoods)
		m.GrossProfit = m.GrossRevenue.Sub(m.CostOfGoods)

		t.OrderCount += m.OrderCount
		t.DeliveredCount += m.DeliveredCount
		t.CancelledCount += m.CancelledCount
		t.GrossRevenue = t.GrossRevenue.Add(m.GrossRevenue)
		t.CostOfGoods = t.CostOfGoods.Add(m.CostOfGoods)
	}
	t.GrossProfit = t.GrossRevenue.Sub(t.CostOfGoods)

	return report, nil
}

// GetStockValuation values current stock at average cost.
func (s *Service) GetStockValuation(ctx context.Context, filter StockValuationFilter) (*StockValuationReport, error) {
	var rows []StockValuationRow
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.GetStockValuation(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get stock valuation: %w", err)
	}

	report := &StockValuationReport{Items: rows, TotalValue: types.Zero()}
	for i := range report.Items {
		row := &report.Items[i]
		row.Value = types.Round(row.AverageCost.Mul(types.MoneyFromInt(row.Quantity)))
		report.TotalQty += row.Quantity
		report.TotalValue = report.TotalValue.Add(row.Value)
	}
	return report, nil
}
