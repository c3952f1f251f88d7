package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// GetMonthlyPerformance returns one row per month that has orders.
	// Months without orders may be omitted.
	GetMonthlyPerformance(ctx context.Context, filter MonthlyPerformanceFilter) ([]MonthlyPerformanceRow, error)

	// GetStockValuation returns stock levels with product names.
	GetStockValuation(ctx context.Context, filter StockValuationFilter) ([]StockValuationRow, error)
}
