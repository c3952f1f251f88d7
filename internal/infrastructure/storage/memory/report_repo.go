package memory

import (
	"context"
	"sort"

	"backoffice/internal/core/types"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/reports"
)

// ReportRepo implements reports.Repository by scanning the store.
type ReportRepo struct {
	store *Store
}

// NewReportRepo creates a report repository over store.
func NewReportRepo(store *Store) *ReportRepo {
	return &ReportRepo{store: store}
}

var _ reports.Repository = (*ReportRepo)(nil)

// GetMonthlyPerformance implements reports.Repository.
func (r *ReportRepo) GetMonthlyPerformance(ctx context.Context, filter reports.MonthlyPerformanceFilter) ([]reports.MonthlyPerformanceRow, error) {
	defer r.store.lock(ctx)()

	byMonth := make(map[int]*reports.MonthlyPerformanceRow)
	for _, o := range r.store.data.orders {
		date := o.OrderDate.UTC()
		if date.Year() != filter.Year {
			continue
		}
		if filter.Kind != "" && string(o.Kind) != filter.Kind {
			continue
		}

		month := int(date.Month())
		row, ok := byMonth[month]
		if !ok {
			row = &reports.MonthlyPerformanceRow{
				Month:        month,
				GrossRevenue: types.Zero(),
				CostOfGoods:  types.Zero(),
			}
			byMonth[month] = row
		}

		row.OrderCount++
		switch o.Status {
		case order.StatusCancelled:
			row.CancelledCount++
		case order.StatusDelivered:
			row.DeliveredCount++
			row.GrossRevenue = row.GrossRevenue.Add(o.TotalAmount)
			for _, it := range o.Items {
				row.CostOfGoods = row.CostOfGoods.Add(it.UnitCost.Mul(types.MoneyFromInt(it.Quantity)))
			}
		}
	}

	rows := make([]reports.MonthlyPerformanceRow, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows, nil
}

// GetStockValuation implements reports.Repository.
func (r *ReportRepo) GetStockValuation(ctx context.Context, filter reports.StockValuationFilter) ([]reports.StockValuationRow, error) {
	defer r.store.lock(ctx)()

	rows := make([]reports.StockValuationRow, 0)
	for _, l := range r.store.data.levels {
		if filter.WarehouseID != nil && l.Key.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.ProductID != nil && l.Key.ProductID != *filter.ProductID {
			continue
		}
		if filter.ExcludeZero && l.Quantity == 0 {
			continue
		}

		row := reports.StockValuationRow{
			ProductID:   l.Key.ProductID,
			VariantID:   l.Key.VariantID,
			WarehouseID: l.Key.WarehouseID,
			Quantity:    l.Quantity,
			AverageCost: l.AverageCost,
		}
		if p, ok := r.store.data.products[l.Key.ProductID]; ok {
			row.ProductName = p.Name
			row.ProductSKU = p.SKU
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductSKU != rows[j].ProductSKU {
			return rows[i].ProductSKU < rows[j].ProductSKU
		}
		return rows[i].WarehouseID.String() < rows[j].WarehouseID.String()
	})
	return rows, nil
}
