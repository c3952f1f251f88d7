package dto

import (
	"backoffice/internal/domain/reports"
)

// MonthlyPerformanceQuery selects the year and optional order kind.
type MonthlyPerformanceQuery struct {
	Year int    `form:"year" binding:"required"`
	Kind string `form:"kind"`
}

func (q *MonthlyPerformanceQuery) ToFilter() reports.MonthlyPerformanceFilter {
	return reports.MonthlyPerformanceFilter{Year: q.Year, Kind: q.Kind}
}

// StockValuationQuery filters the valuation report.
type StockValuationQuery struct {
	ProductID   *string `form:"productId"`
	WarehouseID *string `form:"warehouseId"`
	ExcludeZero bool    `form:"excludeZero"`
}

func (q *StockValuationQuery) ToFilter() (reports.StockValuationFilter, error) {
	productID, err := parseOptionalID("productId", q.ProductID)
	if err != nil {
		return reports.StockValuationFilter{}, err
	}
	warehouseID, err := parseOptionalID("warehouseId", q.WarehouseID)
	if err != nil {
		return reports.StockValuationFilter{}, err
	}
	return reports.StockValuationFilter{
		ProductID:   productID,
		WarehouseID: warehouseID,
		ExcludeZero: q.ExcludeZero,
	}, nil
}
