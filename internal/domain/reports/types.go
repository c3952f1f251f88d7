// Package reports provides report generation services.
package reports

import (
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// --- Monthly Performance Report ---

// MonthlyPerformanceFilter selects the orders the report covers.
type MonthlyPerformanceFilter struct {
	Year int
	// Kind limits the report to "retail" or "agent" orders. Empty means both.
	Kind string
}

// MonthlyPerformanceRow is one month of order activity.
// Revenue and cost count delivered orders only.
type MonthlyPerformanceRow struct {
	Month          int         `json:"month" db:"month"`
	OrderCount     int64       `json:"orderCount" db:"order_count"`
	DeliveredCount int64       `json:"deliveredCount" db:"delivered_count"`
	CancelledCount int64       `json:"cancelledCount" db:"cancelled_count"`
	GrossRevenue   types.Money `json:"grossRevenue" db:"gross_revenue"`
	CostOfGoods    types.Money `json:"costOfGoods" db:"cost_of_goods"`
	GrossProfit    types.Money `json:"grossProfit" db:"-"`
}

// MonthlyPerformanceReport has exactly twelve rows, January first.
type MonthlyPerformanceReport struct {
	Year   int                     `json:"year"`
	Kind   string                  `json:"kind,omitempty"`
	Months []MonthlyPerformanceRow `json:"months"`
	Totals MonthlyPerformanceRow   `json:"totals"`
}

// --- Stock Valuation Report ---

// StockValuationFilter narrows the valuation to one warehouse or product.
type StockValuationFilter struct {
	WarehouseID *id.ID
	ProductID   *id.ID
	ExcludeZero bool
}

// StockValuationRow is the value of one stock level at average cost.
type StockValuationRow struct {
	ProductID   id.ID       `json:"productId" db:"product_id"`
	VariantID   *id.ID      `json:"variantId,omitempty" db:"variant_id"`
	WarehouseID id.ID       `json:"warehouseId" db:"warehouse_id"`
	ProductName string      `json:"productName" db:"product_name"`
	ProductSKU  string      `json:"productSku" db:"product_sku"`
	Quantity    int64       `json:"quantity" db:"quantity"`
	AverageCost types.Money `json:"averageCost" db:"average_cost"`
	Value       types.Money `json:"value" db:"-"`
}

// StockValuationReport lists valued stock levels with the grand total.
type StockValuationReport struct {
	Items      []StockValuationRow `json:"items"`
	TotalQty   int64               `json:"totalQuantity"`
	TotalValue types.Money         `json:"totalValue"`
}
