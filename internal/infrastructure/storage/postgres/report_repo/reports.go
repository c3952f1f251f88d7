// Package report_repo provides the PostgreSQL implementation of reports.Repository.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/domain/reports"
	"backoffice/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository with SQL aggregation.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ reports.Repository = (*ReportRepo)(nil)

// GetMonthlyPerformance aggregates orders of one year by month. Revenue and
// cost of goods count delivered orders only.
func (r *ReportRepo) GetMonthlyPerformance(ctx context.Context, filter reports.MonthlyPerformanceFilter) ([]reports.MonthlyPerformanceRow, error) {
	sql, args, err := r.monthlyPerformanceQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.MonthlyPerformanceRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("monthly performance: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) monthlyPerformanceQuery(filter reports.MonthlyPerformanceFilter) squirrel.SelectBuilder {
	from := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	// bucket by UTC month to match the UTC year bounds, whatever the session time zone
	q := r.builder.Select(
		"EXTRACT(MONTH FROM o.order_date AT TIME ZONE 'UTC')::int AS month",
		"COUNT(*) AS order_count",
		"COUNT(*) FILTER (WHERE o.status = 'delivered') AS delivered_count",
		"COUNT(*) FILTER (WHERE o.status = 'cancelled') AS cancelled_count",
		"COALESCE(SUM(o.total_amount) FILTER (WHERE o.status = 'delivered'), 0) AS gross_revenue",
		"COALESCE(SUM(c.cost) FILTER (WHERE o.status = 'delivered'), 0) AS cost_of_goods",
	).
		From("orders o").
		JoinClause(`LEFT JOIN LATERAL (
			SELECT SUM(i.quantity * i.unit_cost) AS cost
			FROM order_items i
			WHERE i.order_id = o.id
		) c ON true`).
		Where(squirrel.GtOrEq{"o.order_date": from}).
		Where(squirrel.Lt{"o.order_date": to}).
		GroupBy("1").
		OrderBy("1")

	if filter.Kind != "" {
		q = q.Where(squirrel.Eq{"o.kind": filter.Kind})
	}
	return q
}

// GetStockValuation lists stock levels joined with product names.
func (r *ReportRepo) GetStockValuation(ctx context.Context, filter reports.StockValuationFilter) ([]reports.StockValuationRow, error) {
	sql, args, err := r.stockValuationQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.StockValuationRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("stock valuation: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) stockValuationQuery(filter reports.StockValuationFilter) squirrel.SelectBuilder {
	q := r.builder.Select(
		"l.product_id",
		"l.variant_id",
		"l.warehouse_id",
		"COALESCE(p.name, '') AS product_name",
		"COALESCE(p.sku, '') AS product_sku",
		"l.quantity",
		"l.average_cost",
	).
		From("stock_levels l").
		LeftJoin("products p ON p.id = l.product_id").
		OrderBy("product_sku", "l.warehouse_id")

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"l.warehouse_id": *filter.WarehouseID})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"l.product_id": *filter.ProductID})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"l.quantity": 0})
	}
	return q
}
