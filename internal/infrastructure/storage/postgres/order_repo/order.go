// Package order_repo provides the PostgreSQL implementation of order.Repository.
package order_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/order"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	ordersTable    = "orders"
	itemsTable     = "order_items"
	addressesTable = "order_addresses"
	paymentsTable  = "order_payments"
	notesTable     = "order_notes"
)

// immutable columns are never part of an UPDATE.
var immutableColumns = map[string]bool{
	"id":         true,
	"number":     true,
	"kind":       true,
	"version":    true,
	"created_by": true,
	"created_at": true,
}

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txManager *postgres.TxManager
	codec     *postgres.SnapshotCodec
	builder   squirrel.StatementBuilderType
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager, codec *postgres.SnapshotCodec) *OrderRepo {
	return &OrderRepo{
		txManager: txManager,
		codec:     codec,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ order.Repository = (*OrderRepo)(nil)

// Create inserts the header and every child collection.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	q := r.builder.Insert(ordersTable).SetMap(postgres.StructToMap(toOrderRow(o)))
	if err := r.exec(ctx, q, "insert order"); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("order", "number", o.Number)
		}
		return err
	}

	if err := r.insertItems(ctx, o.Items); err != nil {
		return err
	}
	if err := r.insertAddresses(ctx, o.Addresses); err != nil {
		return err
	}
	for _, p := range o.Payments {
		if err := r.CreatePayment(ctx, p); err != nil {
			return err
		}
	}
	for _, n := range o.Notes {
		if err := r.AddNote(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Update writes the header with optimistic locking and bumps o.Version.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	q, err := buildUpdate(r.builder, toOrderRow(o))
	if err != nil {
		return err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.getHeader(ctx, squirrel.Eq{"id": o.ID}, o.ID.String()); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("order", o.ID)
	}

	o.Version++
	return nil
}

func buildUpdate(b squirrel.StatementBuilderType, row orderRow) (squirrel.UpdateBuilder, error) {
	data := postgres.StructToMap(row)
	set := make(map[string]any, len(data))
	for col, val := range data {
		if !immutableColumns[col] {
			set[col] = val
		}
	}
	if len(set) == 0 {
		return squirrel.UpdateBuilder{}, fmt.Errorf("no columns to update")
	}

	return b.Update(ordersTable).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": row.ID}).
		Where(squirrel.Eq{"version": row.Version}), nil
}

// ReplaceItems deletes and re-inserts the order's lines.
func (r *OrderRepo) ReplaceItems(ctx context.Context, orderID id.ID, items []order.Item) error {
	if err := r.exec(ctx, r.builder.Delete(itemsTable).Where(squirrel.Eq{"order_id": orderID}), "delete items"); err != nil {
		return err
	}
	return r.insertItems(ctx, items)
}

// ReplaceAddresses deletes and re-inserts the order's addresses.
func (r *OrderRepo) ReplaceAddresses(ctx context.Context, orderID id.ID, addresses []order.Address) error {
	if err := r.exec(ctx, r.builder.Delete(addressesTable).Where(squirrel.Eq{"order_id": orderID}), "delete addresses"); err != nil {
		return err
	}
	return r.insertAddresses(ctx, addresses)
}

func (r *OrderRepo) insertItems(ctx context.Context, items []order.Item) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(items))
	for _, it := range items {
		row, err := toItemRow(r.codec, it)
		if err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
		rows = append(rows, row.values())
	}

	// Fast path: COPY when inside a transaction.
	if r.txManager.GetTx(ctx) != nil {
		if _, err := postgres.NewBatchInserter(r.txManager).CopyFromSlice(ctx, itemsTable, itemColumns, rows); err != nil {
			return fmt.Errorf("copy items: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(itemsTable).Columns(itemColumns...)
	for _, values := range rows {
		q = q.Values(values...)
	}
	return r.exec(ctx, q, "insert items")
}

func (r *OrderRepo) insertAddresses(ctx context.Context, addresses []order.Address) error {
	if len(addresses) == 0 {
		return nil
	}
	q := r.builder.Insert(addressesTable).Columns(addressColumns...)
	for _, a := range addresses {
		row := toAddressRow(a)
		q = q.Values(row.ID, row.OrderID, row.Type, row.Name, row.Phone, row.Line1, row.Line2,
			row.City, row.State, row.PostalCode, row.Country)
	}
	return r.exec(ctx, q, "insert addresses")
}

// GetByID loads an order with all child collections.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.load(ctx, squirrel.Eq{"id": orderID}, orderID.String())
}

// GetByNumber loads an order by its human-readable number.
func (r *OrderRepo) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.load(ctx, squirrel.Eq{"number": number}, number)
}

func (r *OrderRepo) load(ctx context.Context, where squirrel.Eq, key string) (*order.Order, error) {
	o, err := r.getHeader(ctx, where, key)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) getHeader(ctx context.Context, where squirrel.Eq, key string) (*order.Order, error) {
	sql, args, err := r.builder.Select(orderColumns...).From(ordersTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row orderRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", key)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return row.toDomain()
}

func (r *OrderRepo) loadChildren(ctx context.Context, o *order.Order) error {
	querier := r.txManager.GetQuerier(ctx)

	var items []itemRow
	if err := r.selectChildren(ctx, querier, &items, itemsTable, itemColumns, o.ID, "line_no"); err != nil {
		return err
	}
	o.Items = make([]order.Item, 0, len(items))
	for _, row := range items {
		it, err := row.toDomain(r.codec)
		if err != nil {
			return fmt.Errorf("decode item: %w", err)
		}
		o.Items = append(o.Items, it)
	}

	var addresses []addressRow
	if err := r.selectChildren(ctx, querier, &addresses, addressesTable, addressColumns, o.ID, "type"); err != nil {
		return err
	}
	o.Addresses = make([]order.Address, 0, len(addresses))
	for _, row := range addresses {
		o.Addresses = append(o.Addresses, row.toDomain())
	}

	var payments []paymentRow
	if err := r.selectChildren(ctx, querier, &payments, paymentsTable, paymentColumns, o.ID, "created_at"); err != nil {
		return err
	}
	o.Payments = make([]order.Payment, 0, len(payments))
	for _, row := range payments {
		o.Payments = append(o.Payments, row.toDomain())
	}

	var notes []noteRow
	if err := r.selectChildren(ctx, querier, &notes, notesTable, noteColumns, o.ID, "created_at"); err != nil {
		return err
	}
	o.Notes = make([]order.Note, 0, len(notes))
	for _, row := range notes {
		o.Notes = append(o.Notes, row.toDomain())
	}
	return nil
}

func (r *OrderRepo) selectChildren(ctx context.Context, querier postgres.Querier, dst any, table string, columns []string, orderID id.ID, orderBy string) error {
	sql, args, err := r.builder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy(orderBy, "id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, dst, sql, args...); err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return nil
}

// List returns order headers without child collections, newest first.
func (r *OrderRepo) List(ctx context.Context, filter order.ListFilter) (*order.ListResult, error) {
	where := listConditions(filter)
	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From(ordersTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(where).
		OrderBy("order_date DESC", "number DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []orderRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	items := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}

	return &order.ListResult{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func listConditions(f order.ListFilter) squirrel.And {
	where := squirrel.And{}
	if f.Kind != nil {
		where = append(where, squirrel.Eq{"kind": string(*f.Kind)})
	}
	if f.Status != nil {
		where = append(where, squirrel.Eq{"status": string(*f.Status)})
	}
	if f.DateFrom != nil {
		where = append(where, squirrel.GtOrEq{"order_date": *f.DateFrom})
	}
	if f.DateTo != nil {
		where = append(where, squirrel.LtOrEq{"order_date": *f.DateTo})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, squirrel.ILike{"number": "%" + s + "%"})
	}
	return where
}

// AddNote appends a note.
func (r *OrderRepo) AddNote(ctx context.Context, note order.Note) error {
	q := r.builder.Insert(notesTable).SetMap(postgres.StructToMap(toNoteRow(note)))
	return r.exec(ctx, q, "insert note")
}

// CreatePayment inserts a payment record.
func (r *OrderRepo) CreatePayment(ctx context.Context, p order.Payment) error {
	q := r.builder.Insert(paymentsTable).SetMap(postgres.StructToMap(toPaymentRow(p)))
	return r.exec(ctx, q, "insert payment")
}

// UpdatePayment rewrites a payment record in place.
func (r *OrderRepo) UpdatePayment(ctx context.Context, p order.Payment) error {
	row := toPaymentRow(p)
	sql, args, err := r.builder.Update(paymentsTable).
		Set("method", row.Method).
		Set("amount", row.Amount).
		Set("status", row.Status).
		Set("reference", row.Reference).
		Set("paid_at", row.PaidAt).
		Set("updated_at", row.UpdatedAt).
		Where(squirrel.Eq{"id": row.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("payment", p.ID)
	}
	return nil
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func (r *OrderRepo) exec(ctx context.Context, q sqlizer, what string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", what, err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
