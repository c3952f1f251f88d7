// Package catalog_repo provides the PostgreSQL implementation of catalog.Repository.
package catalog_repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	productsTable = "products"
	variantsTable = "product_variants"
)

var (
	productColumns = postgres.ExtractDBColumns[catalog.Product]()
	variantColumns = postgres.ExtractDBColumns[catalog.Variant]()
)

// CatalogRepo reads products and variants. Upserts exist for seeding.
type CatalogRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txManager *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// GetProduct retrieves a product by ID.
func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	p := new(catalog.Product)
	if err := r.get(ctx, p, productsTable, productColumns, productID); err != nil {
		return nil, err
	}
	return p, nil
}

// GetVariant retrieves a variant by ID.
func (r *CatalogRepo) GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
	v := new(catalog.Variant)
	if err := r.get(ctx, v, variantsTable, variantColumns, variantID); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *CatalogRepo) get(ctx context.Context, dst any, table string, columns []string, entityID id.ID) error {
	sql, args, err := r.builder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": entityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(strings.TrimSuffix(table, "s"), entityID.String())
		}
		return fmt.Errorf("get %s: %w", table, err)
	}
	return nil
}

// UpsertProduct inserts a product or overwrites the existing row.
func (r *CatalogRepo) UpsertProduct(ctx context.Context, p catalog.Product) error {
	return r.upsert(ctx, productsTable, postgres.StructToMap(p))
}

// UpsertVariant inserts a variant or overwrites the existing row.
func (r *CatalogRepo) UpsertVariant(ctx context.Context, v catalog.Variant) error {
	return r.upsert(ctx, variantsTable, postgres.StructToMap(v))
}

func (r *CatalogRepo) upsert(ctx context.Context, table string, data map[string]any) error {
	sql, args, err := upsertQuery(r.builder, table, data).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func upsertQuery(b squirrel.StatementBuilderType, table string, data map[string]any) squirrel.InsertBuilder {
	cols := make([]string, 0, len(data))
	for col := range data {
		if col != "id" {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	updates := make([]string, len(cols))
	for i, col := range cols {
		updates[i] = col + " = EXCLUDED." + col
	}

	return b.Insert(table).
		SetMap(data).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", "))
}
