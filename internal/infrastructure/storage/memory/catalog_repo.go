package memory

import (
	"context"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/catalog"
)

// CatalogRepo implements catalog.Repository. Save methods exist for seeding.
type CatalogRepo struct {
	store *Store
}

// NewCatalogRepo creates a catalog repository over store.
func NewCatalogRepo(store *Store) *CatalogRepo {
	return &CatalogRepo{store: store}
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// GetProduct implements catalog.Repository.
func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	defer r.store.lock(ctx)()

	p, ok := r.store.data.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return &p, nil
}

// GetVariant implements catalog.Repository.
func (r *CatalogRepo) GetVariant(ctx context.Context, variantID id.ID) (*catalog.Variant, error) {
	defer r.store.lock(ctx)()

	v, ok := r.store.data.variants[variantID]
	if !ok {
		return nil, apperror.NewNotFound("variant", variantID)
	}
	return &v, nil
}

// SaveProduct inserts or replaces a product.
func (r *CatalogRepo) SaveProduct(ctx context.Context, p catalog.Product) {
	defer r.store.lock(ctx)()
	r.store.data.products[p.ID] = p
}

// SaveVariant inserts or replaces a variant.
func (r *CatalogRepo) SaveVariant(ctx context.Context, v catalog.Variant) {
	defer r.store.lock(ctx)()
	r.store.data.variants[v.ID] = v
}
