package catalog_repo

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

// ProductRepo implements product.Registry.
type ProductRepo struct {
	*BaseCatalogRepo[product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[product.Product](txm, productsTable),
	}
}

// GetProduct returns a product or PRODUCT_NOT_FOUND.
func (r *ProductRepo) GetProduct(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, found, err := r.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NewProductNotFound(productID.String())
	}
	return &p, nil
}

// GetProducts returns the known products among ids.
func (r *ProductRepo) GetProducts(ctx context.Context, ids []id.ID) (map[id.ID]product.Product, error) {
	rows, err := r.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[id.ID]product.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// ListProducts returns every product ordered by SKU.
func (r *ProductRepo) ListProducts(ctx context.Context) ([]product.Product, error) {
	return r.ListAll(ctx, "sku, id")
}

var _ product.Registry = (*ProductRepo)(nil)
