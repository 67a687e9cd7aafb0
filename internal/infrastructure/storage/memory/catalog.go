package memory

import (
	"context"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/catalogs/supplier"
)

// AddProduct registers or replaces a product.
func (s *Store) AddProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// AddSupplier registers or replaces a supplier.
func (s *Store) AddSupplier(sup supplier.Supplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[sup.ID] = sup
}

// GetProduct implements product.Registry.
func (s *Store) GetProduct(ctx context.Context, productID id.ID) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, apperror.NewProductNotFound(productID.String())
	}
	return &p, nil
}

// GetProducts implements product.Registry.
func (s *Store) GetProducts(ctx context.Context, ids []id.ID) (map[id.ID]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[id.ID]product.Product, len(ids))
	for _, pid := range ids {
		if p, ok := s.products[pid]; ok {
			out[pid] = p
		}
	}
	return out, nil
}

// ListProducts implements product.Registry.
func (s *Store) ListProducts(ctx context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return id.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

// Exists implements supplier.Directory.
func (s *Store) Exists(ctx context.Context, supplierID id.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.suppliers[supplierID]
	return ok, nil
}
