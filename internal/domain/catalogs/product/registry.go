package product

import (
	"context"

	"stockledger/internal/core/id"
)

// Registry is the read-only product lookup used by the ledger.
type Registry interface {
	// GetProduct returns apperror ProductNotFound for unknown ids.
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)

	// GetProducts returns the known products among ids; unknown ids are absent from the map.
	GetProducts(ctx context.Context, ids []id.ID) (map[id.ID]Product, error)

	// ListProducts returns every product ordered by SKU.
	ListProducts(ctx context.Context) ([]Product, error)
}
