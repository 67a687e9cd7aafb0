// Package supplier describes the supplier directory the ledger resolves ids against.
package supplier

import (
	"context"

	"stockledger/internal/core/id"
)

// Supplier is the directory view the ledger needs.
type Supplier struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Directory resolves supplier ids.
type Directory interface {
	Exists(ctx context.Context, supplierID id.ID) (bool, error)
}
