// Package stock provides the movement log contract and the stock calculation engine.
package stock

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Repository is the movement log: an append-only, per-product ordered store of
// stock movements. AppendMovements and LockProducts are called by the transaction
// orchestrator only.
type Repository interface {
	// LockProducts takes an exclusive per-product lock held until the current
	// write unit ends. ids must be sorted; callers use id.SortedUnique.
	LockProducts(ctx context.Context, productIDs []id.ID) error

	// GetBalances returns the tail of every requested product's chain.
	// Products without movements are returned with zero quantity and sequence.
	GetBalances(ctx context.Context, productIDs []id.ID) (map[id.ID]entity.StockBalance, error)

	// ListBalances returns the balance of every product that has at least one movement.
	ListBalances(ctx context.Context) ([]entity.StockBalance, error)

	// AppendMovements writes new entries. An entry whose sequence is already taken
	// fails with apperror CONCURRENT_MODIFICATION.
	AppendMovements(ctx context.Context, movements []entity.StockMovement) error

	// ListMovements returns one page of a product's stock card and the total row count.
	ListMovements(ctx context.Context, productID id.ID, filter MovementFilter) ([]CardEntry, int64, error)

	// ProductMovements returns the full history of a product, oldest first.
	ProductMovements(ctx context.Context, productID id.ID) ([]entity.StockMovement, error)

	// TransactionMovements returns the movements created by one transaction in line order.
	TransactionMovements(ctx context.Context, transactionID id.ID) ([]entity.StockMovement, error)
}

// MovementFilter narrows a stock card query.
type MovementFilter struct {
	// FromDate and ToDate bound created_at, both inclusive.
	FromDate     *time.Time
	ToDate       *time.Time
	MovementType *entity.TransactionType
	Descending   bool
	Limit        int
	Offset       int
}

// CardEntry is a stock card row: a movement with the header of its transaction.
type CardEntry struct {
	entity.StockMovement
	ReferenceNumber string    `db:"reference_number" json:"referenceNumber"`
	TransactionDate time.Time `db:"transaction_date" json:"transactionDate"`
}
