package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Repository stores transaction headers and their items.
type Repository interface {
	// Create inserts the header and all items within the current write unit.
	// A reference number that is already taken fails with apperror DUPLICATE_ENTRY.
	Create(ctx context.Context, txn *entity.StockTransaction) error

	// GetByID loads a transaction with its items.
	GetByID(ctx context.Context, transactionID id.ID) (*entity.StockTransaction, error)

	// List returns headers (items included) matching filter, newest first, and the total count.
	List(ctx context.Context, filter ListFilter) ([]entity.StockTransaction, int64, error)
}

// ListFilter narrows a transaction listing.
type ListFilter struct {
	Type       *entity.TransactionType
	SupplierID *id.ID
	ProductID  *id.ID

	// FromDate and ToDate bound transaction_date, both inclusive.
	FromDate *time.Time
	ToDate   *time.Time

	Limit  int
	Offset int
}
