package memory

import (
	"context"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// Create stages a transaction header with its items.
func (s *Store) Create(ctx context.Context, txn *entity.StockTransaction) error {
	u := unitFrom(ctx)
	if u == nil {
		return ErrNoUnit
	}
	for _, staged := range u.transactions {
		if staged.ReferenceNumber == txn.ReferenceNumber {
			return apperror.NewDuplicate("stock transaction", "reference_number", txn.ReferenceNumber)
		}
	}
	u.transactions = append(u.transactions, cloneTransaction(txn))
	return nil
}

// GetByID loads a committed transaction.
func (s *Store) GetByID(ctx context.Context, transactionID id.ID) (*entity.StockTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txIndex[transactionID]
	if !ok {
		return nil, apperror.NewNotFound("stock transaction", transactionID.String())
	}
	return cloneTransaction(t), nil
}

// List returns committed transactions matching filter, newest first.
func (s *Store) List(ctx context.Context, filter ledger.ListFilter) ([]entity.StockTransaction, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.StockTransaction, 0)
	for _, t := range s.transactions {
		if !matchTransaction(t, filter) {
			continue
		}
		matched = append(matched, *cloneTransaction(t))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ReferenceNumber > matched[j].ReferenceNumber
	})

	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func matchTransaction(t *entity.StockTransaction, f ledger.ListFilter) bool {
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.SupplierID != nil && (t.SupplierID == nil || *t.SupplierID != *f.SupplierID) {
		return false
	}
	if f.FromDate != nil && t.TransactionDate.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && t.TransactionDate.After(*f.ToDate) {
		return false
	}
	if f.ProductID != nil {
		for _, item := range t.Items {
			if item.ProductID == *f.ProductID {
				return true
			}
		}
		return false
	}
	return true
}
