package memory

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/registers/stock"
)

var _ stock.Repository = (*Store)(nil)

// GetBalances returns the chain tails, including entries staged by the current unit.
func (s *Store) GetBalances(ctx context.Context, productIDs []id.ID) (map[id.ID]entity.StockBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[id.ID]entity.StockBalance, len(productIDs))
	for _, pid := range productIDs {
		out[pid] = tail(pid, s.movements[pid])
	}
	if u := unitFrom(ctx); u != nil {
		for _, m := range u.movements {
			if _, ok := out[m.ProductID]; ok {
				out[m.ProductID] = balanceOf(m)
			}
		}
	}
	return out, nil
}

// ListBalances returns the committed tail of every product with movements.
func (s *Store) ListBalances(ctx context.Context) ([]entity.StockBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.StockBalance, 0, len(s.movements))
	for pid, ms := range s.movements {
		if len(ms) > 0 {
			out = append(out, tail(pid, ms))
		}
	}
	return out, nil
}

// AppendMovements stages entries in the current unit. Each entry must extend
// its product's chain by exactly one.
func (s *Store) AppendMovements(ctx context.Context, movements []entity.StockMovement) error {
	u := unitFrom(ctx)
	if u == nil {
		return s.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.AppendMovements(ctx, movements)
		})
	}

	ids := make([]id.ID, len(movements))
	for i, m := range movements {
		ids[i] = m.ProductID
	}
	tails, err := s.GetBalances(ctx, id.SortedUnique(ids))
	if err != nil {
		return err
	}

	for _, m := range movements {
		t := tails[m.ProductID]
		if m.Sequence != t.Sequence+1 {
			return apperror.NewConcurrentModification("product", m.ProductID.String())
		}
		tails[m.ProductID] = balanceOf(m)
		u.movements = append(u.movements, m)
	}
	return nil
}

// ListMovements returns one stock card page.
func (s *Store) ListMovements(ctx context.Context, productID id.ID, filter stock.MovementFilter) ([]stock.CardEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.StockMovement, 0, len(s.movements[productID]))
	for _, m := range s.movements[productID] {
		if filter.FromDate != nil && m.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && m.CreatedAt.After(*filter.ToDate) {
			continue
		}
		if filter.MovementType != nil && m.MovementType != *filter.MovementType {
			continue
		}
		matched = append(matched, m)
	}
	sortMovements(matched, filter.Descending)

	total := int64(len(matched))
	page := paginate(matched, filter.Offset, filter.Limit)

	entries := make([]stock.CardEntry, len(page))
	for i, m := range page {
		entries[i] = stock.CardEntry{StockMovement: m}
		if t, ok := s.txIndex[m.TransactionID]; ok {
			entries[i].ReferenceNumber = t.ReferenceNumber
			entries[i].TransactionDate = t.TransactionDate
		}
	}
	return entries, total, nil
}

// ProductMovements returns the committed history of a product, oldest first.
func (s *Store) ProductMovements(ctx context.Context, productID id.ID) ([]entity.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]entity.StockMovement(nil), s.movements[productID]...)
	sortMovements(out, false)
	return out, nil
}

// TransactionMovements returns the movements of one transaction in line order.
func (s *Store) TransactionMovements(ctx context.Context, transactionID id.ID) ([]entity.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.StockMovement{}, s.byTxn[transactionID]...), nil
}

func tail(productID id.ID, ms []entity.StockMovement) entity.StockBalance {
	if len(ms) == 0 {
		return entity.StockBalance{ProductID: productID}
	}
	return balanceOf(ms[len(ms)-1])
}

func balanceOf(m entity.StockMovement) entity.StockBalance {
	at := m.CreatedAt
	return entity.StockBalance{
		ProductID:      m.ProductID,
		Quantity:       m.QuantityAfter,
		Sequence:       m.Sequence,
		LastMovementAt: &at,
	}
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
