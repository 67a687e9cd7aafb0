// Package memory is the in-process storage adapter. It backs the demo mode of
// the server and the domain tests with the same contracts the Postgres adapter
// implements.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/domain/ledger"
)

// ErrNoUnit is returned by write operations that need an open write unit.
var ErrNoUnit = errors.New("memory: operation requires a write unit")

// Store holds all committed state. Writes are staged in a unit and applied
// atomically when RunInTransaction's function returns nil.
type Store struct {
	mu sync.RWMutex

	products  map[id.ID]product.Product
	suppliers map[id.ID]supplier.Supplier

	transactions []*entity.StockTransaction
	txIndex      map[id.ID]*entity.StockTransaction
	references   map[string]struct{}

	movements map[id.ID][]entity.StockMovement
	byTxn     map[id.ID][]entity.StockMovement
	events    []ledger.Event

	locks    *lockTable
	counters *counterTable
}

// New creates an empty store.
func New() *Store {
	return &Store{
		products:   make(map[id.ID]product.Product),
		suppliers:  make(map[id.ID]supplier.Supplier),
		txIndex:    make(map[id.ID]*entity.StockTransaction),
		references: make(map[string]struct{}),
		movements:  make(map[id.ID][]entity.StockMovement),
		byTxn:      make(map[id.ID][]entity.StockMovement),
		locks:      newLockTable(),
		counters:   newCounterTable(),
	}
}

var (
	_ tx.Manager           = (*Store)(nil)
	_ product.Registry     = (*Store)(nil)
	_ supplier.Directory   = (*Store)(nil)
	_ ledger.Repository    = (*Store)(nil)
	_ ledger.EventRecorder = (*Store)(nil)
)

// unit is a write unit: staged writes plus the product locks it holds.
type unit struct {
	transactions []*entity.StockTransaction
	movements    []entity.StockMovement
	events       []ledger.Event
	held         []*sync.Mutex
	locked       map[id.ID]struct{}
}

type unitKey struct{}

func unitFrom(ctx context.Context) *unit {
	u, _ := ctx.Value(unitKey{}).(*unit)
	return u
}

// RunInTransaction executes fn within a write unit. Nested calls join the
// outer unit. Product locks taken by fn are released when the unit ends.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if unitFrom(ctx) != nil {
		return fn(ctx)
	}

	u := &unit{locked: make(map[id.ID]struct{})}
	defer u.release()

	if err := fn(context.WithValue(ctx, unitKey{}, u)); err != nil {
		return err
	}
	return s.apply(u)
}

func (u *unit) release() {
	for i := len(u.held) - 1; i >= 0; i-- {
		u.held[i].Unlock()
	}
	u.held = nil
}

// apply publishes staged writes. Conflicts leave the store untouched.
func (s *Store) apply(u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range u.transactions {
		if _, taken := s.references[t.ReferenceNumber]; taken {
			return apperror.NewDuplicate("stock transaction", "reference_number", t.ReferenceNumber)
		}
	}

	tails := make(map[id.ID]int64)
	for _, m := range u.movements {
		tail, ok := tails[m.ProductID]
		if !ok {
			tail = int64(len(s.movements[m.ProductID]))
		}
		if m.Sequence != tail+1 {
			return apperror.NewConcurrentModification("product", m.ProductID.String())
		}
		tails[m.ProductID] = m.Sequence
	}

	for _, t := range u.transactions {
		stored := cloneTransaction(t)
		s.transactions = append(s.transactions, stored)
		s.txIndex[t.ID] = stored
		s.references[t.ReferenceNumber] = struct{}{}
	}
	for _, m := range u.movements {
		s.movements[m.ProductID] = append(s.movements[m.ProductID], m)
		s.byTxn[m.TransactionID] = append(s.byTxn[m.TransactionID], m)
	}
	s.events = append(s.events, u.events...)
	return nil
}

// Record stages event in the current unit; it becomes visible in Events on commit.
func (s *Store) Record(ctx context.Context, event ledger.Event) error {
	u := unitFrom(ctx)
	if u == nil {
		return ErrNoUnit
	}
	u.events = append(u.events, event)
	return nil
}

// Events returns the committed events in commit order.
func (s *Store) Events() []ledger.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Event, len(s.events))
	copy(out, s.events)
	return out
}

// lockTable hands out one mutex per product.
type lockTable struct {
	mu    sync.Mutex
	locks map[id.ID]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[id.ID]*sync.Mutex)}
}

func (t *lockTable) get(productID id.ID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[productID] = l
	}
	return l
}

// LockProducts locks every product for the rest of the unit. ids are locked in
// ascending order whatever order the caller passes.
func (s *Store) LockProducts(ctx context.Context, productIDs []id.ID) error {
	u := unitFrom(ctx)
	if u == nil {
		return ErrNoUnit
	}
	for _, pid := range id.SortedUnique(productIDs) {
		if _, ok := u.locked[pid]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		l := s.locks.get(pid)
		l.Lock()
		u.held = append(u.held, l)
		u.locked[pid] = struct{}{}
	}
	return nil
}

func cloneTransaction(t *entity.StockTransaction) *entity.StockTransaction {
	c := *t
	c.Items = append([]entity.TransactionItem(nil), t.Items...)
	c.Movements = nil
	return &c
}

func sortMovements(ms []entity.StockMovement, descending bool) {
	sort.SliceStable(ms, func(i, j int) bool {
		if descending {
			return ms[i].Sequence > ms[j].Sequence
		}
		return ms[i].Sequence < ms[j].Sequence
	})
}
