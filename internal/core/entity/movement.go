package entity

import (
	"math"
	"time"

	"stockledger/internal/core/id"
)

// StockMovement is one append-only ledger entry: the balance change a single
// transaction item caused for its product.
// Invariant: QuantityAfter = QuantityBefore + QuantityChange.
type StockMovement struct {
	ID                id.ID           `db:"id" json:"id"`
	ProductID         id.ID           `db:"product_id" json:"productId"`
	TransactionID     id.ID           `db:"transaction_id" json:"transactionId"`
	TransactionItemID id.ID           `db:"transaction_item_id" json:"transactionItemId"`
	MovementType      TransactionType `db:"movement_type" json:"movementType"`

	// Sequence is the 1-based position of the entry in the product's history.
	Sequence int64 `db:"sequence" json:"sequence"`

	QuantityBefore int64     `db:"quantity_before" json:"quantityBefore"`
	QuantityChange int64     `db:"quantity_change" json:"quantityChange"`
	QuantityAfter  int64     `db:"quantity_after" json:"quantityAfter"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// IsBalanced reports whether the entry satisfies after = before + change.
// An entry whose sum does not fit in int64 is never balanced.
func (m StockMovement) IsBalanced() bool {
	after, ok := AddQuantity(m.QuantityBefore, m.QuantityChange)
	return ok && m.QuantityAfter == after
}

// AddQuantity returns q + change, or false when the sum overflows int64.
func AddQuantity(q, change int64) (int64, bool) {
	if change > 0 && q > math.MaxInt64-change || change < 0 && q < math.MinInt64-change {
		return 0, false
	}
	return q + change, true
}

// SubQuantity returns a - b, or false when the difference overflows int64.
func SubQuantity(a, b int64) (int64, bool) {
	if b > 0 && a < math.MinInt64+b || b < 0 && a > math.MaxInt64+b {
		return 0, false
	}
	return a - b, true
}

// StockBalance is the running balance of a product: the tail of its movement chain.
// A product without movements has Quantity 0 and Sequence 0.
type StockBalance struct {
	ProductID      id.ID      `db:"product_id" json:"productId"`
	Quantity       int64      `db:"quantity" json:"quantity"`
	Sequence       int64      `db:"sequence" json:"sequence"`
	LastMovementAt *time.Time `db:"last_movement_at" json:"lastMovementAt,omitempty"`
}

// CanApply reports whether change keeps the balance inside int64.
func (b StockBalance) CanApply(change int64) bool {
	_, ok := AddQuantity(b.Quantity, change)
	return ok
}

// Apply returns the movement that applies change on top of the balance,
// and the balance that results from it. Callers check CanApply first.
func (b StockBalance) Apply(change int64, at time.Time) (StockMovement, StockBalance) {
	m := StockMovement{
		ID:             id.New(),
		ProductID:      b.ProductID,
		Sequence:       b.Sequence + 1,
		QuantityBefore: b.Quantity,
		QuantityChange: change,
		QuantityAfter:  b.Quantity + change,
		CreatedAt:      at,
	}
	next := StockBalance{
		ProductID:      b.ProductID,
		Quantity:       m.QuantityAfter,
		Sequence:       m.Sequence,
		LastMovementAt: &m.CreatedAt,
	}
	return m, next
}
