// Package entity provides core ledger entities.
package entity

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// TransactionType is the kind of a stock transaction.
// Every movement carries the type of the transaction that produced it.
type TransactionType string

const (
	TransactionTypeIn        TransactionType = "IN"
	TransactionTypeOut       TransactionType = "OUT"
	TransactionTypeAdjust    TransactionType = "ADJUST"
	TransactionTypeReturnIn  TransactionType = "RETURN_IN"
	TransactionTypeReturnOut TransactionType = "RETURN_OUT"
)

// TransactionTypes lists all known types in display order.
var TransactionTypes = []TransactionType{
	TransactionTypeIn,
	TransactionTypeOut,
	TransactionTypeAdjust,
	TransactionTypeReturnIn,
	TransactionTypeReturnOut,
}

// IsValid reports whether t is one of the known types.
func (t TransactionType) IsValid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Outbound reports whether the type removes stock and must be covered by the balance.
func (t TransactionType) Outbound() bool {
	return t == TransactionTypeOut || t == TransactionTypeReturnOut
}

// ReferencePrefix is the prefix of reference numbers issued for the type.
func (t TransactionType) ReferencePrefix() string {
	switch t {
	case TransactionTypeAdjust:
		return "ADJ"
	case TransactionTypeReturnIn:
		return "RTI"
	case TransactionTypeReturnOut:
		return "RTO"
	default:
		return string(t)
	}
}

// StockTransaction is the immutable header of a committed transaction.
type StockTransaction struct {
	ID              id.ID           `db:"id" json:"id"`
	ReferenceNumber string          `db:"reference_number" json:"referenceNumber"`
	Type            TransactionType `db:"type" json:"type"`
	TransactionDate time.Time       `db:"transaction_date" json:"transactionDate"`
	SupplierID      *id.ID          `db:"supplier_id" json:"supplierId,omitempty"`
	Notes           string          `db:"notes" json:"notes,omitempty"`
	CreatedBy       string          `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`

	Items     []TransactionItem `db:"-" json:"items"`
	Movements []StockMovement   `db:"-" json:"movements,omitempty"`
}

// TransactionItem is one line of a transaction.
// Quantity is the magnitude stated by the user; for ADJUST it is the signed delta.
type TransactionItem struct {
	ID            id.ID        `db:"id" json:"id"`
	TransactionID id.ID        `db:"transaction_id" json:"transactionId"`
	LineNo        int          `db:"line_no" json:"lineNo"`
	ProductID     id.ID        `db:"product_id" json:"productId"`
	Quantity      int64        `db:"quantity" json:"quantity"`
	UnitCost      *types.Money `db:"unit_cost" json:"unitCost,omitempty"`
	UnitPrice     *types.Money `db:"unit_price" json:"unitPrice,omitempty"`
}

// ProductIDs returns the product of every item, in line order.
func (t *StockTransaction) ProductIDs() []id.ID {
	ids := make([]id.ID, len(t.Items))
	for i, item := range t.Items {
		ids[i] = item.ProductID
	}
	return ids
}
