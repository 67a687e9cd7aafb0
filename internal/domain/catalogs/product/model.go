// Package product describes the product registry the ledger reads from.
// Products are maintained elsewhere; the ledger only looks them up.
package product

import (
	"stockledger/internal/core/id"
)

// Product is the registry view the ledger needs.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`

	// MinimumStock is the low-stock threshold; nil disables low-stock detection.
	MinimumStock *int64 `db:"minimum_stock" json:"minimumStock,omitempty"`
}

// IsLowStock reports whether current is at or below the product's threshold.
func (p Product) IsLowStock(current int64) bool {
	return p.MinimumStock != nil && current <= *p.MinimumStock
}
