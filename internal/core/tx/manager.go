// Package tx defines the write-unit abstraction used by the ledger.
// Domain services depend on these interfaces; implementations live in
// infrastructure/storage/postgres and infrastructure/storage/memory.
package tx

import (
	"context"
)

// Manager opens a write unit. Everything fn writes through repositories that
// share the unit is committed together when fn returns nil and discarded otherwise.
type Manager interface {
	// RunInTransaction executes fn within a write unit.
	// Nested calls reuse the existing unit from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
