package numerator

import (
	"context"
	"time"
)

// Generator issues reference numbers.
// Implementations live in the infrastructure layer.
type Generator interface {
	// GetNextNumber generates the next number for cfg in the given period.
	// Pattern: PREFIX-YYYYMMDD-NNNNN (e.g., OUT-20261019-00042)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves the sequence (for data migrations).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
