package memory

import (
	"context"
	"sync"
	"time"

	"stockledger/internal/core/numerator"
)

var _ numerator.Generator = (*Store)(nil)

// counterTable keeps one counter per sequence key. Increments are not rolled
// back with the unit, so a failed commit leaves a gap.
type counterTable struct {
	mu     sync.Mutex
	values map[string]int64
}

func newCounterTable() *counterTable {
	return &counterTable{values: make(map[string]int64)}
}

// GetNextNumber implements numerator.Generator.
func (s *Store) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	key := numerator.Key(cfg, period)

	s.counters.mu.Lock()
	s.counters.values[key]++
	n := s.counters.values[key]
	s.counters.mu.Unlock()

	return numerator.Format(cfg, period, n), nil
}

// SetNextNumber implements numerator.Generator.
func (s *Store) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	key := numerator.Key(cfg, period)

	s.counters.mu.Lock()
	defer s.counters.mu.Unlock()
	s.counters.values[key] = value - 1
	return nil
}
