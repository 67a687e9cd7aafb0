// Package numerator provides domain contracts for reference-number generation.
package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict increments the sequence row for every number.
	// Run inside the caller's write unit it yields gapless numbers, since a
	// rolled back commit also rolls back the increment.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if the process restarts.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Reset periods.
const (
	ResetDaily   = "day"
	ResetMonthly = "month"
	ResetYearly  = "year"
	ResetNever   = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "IN", "ADJ")
	Prefix string

	// DateLayout stamps the period into the number; empty omits the date part.
	DateLayout string

	// PadWidth is the minimum width of the sequence part (default 5)
	PadWidth int

	// ResetPeriod: "day", "month", "year", "never"
	ResetPeriod string
}

// DefaultConfig returns the reference-number layout PREFIX-YYYYMMDD-NNNNN
// with a sequence that restarts every day.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		DateLayout:  "20060102",
		PadWidth:    5,
		ResetPeriod: ResetDaily,
	}
}

// Key returns the sequence key the period belongs to.
func Key(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case ResetDaily:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01_02"))
	case ResetMonthly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case ResetYearly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders the final number string.
// Numbers of one prefix sort lexicographically in issue order.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.DateLayout != "" {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format(cfg.DateLayout), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// Parse extracts the sequence part of a formatted number.
// Returns -1 if parsing fails.
func Parse(formatted string) int64 {
	idx := strings.LastIndex(formatted, "-")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil || num < 0 {
		return -1
	}
	return num
}
