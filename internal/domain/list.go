// Package domain provides types shared by the ledger's domain packages.
package domain

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Page limits for list operations.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// NormalizeLimit clamps limit into (0, MaxLimit], substituting DefaultLimit for 0.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
