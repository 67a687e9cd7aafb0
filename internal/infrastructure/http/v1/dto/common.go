// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"fmt"
	"strconv"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// --- Pagination ---

// PaginationRequest contains page-based pagination parameters.
type PaginationRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Offset calculates SQL offset.
func (p PaginationRequest) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// PaginationResponse contains pagination metadata.
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginationResponse creates pagination response.
func NewPaginationResponse(page, limit int, totalItems int64) PaginationResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = int(totalItems) / limit
		if int(totalItems)%limit > 0 {
			totalPages++
		}
	}
	return PaginationResponse{
		Page:       page,
		Limit:      limit,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// GenericListResponse wraps list results with pagination.
type GenericListResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// DataResponse wraps a single payload.
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Parsing helpers ---

// ParseID parses a required identifier named field.
func ParseID(field, raw string) (id.ID, error) {
	if raw == "" {
		return id.Nil(), apperror.NewFieldValidation(field, "is required")
	}
	parsed, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewFieldValidation(field, "must be a valid UUID")
	}
	return parsed, nil
}

// ParseOptionalID parses an identifier that may be absent.
func ParseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. With
// endOfDay a plain date covers the whole day.
func ParseDate(field, raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperror.NewFieldValidation(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ParseBool parses an optional boolean query flag.
func ParseBool(field, raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.NewFieldValidation(field, fmt.Sprintf("must be true or false, got %q", raw))
	}
	return b, nil
}
