package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInsufficientStock_Message(t *testing.T) {
	err := NewInsufficientStock("p-1", 10, 5)

	assert.Equal(t, "Insufficient stock. Available: 5, Requested: 10", err.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, int64(5), err.Details["available"])
	assert.Equal(t, int64(10), err.Details["requested"])
}

func TestNewFieldValidation_NamesField(t *testing.T) {
	err := NewFieldValidation("items[1].unitPrice", "is required")

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "items[1].unitPrice: is required", err.Message)
	assert.Equal(t, "items[1].unitPrice", err.Details["field"])
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create transaction: %w", NewConcurrentModification("product", "p-1"))

	assert.True(t, IsConcurrentModification(wrapped))
	assert.False(t, IsInsufficientStock(wrapped))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "p-1", appErr.Details["id"])
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"generic", NewNotFound("transaction", "t-1"), true},
		{"product", NewProductNotFound("p-1"), true},
		{"validation", NewValidation("bad"), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestNewInternal_HidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:5432: connection refused")
	err := NewInternal(cause)

	assert.Equal(t, "Internal server error", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("x")))
}
