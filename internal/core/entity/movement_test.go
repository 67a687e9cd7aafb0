package entity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/id"
)

func TestStockBalance_Apply(t *testing.T) {
	productID := id.New()
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	first, bal := StockBalance{ProductID: productID}.Apply(20, at)
	second, bal := bal.Apply(-8, at.Add(time.Minute))

	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, int64(0), first.QuantityBefore)
	assert.Equal(t, int64(20), first.QuantityAfter)

	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, first.QuantityAfter, second.QuantityBefore)
	assert.Equal(t, int64(12), second.QuantityAfter)
	assert.True(t, second.IsBalanced())

	assert.Equal(t, int64(12), bal.Quantity)
	assert.Equal(t, int64(2), bal.Sequence)
}

func TestQuantityArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b int64) (int64, bool)
		a, b int64
		want int64
		ok   bool
	}{
		{"add", AddQuantity, 20, -8, 12, true},
		{"add to max", AddQuantity, math.MaxInt64 - 1, 1, math.MaxInt64, true},
		{"add past max", AddQuantity, math.MaxInt64, 1, 0, false},
		{"add past min", AddQuantity, math.MinInt64, -1, 0, false},
		{"sub", SubQuantity, 12, 15, -3, true},
		{"sub min from zero", SubQuantity, 0, math.MinInt64, 0, false},
		{"sub past min", SubQuantity, math.MinInt64, 1, 0, false},
		{"sub past max", SubQuantity, math.MaxInt64, -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStockMovement_IsBalancedRejectsWrap(t *testing.T) {
	wrapped := StockMovement{QuantityBefore: math.MaxInt64, QuantityChange: 1, QuantityAfter: math.MinInt64}
	assert.False(t, wrapped.IsBalanced())

	full := StockBalance{Quantity: math.MaxInt64}
	assert.False(t, full.CanApply(1))
	assert.True(t, full.CanApply(-1))
}

func TestTransactionType(t *testing.T) {
	tests := []struct {
		typ      TransactionType
		outbound bool
		prefix   string
	}{
		{TransactionTypeIn, false, "IN"},
		{TransactionTypeOut, true, "OUT"},
		{TransactionTypeAdjust, false, "ADJ"},
		{TransactionTypeReturnIn, false, "RTI"},
		{TransactionTypeReturnOut, true, "RTO"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.True(t, tt.typ.IsValid())
			assert.Equal(t, tt.outbound, tt.typ.Outbound())
			assert.Equal(t, tt.prefix, tt.typ.ReferencePrefix())
		})
	}

	assert.False(t, TransactionType("TRANSFER").IsValid())
}
