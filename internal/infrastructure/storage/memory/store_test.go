package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
)

func movement(productID id.ID, seq, before, change int64) entity.StockMovement {
	return entity.StockMovement{
		ID:             id.New(),
		ProductID:      productID,
		TransactionID:  id.New(),
		MovementType:   entity.TransactionTypeAdjust,
		Sequence:       seq,
		QuantityBefore: before,
		QuantityChange: change,
		QuantityAfter:  before + change,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestRunInTransaction_DiscardsOnError(t *testing.T) {
	s := New()
	pid := id.New()
	boom := errors.New("boom")

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.AppendMovements(ctx, []entity.StockMovement{movement(pid, 1, 0, 5)}))

		staged, err := s.GetBalances(ctx, []id.ID{pid})
		require.NoError(t, err)
		assert.Equal(t, int64(5), staged[pid].Quantity)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	balances, err := s.GetBalances(context.Background(), []id.ID{pid})
	require.NoError(t, err)
	assert.Equal(t, int64(0), balances[pid].Quantity)
	assert.Equal(t, int64(0), balances[pid].Sequence)
}

func TestAppendMovements_RejectsSequenceGap(t *testing.T) {
	s := New()
	pid := id.New()

	require.NoError(t, s.AppendMovements(context.Background(), []entity.StockMovement{movement(pid, 1, 0, 5)}))

	err := s.AppendMovements(context.Background(), []entity.StockMovement{movement(pid, 1, 0, 2)})
	assert.True(t, apperror.IsConcurrentModification(err))

	err = s.AppendMovements(context.Background(), []entity.StockMovement{movement(pid, 2, 5, 2), movement(pid, 3, 7, -1)})
	require.NoError(t, err)

	list, err := s.ListBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(6), list[0].Quantity)
	assert.Equal(t, int64(3), list[0].Sequence)
}

func TestLockProducts_RequiresUnitAndIsReentrant(t *testing.T) {
	s := New()
	pid := id.New()

	assert.ErrorIs(t, s.LockProducts(context.Background(), []id.ID{pid}), ErrNoUnit)

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		if err := s.LockProducts(ctx, []id.ID{pid}); err != nil {
			return err
		}
		return s.LockProducts(ctx, []id.ID{pid, pid})
	})
	require.NoError(t, err)

	// released at the end of the unit
	require.NoError(t, s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return s.LockProducts(ctx, []id.ID{pid})
	}))
}

func TestCreate_DuplicateReference(t *testing.T) {
	s := New()
	txn := &entity.StockTransaction{ID: id.New(), ReferenceNumber: "IN-20261019-00001", Type: entity.TransactionTypeIn}

	require.NoError(t, s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return s.Create(ctx, txn)
	}))

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return s.Create(ctx, &entity.StockTransaction{ID: id.New(), ReferenceNumber: txn.ReferenceNumber})
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	got, err := s.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ReferenceNumber, got.ReferenceNumber)
}

func TestGetNextNumber_ResetsDaily(t *testing.T) {
	s := New()
	cfg := numerator.DefaultConfig("OUT")
	day := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)

	first, err := s.GetNextNumber(context.Background(), cfg, nil, day)
	require.NoError(t, err)
	second, err := s.GetNextNumber(context.Background(), cfg, nil, day)
	require.NoError(t, err)
	nextDay, err := s.GetNextNumber(context.Background(), cfg, nil, day.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "OUT-20261019-00001", first)
	assert.Equal(t, "OUT-20261019-00002", second)
	assert.Equal(t, "OUT-20261020-00001", nextDay)

	require.NoError(t, s.SetNextNumber(context.Background(), cfg, day, 40))
	n, err := s.GetNextNumber(context.Background(), cfg, nil, day)
	require.NoError(t, err)
	assert.Equal(t, "OUT-20261019-00040", n)
}
