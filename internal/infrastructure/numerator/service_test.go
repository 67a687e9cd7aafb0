package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "stockledger/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences: one counter per key.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
	err    error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := args[0].(string)
	switch {
	case strings.Contains(sql, "current_val = $2"):
		m.values[key] = args[1].(int64)
	case len(args) == 2:
		m.values[key] += args[1].(int64)
	default:
		m.values[key]++
	}
	return &mockRow{val: m.values[key]}
}

var day = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := corenumerator.DefaultConfig("IN")

	first, err := svc.GetNextNumber(context.Background(), cfg, nil, day)
	require.NoError(t, err)
	second, err := svc.GetNextNumber(context.Background(), cfg, nil, day)
	require.NoError(t, err)
	tomorrow, err := svc.GetNextNumber(context.Background(), cfg, nil, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, "IN-20261019-00001", first)
	assert.Equal(t, "IN-20261019-00002", second)
	assert.Equal(t, "IN-20261020-00001", tomorrow)
	assert.Equal(t, 3, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := corenumerator.DefaultConfig("OUT")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(context.Background(), cfg, opts, day)
	require.NoError(t, err)
	assert.Equal(t, "OUT-20261019-00001", num)
	assert.Equal(t, int64(10), q.values["OUT_2026_10_19"])

	num, err = svc.GetNextNumber(context.Background(), cfg, opts, day)
	require.NoError(t, err)
	assert.Equal(t, "OUT-20261019-00002", num)
	assert.Equal(t, 1, q.calls)

	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(context.Background(), cfg, opts, day)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(context.Background(), cfg, opts, day)
	require.NoError(t, err)
	assert.Equal(t, "OUT-20261019-00011", num)
	assert.Equal(t, int64(20), q.values["OUT_2026_10_19"])
	assert.Equal(t, 2, q.calls)
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	cfg := corenumerator.DefaultConfig("ADJ")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	_, err := svc.GetNextNumber(context.Background(), cfg, opts, day)
	require.NoError(t, err)

	require.NoError(t, svc.SetNextNumber(context.Background(), cfg, day, 100))

	num, err := svc.GetNextNumber(context.Background(), cfg, opts, day)
	require.NoError(t, err)
	assert.Equal(t, "ADJ-20261019-00100", num)
}

func TestGetNextNumber_WrapsStorageError(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")
	svc := New(q)

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("IN"), nil, day)
	require.Error(t, err)
	assert.ErrorIs(t, err, q.err)
	assert.Contains(t, err.Error(), "IN_2026_10_19")
}
