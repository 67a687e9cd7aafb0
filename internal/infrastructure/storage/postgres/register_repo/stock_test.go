package register_repo

import (
	"context"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

const cardColumns = "m.id, m.product_id, m.transaction_id, m.transaction_item_id, m.movement_type, " +
	"m.sequence, m.quantity_before, m.quantity_change, m.quantity_after, m.created_at, " +
	"t.reference_number, t.transaction_date"

func TestCardQueries(t *testing.T) {
	repo := NewStockRepo(nil)
	pid := id.MustParse("0192a3b4-0000-7000-8000-000000000001")
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 31, 23, 59, 59, 0, time.UTC)
	out := entity.TransactionTypeOut

	tests := []struct {
		name      string
		filter    stock.MovementFilter
		wantWhere string
		wantTail  string
		wantArgs  []any
	}{
		{
			name:      "product only",
			filter:    stock.MovementFilter{},
			wantWhere: "WHERE (m.product_id = $1)",
			wantTail:  "ORDER BY m.sequence ASC",
			wantArgs:  []any{pid.String()},
		},
		{
			name:      "date range newest first",
			filter:    stock.MovementFilter{FromDate: &from, ToDate: &to, Descending: true, Limit: 20},
			wantWhere: "WHERE (m.product_id = $1 AND m.created_at >= $2 AND m.created_at <= $3)",
			wantTail:  "ORDER BY m.sequence DESC LIMIT 20",
			wantArgs:  []any{pid.String(), from, to},
		},
		{
			name:      "movement type with paging",
			filter:    stock.MovementFilter{MovementType: &out, Limit: 20, Offset: 40},
			wantWhere: "WHERE (m.product_id = $1 AND m.movement_type = $2)",
			wantTail:  "ORDER BY m.sequence ASC LIMIT 20 OFFSET 40",
			wantArgs:  []any{pid.String(), "OUT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, page := repo.cardQueries(pid, tt.filter)

			countSQL, countArgs, err := count.ToSql()
			require.NoError(t, err)
			assert.Equal(t, "SELECT COUNT(*) FROM stock_movements m "+tt.wantWhere, countSQL)
			assert.Equal(t, tt.wantArgs, countArgs)

			pageSQL, pageArgs, err := page.ToSql()
			require.NoError(t, err)
			assert.Equal(t, "SELECT "+cardColumns+
				" FROM stock_movements m JOIN stock_transactions t ON t.id = m.transaction_id "+
				tt.wantWhere+" "+tt.wantTail, pageSQL)
			assert.Equal(t, tt.wantArgs, pageArgs, "count and page must filter alike")
		})
	}
}

func TestBalancesQuery(t *testing.T) {
	repo := NewStockRepo(nil)
	a := id.MustParse("0192a3b4-0000-7000-8000-00000000000a")
	b := id.MustParse("0192a3b4-0000-7000-8000-00000000000b")

	const head = "SELECT DISTINCT ON (product_id) product_id, quantity_after AS quantity, sequence, " +
		"created_at AS last_movement_at FROM stock_movements"

	sql, args, err := repo.balancesQuery(nil).ToSql()
	require.NoError(t, err)
	assert.Equal(t, head+" ORDER BY product_id, sequence DESC", sql)
	assert.Empty(t, args)

	sql, args, err = repo.balancesQuery(squirrel.Eq{"product_id": []id.ID{a, b}}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, head+" WHERE product_id IN ($1,$2) ORDER BY product_id, sequence DESC", sql)
	assert.Equal(t, []any{a, b}, args)
}

func TestLockStatements(t *testing.T) {
	a := id.MustParse("0192a3b4-0000-7000-8000-00000000000a")
	b := id.MustParse("0192a3b4-0000-7000-8000-00000000000b")

	stmts := lockStatements([]id.ID{a, b})

	require.Len(t, stmts, 2)
	for i, pid := range []id.ID{a, b} {
		assert.Equal(t, lockProductSQL, stmts[i].SQL)
		assert.Equal(t, []any{pid.String()}, stmts[i].Args)
	}
	assert.Empty(t, lockStatements(nil))
}

func TestLockProducts_RequiresTransaction(t *testing.T) {
	repo := NewStockRepo(postgres.NewTxManagerFromRawPool(nil))

	err := repo.LockProducts(context.Background(), []id.ID{id.New()})

	assert.ErrorIs(t, err, ErrLockOutsideTransaction)
}
