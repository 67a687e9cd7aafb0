package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

const headerColumns = "t.id, t.reference_number, t.type, t.transaction_date, t.supplier_id, t.notes, t.created_by, t.created_at"

func TestListQueries(t *testing.T) {
	repo := NewTransactionRepo(nil)
	supplierID := id.MustParse("0192a3b4-0000-7000-8000-0000000000aa")
	productID := id.MustParse("0192a3b4-0000-7000-8000-0000000000bb")
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	in := entity.TransactionTypeIn

	tests := []struct {
		name      string
		filter    ledger.ListFilter
		wantWhere string
		wantTail  string
		wantArgs  []any
	}{
		{
			name:      "no filter",
			filter:    ledger.ListFilter{},
			wantWhere: "WHERE (1=1)",
			wantTail:  "",
			wantArgs:  []any{},
		},
		{
			name:      "type and supplier",
			filter:    ledger.ListFilter{Type: &in, SupplierID: &supplierID, Limit: 20},
			wantWhere: "WHERE (t.type = $1 AND t.supplier_id = $2)",
			wantTail:  " LIMIT 20",
			wantArgs:  []any{"IN", supplierID.String()},
		},
		{
			name:      "date range and product",
			filter:    ledger.ListFilter{FromDate: &from, ToDate: &to, ProductID: &productID, Limit: 20, Offset: 20},
			wantWhere: "WHERE (t.transaction_date >= $1 AND t.transaction_date <= $2 AND " +
				"EXISTS (SELECT 1 FROM transaction_items i WHERE i.transaction_id = t.id AND i.product_id = $3))",
			wantTail: " LIMIT 20 OFFSET 20",
			wantArgs: []any{from, to, productID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, page := repo.listQueries(tt.filter)

			countSQL, countArgs, err := count.ToSql()
			require.NoError(t, err)
			assert.Equal(t, "SELECT COUNT(*) FROM stock_transactions t "+tt.wantWhere, countSQL)
			assert.ElementsMatch(t, tt.wantArgs, countArgs)

			pageSQL, pageArgs, err := page.ToSql()
			require.NoError(t, err)
			assert.Equal(t, "SELECT "+headerColumns+" FROM stock_transactions t "+tt.wantWhere+
				" ORDER BY t.created_at DESC, t.reference_number DESC"+tt.wantTail, pageSQL)
			assert.Equal(t, countArgs, pageArgs)
		})
	}
}

func TestInsertQuery(t *testing.T) {
	repo := NewTransactionRepo(nil)
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	txn := &entity.StockTransaction{
		ID:              id.MustParse("0192a3b4-0000-7000-8000-0000000000cc"),
		ReferenceNumber: "IN-20261019-00001",
		Type:            entity.TransactionTypeIn,
		TransactionDate: at,
		Notes:           "weekly delivery",
		CreatedBy:       "clerk",
		CreatedAt:       at,
		Items:           []entity.TransactionItem{{Quantity: 5}},
	}

	sql, args, err := repo.insertQuery(txn).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO stock_transactions "+
		"(created_at,created_by,id,notes,reference_number,supplier_id,transaction_date,type) "+
		"VALUES ($1,$2,$3,$4,$5,$6,$7,$8)", sql)
	require.Len(t, args, 8)
	assert.Equal(t, "clerk", args[1])
	assert.Equal(t, txn.ID, args[2])
	assert.Equal(t, "IN-20261019-00001", args[4])
	assert.Equal(t, "IN", args[7], "type is stored as its string value")
}
