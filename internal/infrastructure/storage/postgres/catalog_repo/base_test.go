package catalog_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/catalogs/supplier"
)

func TestSelectQuery(t *testing.T) {
	repo := NewProductRepo(nil)
	a := id.MustParse("0192a3b4-0000-7000-8000-00000000000a")
	b := id.MustParse("0192a3b4-0000-7000-8000-00000000000b")

	const head = "SELECT id, sku, name, unit, minimum_stock FROM products"

	tests := []struct {
		name     string
		where    squirrel.Sqlizer
		orderBy  string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "by id",
			where:    squirrel.Eq{"id": a},
			wantSQL:  head + " WHERE id = $1",
			wantArgs: []any{a.String()},
		},
		{
			name:     "by ids",
			where:    squirrel.Eq{"id": []id.ID{a, b}},
			wantSQL:  head + " WHERE id IN ($1,$2)",
			wantArgs: []any{a, b},
		},
		{
			name:     "all ordered",
			orderBy:  "sku, id",
			wantSQL:  head + " ORDER BY sku, id",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.selectQuery(tt.where, tt.orderBy).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
				return
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestUpsertQuery(t *testing.T) {
	minimum := int64(200)
	p := product.Product{
		ID:           id.MustParse("0192a3b4-0000-7000-8000-00000000000a"),
		SKU:          "BOLT-M8",
		Name:         "Hex bolt M8",
		Unit:         "pcs",
		MinimumStock: &minimum,
	}

	q, err := NewProductRepo(nil).upsertQuery(p)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO products (id,sku,name,unit,minimum_stock) VALUES ($1,$2,$3,$4,$5) "+
		"ON CONFLICT (id) DO UPDATE SET sku = EXCLUDED.sku, name = EXCLUDED.name, "+
		"unit = EXCLUDED.unit, minimum_stock = EXCLUDED.minimum_stock", sql)
	require.Len(t, args, 5)
	assert.Equal(t, p.ID, args[0])
	assert.Equal(t, "BOLT-M8", args[1])
	assert.Equal(t, &minimum, args[4])
}

func TestUpsertQuery_Supplier(t *testing.T) {
	s := supplier.Supplier{ID: id.MustParse("0192a3b4-0000-7000-8000-0000000000ff"), Name: "Acme Tools"}

	q, err := NewSupplierRepo(nil).upsertQuery(s)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO suppliers (id,name) VALUES ($1,$2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name", sql)
	assert.Equal(t, []any{s.ID, "Acme Tools"}, args)
}
