// Package document_repo provides the PostgreSQL store of transaction headers and items.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "stock_transactions"
	itemsTable        = "transaction_items"
)

var itemColumns = []string{
	"id", "transaction_id", "line_no", "product_id", "quantity", "unit_cost", "unit_price",
}

// TransactionRepo implements ledger.Repository.
type TransactionRepo struct {
	txm        *postgres.TxManager
	selectCols []string
}

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txm:        txm,
		selectCols: postgres.ExtractDBColumns[entity.StockTransaction](),
	}
}

// Builder returns a new squirrel builder.
func (r *TransactionRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts the header and its items. Items go through COPY.
func (r *TransactionRepo) Create(ctx context.Context, txn *entity.StockTransaction) error {
	if r.txm.GetTx(ctx) == nil {
		return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			return r.Create(ctx, txn)
		})
	}

	sql, args, err := r.insertQuery(txn).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", transactionsTable, err), "stock transaction", txn.ReferenceNumber)
	}

	_, err = postgres.CopyRows(ctx, r.txm, itemsTable, itemColumns, txn.Items, func(item entity.TransactionItem) []any {
		return []any{item.ID, item.TransactionID, item.LineNo, item.ProductID, item.Quantity, item.UnitCost, item.UnitPrice}
	})
	if err != nil {
		return postgres.MapError(fmt.Errorf("copy items: %w", err), "stock transaction", txn.ReferenceNumber)
	}
	return nil
}

// insertQuery writes the header columns; items and movements go separately.
func (r *TransactionRepo) insertQuery(txn *entity.StockTransaction) squirrel.InsertBuilder {
	data := postgres.StructToMap(txn)
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	filtered["type"] = string(txn.Type)
	return r.Builder().Insert(transactionsTable).SetMap(filtered)
}

// GetByID retrieves a transaction with its items.
func (r *TransactionRepo) GetByID(ctx context.Context, transactionID id.ID) (*entity.StockTransaction, error) {
	sql, args, err := r.Builder().
		Select(r.selectCols...).
		From(transactionsTable).
		Where(squirrel.Eq{"id": transactionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var txn entity.StockTransaction
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &txn, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock transaction", transactionID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}

	items, err := r.loadItems(ctx, []id.ID{transactionID})
	if err != nil {
		return nil, err
	}
	txn.Items = items[transactionID]
	return &txn, nil
}

// List retrieves transactions newest first with their items.
func (r *TransactionRepo) List(ctx context.Context, filter ledger.ListFilter) ([]entity.StockTransaction, int64, error) {
	countQ, pageQ := r.listQueries(filter)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	sql, args, err := pageQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var (
		total int64
		txns  []entity.StockTransaction
		items map[id.ID][]entity.TransactionItem
	)
	err = r.txm.Snapshot(ctx, func(ctx context.Context) error {
		querier := r.txm.GetQuerier(ctx)
		if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if err := pgxscan.Select(ctx, querier, &txns, sql, args...); err != nil {
			return fmt.Errorf("list: %w", err)
		}
		if len(txns) == 0 {
			return nil
		}

		ids := make([]id.ID, len(txns))
		for i, t := range txns {
			ids[i] = t.ID
		}
		var err error
		items, err = r.loadItems(ctx, ids)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range txns {
		txns[i].Items = items[txns[i].ID]
	}
	return txns, total, nil
}

// listQueries builds the count and the page query of a transaction listing,
// newest first.
func (r *TransactionRepo) listQueries(filter ledger.ListFilter) (count, page squirrel.SelectBuilder) {
	where := squirrel.And{}
	if filter.Type != nil {
		where = append(where, squirrel.Eq{"t.type": string(*filter.Type)})
	}
	if filter.SupplierID != nil {
		where = append(where, squirrel.Eq{"t.supplier_id": *filter.SupplierID})
	}
	if filter.FromDate != nil {
		where = append(where, squirrel.GtOrEq{"t.transaction_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		where = append(where, squirrel.LtOrEq{"t.transaction_date": *filter.ToDate})
	}
	if filter.ProductID != nil {
		where = append(where, squirrel.Expr(
			"EXISTS (SELECT 1 FROM "+itemsTable+" i WHERE i.transaction_id = t.id AND i.product_id = ?)",
			*filter.ProductID,
		))
	}

	count = r.Builder().Select("COUNT(*)").From(transactionsTable + " t").Where(where)

	cols := make([]string, len(r.selectCols))
	for i, c := range r.selectCols {
		cols[i] = "t." + c
	}
	page = r.Builder().Select(cols...).
		From(transactionsTable + " t").
		Where(where).
		OrderBy("t.created_at DESC", "t.reference_number DESC")
	if filter.Limit > 0 {
		page = page.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		page = page.Offset(uint64(filter.Offset))
	}
	return count, page
}

func (r *TransactionRepo) loadItems(ctx context.Context, transactionIDs []id.ID) (map[id.ID][]entity.TransactionItem, error) {
	sql, args, err := r.Builder().
		Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"transaction_id": transactionIDs}).
		OrderBy("transaction_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []entity.TransactionItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	out := make(map[id.ID][]entity.TransactionItem, len(transactionIDs))
	for _, item := range items {
		out[item.TransactionID] = append(out[item.TransactionID], item)
	}
	return out, nil
}

var _ ledger.Repository = (*TransactionRepo)(nil)
