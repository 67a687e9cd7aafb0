// Package register_repo provides the PostgreSQL movement log.
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable    = "stock_movements"
	stockTransactionsTable = "stock_transactions"
	lockProductSQL         = "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))"
)

var movementColumns = []string{
	"id", "product_id", "transaction_id", "transaction_item_id", "movement_type",
	"sequence", "quantity_before", "quantity_change", "quantity_after", "created_at",
}

// ErrLockOutsideTransaction is returned when LockProducts runs without a write unit.
var ErrLockOutsideTransaction = errors.New("product locks require a transaction")

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new movement log repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// LockProducts takes a transaction-scoped advisory lock per product, in the
// order given. Concurrent writers touching the same product queue here.
func (r *StockRepo) LockProducts(ctx context.Context, productIDs []id.ID) error {
	if r.txm.GetTx(ctx) == nil {
		return ErrLockOutsideTransaction
	}

	if err := r.txm.ExecBatch(ctx, lockStatements(productIDs)); err != nil {
		return postgres.MapError(fmt.Errorf("lock products: %w", err), "product", "")
	}
	return nil
}

// lockStatements keeps the caller's order; the ledger passes ids sorted.
func lockStatements(productIDs []id.ID) []postgres.Statement {
	stmts := make([]postgres.Statement, len(productIDs))
	for i, pid := range productIDs {
		stmts[i] = postgres.Statement{SQL: lockProductSQL, Args: []any{pid.String()}}
	}
	return stmts
}

// GetBalances returns the tail of every requested chain.
func (r *StockRepo) GetBalances(ctx context.Context, productIDs []id.ID) (map[id.ID]entity.StockBalance, error) {
	out := make(map[id.ID]entity.StockBalance, len(productIDs))
	for _, pid := range productIDs {
		out[pid] = entity.StockBalance{ProductID: pid}
	}
	if len(productIDs) == 0 {
		return out, nil
	}

	balances, err := r.selectBalances(ctx, squirrel.Eq{"product_id": productIDs})
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		out[b.ProductID] = b
	}
	return out, nil
}

// ListBalances returns the tail of every chain.
func (r *StockRepo) ListBalances(ctx context.Context) ([]entity.StockBalance, error) {
	return r.selectBalances(ctx, nil)
}

// balancesQuery selects the newest movement of each product.
func (r *StockRepo) balancesQuery(where squirrel.Sqlizer) squirrel.SelectBuilder {
	q := r.builder.Select(
		"product_id",
		"quantity_after AS quantity",
		"sequence",
		"created_at AS last_movement_at",
	).Options("DISTINCT ON (product_id)").
		From(stockMovementsTable).
		OrderBy("product_id", "sequence DESC")

	if where != nil {
		q = q.Where(where)
	}
	return q
}

func (r *StockRepo) selectBalances(ctx context.Context, where squirrel.Sqlizer) ([]entity.StockBalance, error) {
	sql, args, err := r.balancesQuery(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// AppendMovements writes entries with COPY. A taken (product_id, sequence)
// pair surfaces as CONCURRENT_MODIFICATION.
func (r *StockRepo) AppendMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	if r.txm.GetTx(ctx) == nil {
		return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			return r.AppendMovements(ctx, movements)
		})
	}

	_, err := postgres.CopyRows(ctx, r.txm, stockMovementsTable, movementColumns, movements, func(m entity.StockMovement) []any {
		return []any{
			m.ID, m.ProductID, m.TransactionID, m.TransactionItemID, string(m.MovementType),
			m.Sequence, m.QuantityBefore, m.QuantityChange, m.QuantityAfter, m.CreatedAt,
		}
	})
	if err != nil {
		return postgres.MapError(fmt.Errorf("copy movements: %w", err), "product", movements[0].ProductID.String())
	}
	return nil
}

// ListMovements returns one stock card page joined with transaction headers.
func (r *StockRepo) ListMovements(ctx context.Context, productID id.ID, filter stock.MovementFilter) ([]stock.CardEntry, int64, error) {
	countQ, pageQ := r.cardQueries(productID, filter)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	sql, args, err := pageQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var (
		total   int64
		entries []stock.CardEntry
	)
	// count and page must agree
	err = r.txm.Snapshot(ctx, func(ctx context.Context) error {
		querier := r.txm.GetQuerier(ctx)
		if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("count movements: %w", err)
		}
		if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
			return fmt.Errorf("select stock card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// cardQueries builds the count and the page query of a stock card.
func (r *StockRepo) cardQueries(productID id.ID, filter stock.MovementFilter) (count, page squirrel.SelectBuilder) {
	where := squirrel.And{squirrel.Eq{"m.product_id": productID}}
	if filter.FromDate != nil {
		where = append(where, squirrel.GtOrEq{"m.created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		where = append(where, squirrel.LtOrEq{"m.created_at": *filter.ToDate})
	}
	if filter.MovementType != nil {
		where = append(where, squirrel.Eq{"m.movement_type": string(*filter.MovementType)})
	}

	count = r.builder.Select("COUNT(*)").
		From(stockMovementsTable + " m").
		Where(where)

	order := "m.sequence ASC"
	if filter.Descending {
		order = "m.sequence DESC"
	}
	cols := append(prefixed("m", movementColumns), "t.reference_number", "t.transaction_date")

	page = r.builder.Select(cols...).
		From(stockMovementsTable + " m").
		Join(stockTransactionsTable + " t ON t.id = m.transaction_id").
		Where(where).
		OrderBy(order)
	if filter.Limit > 0 {
		page = page.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		page = page.Offset(uint64(filter.Offset))
	}
	return count, page
}

// ProductMovements returns the full history of a product, oldest first.
func (r *StockRepo) ProductMovements(ctx context.Context, productID id.ID) ([]entity.StockMovement, error) {
	return r.selectMovements(ctx, squirrel.Eq{"product_id": productID}, "sequence")
}

// TransactionMovements returns the movements of one transaction in line order.
func (r *StockRepo) TransactionMovements(ctx context.Context, transactionID id.ID) ([]entity.StockMovement, error) {
	q := r.builder.Select(prefixed("m", movementColumns)...).
		From(stockMovementsTable + " m").
		Join("transaction_items i ON i.id = m.transaction_item_id").
		Where(squirrel.Eq{"m.transaction_id": transactionID}).
		OrderBy("i.line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select transaction movements: %w", err)
	}
	return movements, nil
}

func (r *StockRepo) selectMovements(ctx context.Context, where squirrel.Sqlizer, orderBy string) ([]entity.StockMovement, error) {
	sql, args, err := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(where).
		OrderBy(orderBy).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
