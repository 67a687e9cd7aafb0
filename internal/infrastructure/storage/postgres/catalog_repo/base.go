// Package catalog_repo provides the PostgreSQL product registry and supplier directory.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides the lookups shared by reference-data tables.
type BaseCatalogRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	selectCols []string
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T any](txm *postgres.TxManager, tableName string) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txm:        txm,
		tableName:  tableName,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Upsert inserts entity or overwrites the row with the same id.
func (r *BaseCatalogRepo[T]) Upsert(ctx context.Context, entity T) error {
	q, err := r.upsertQuery(entity)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("upsert %s: %w", r.tableName, err), r.tableName, args[0])
	}
	return nil
}

func (r *BaseCatalogRepo[T]) upsertQuery(entity T) (squirrel.InsertBuilder, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return squirrel.InsertBuilder{}, fmt.Errorf("no db tags found in entity")
	}
	if _, ok := data["id"]; !ok {
		return squirrel.InsertBuilder{}, fmt.Errorf("%s entity has no id column", r.tableName)
	}

	cols := []string{"id"}
	vals := []any{data["id"]}
	updates := make([]string, 0, len(r.selectCols))
	for _, col := range r.selectCols {
		val, ok := data[col]
		if !ok || col == "id" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, val)
		updates = append(updates, col+" = EXCLUDED."+col)
	}

	return r.Builder().
		Insert(r.tableName).
		Columns(cols...).
		Values(vals...).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")), nil
}

// GetByID retrieves one row. found is false when no row matches.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (entity T, found bool, err error) {
	rows, err := r.selectWhere(ctx, squirrel.Eq{"id": entityID}, "")
	if err != nil || len(rows) == 0 {
		return entity, false, err
	}
	return rows[0], true, nil
}

// GetByIDs retrieves every row among ids.
func (r *BaseCatalogRepo[T]) GetByIDs(ctx context.Context, ids []id.ID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.selectWhere(ctx, squirrel.Eq{"id": ids}, "")
}

// ListAll retrieves every row ordered by orderBy.
func (r *BaseCatalogRepo[T]) ListAll(ctx context.Context, orderBy string) ([]T, error) {
	return r.selectWhere(ctx, nil, orderBy)
}

// Exists checks if a row with the given id exists.
func (r *BaseCatalogRepo[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	sql := "SELECT EXISTS(SELECT 1 FROM " + r.tableName + " WHERE id = $1)"

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, entityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", r.tableName, err)
	}
	return exists, nil
}

func (r *BaseCatalogRepo[T]) selectQuery(where squirrel.Sqlizer, orderBy string) squirrel.SelectBuilder {
	q := r.Builder().Select(r.selectCols...).From(r.tableName)
	if where != nil {
		q = q.Where(where)
	}
	if orderBy != "" {
		q = q.OrderBy(orderBy)
	}
	return q
}

func (r *BaseCatalogRepo[T]) selectWhere(ctx context.Context, where squirrel.Sqlizer, orderBy string) ([]T, error) {
	sql, args, err := r.selectQuery(where, orderBy).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return rows, nil
}
