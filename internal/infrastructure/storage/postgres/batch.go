package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoTransaction is returned by bulk helpers called outside RunInTransaction.
var ErrNoTransaction = errors.New("bulk operation requires a transaction")

// CopyRows streams items into table with the COPY protocol. row maps one item
// to values in columns order.
func CopyRows[T any](ctx context.Context, m *TxManager, table string, columns []string, items []T, row func(T) []any) (int64, error) {
	tx := m.GetTx(ctx)
	if tx == nil {
		return 0, ErrNoTransaction
	}
	if len(items) == 0 {
		return 0, nil
	}

	src := pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		return row(items[i]), nil
	})
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
}

// Statement is one query of a batch.
type Statement struct {
	SQL  string
	Args []any
}

// ExecBatch sends stmts in one round-trip and runs them in order. The first
// failing statement aborts the batch.
func (m *TxManager) ExecBatch(ctx context.Context, stmts []Statement) error {
	tx := m.GetTx(ctx)
	if tx == nil {
		return ErrNoTransaction
	}
	if len(stmts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stmts {
		batch.Queue(s.SQL, s.Args...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range stmts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}
