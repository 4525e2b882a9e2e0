package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// the same statements inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner opens a transaction, hands it to fn and commits when fn returns nil.
// Any error or panic rolls the transaction back.
type TxRunner struct {
	db   *sql.DB
	opts *sql.TxOptions
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db, opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted}}
}

// DB returns the non-transactional handle.
func (r *TxRunner) DB() Querier {
	return r.db
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return nil
}

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique_violation,
// optionally restricted to the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
