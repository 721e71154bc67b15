package postgresql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type txKey struct{}

type transactorImpl struct {
	db *database.DB
}

func NewTransactor(db *database.DB) database.Transactor {
	return &transactorImpl{db: db}
}

// WithTransaction implements database.Transactor.
func (t *transactorImpl) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTx(ctx, t.db.BeginTx, fn)
}

// WithSnapshot implements database.Transactor.
func (t *transactorImpl) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return runInTx(ctx, t.db.BeginSnapshotTx, fn)
}

// runInTx executes fn inside a database transaction. The transaction is bound
// to the context handed to fn, where GetQuerier picks it up.
func runInTx(ctx context.Context, begin func(context.Context) (pgx.Tx, error), fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return database.ErrNestedTransaction
	}

	tx, err := begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", database.ErrTransactionFailed, err)
	}
	defer func() {
		if p := recover(); p != nil {
			// The caller's context may already be cancelled; rollback must still run.
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				slog.Error("rollback error during panic recovery", "error", rbErr)
			}
			panic(p)
		}
	}()

	// Execute function
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", database.ErrTransactionFailed, err)
	}

	return nil
}

// GetQuerier returns either transaction or pool
// Used in repositories to support both transactional and non-transactional operations
func GetQuerier(ctx context.Context, db *database.DB) database.Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.Pool
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}
