package database

import (
	"context"
	"errors"
)

var (
	// ErrTransactionFailed marks infrastructure failures of the unit of work
	// itself (begin, commit, rollback). Errors returned by the work function
	// are propagated unchanged and never carry this marker.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrNestedTransaction is returned when a unit of work tries to open a
	// second unit of work on the handle it already holds.
	ErrNestedTransaction = errors.New("nested transactions are not supported")
)

// Transactor is the unit-of-work boundary shared by every store.
//
// WithTransaction runs fn with a context bound to one store handle. When fn
// returns nil every mutation made through that context becomes visible at
// once; when fn returns an error (or panics) all of them are discarded and the
// error is returned as-is. The handle is released before WithTransaction
// returns, on every path.
//
// WithSnapshot runs read-only work against a single consistent snapshot.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}
