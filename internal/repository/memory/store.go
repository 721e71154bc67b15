// Package memory is an in-process ledger store. It honours the same
// contracts as the PostgreSQL repositories (unique keys, foreign keys,
// atomic units of work, snapshot reads) and backs local development
// (STORE_DRIVER=memory) and the service tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

var (
	// ErrReadOnly is returned for writes attempted inside WithSnapshot.
	ErrReadOnly = errors.New("memory: write in read-only snapshot")
	// ErrForeignKey mirrors a RESTRICT foreign key: the row is still referenced.
	ErrForeignKey = errors.New("memory: row is still referenced")
	// ErrCheckViolation mirrors a table CHECK constraint.
	ErrCheckViolation = errors.New("memory: check constraint violated")
)

type rollup struct {
	totalNet  decimal.Decimal
	count     int64
	updatedAt time.Time
}

type state struct {
	users       map[int64]user.User
	departments map[int64]department.Department
	employees   map[int64]employee.Employee
	payrolls    map[int64]payroll.Payroll
	rollups     map[payroll.Period]rollup

	userSeq, departmentSeq, employeeSeq, payrollSeq int64
}

func newState() *state {
	return &state{
		users:       map[int64]user.User{},
		departments: map[int64]department.Department{},
		employees:   map[int64]employee.Employee{},
		payrolls:    map[int64]payroll.Payroll{},
		rollups:     map[payroll.Period]rollup{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         maps.Clone(s.users),
		departments:   maps.Clone(s.departments),
		employees:     maps.Clone(s.employees),
		payrolls:      make(map[int64]payroll.Payroll, len(s.payrolls)),
		rollups:       maps.Clone(s.rollups),
		userSeq:       s.userSeq,
		departmentSeq: s.departmentSeq,
		employeeSeq:   s.employeeSeq,
		payrollSeq:    s.payrollSeq,
	}
	for id, p := range s.payrolls {
		p.Details = maps.Clone(p.Details)
		c.payrolls[id] = p
	}
	return c
}

type txState struct {
	st       *state
	readOnly bool
}

type txKey struct{}

// Store holds the committed state. A unit of work takes the write lock,
// works on a private copy and swaps it in on success, so readers never see
// partial work and a failed unit of work leaves nothing behind.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ database.Transactor = (*Store)(nil)

// WithTransaction implements database.Transactor.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return database.ErrNestedTransaction
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: begin: %w", database.ErrTransactionFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, &txState{st: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: commit: %w", database.ErrTransactionFailed, err)
	}

	s.st = work
	return nil
}

// WithSnapshot implements database.Transactor.
func (s *Store) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return database.ErrNestedTransaction
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(context.WithValue(ctx, txKey{}, &txState{st: s.st, readOnly: true}))
}

// read runs fn against the transaction state in ctx, or the committed state.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(tx.st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// write runs fn against the transaction state in ctx, or directly against
// the committed state under the write lock. fn must check every constraint
// before it mutates anything.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		if tx.readOnly {
			return ErrReadOnly
		}
		return fn(tx.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// paginate returns the page of items selected by page and limit (1-based).
func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}
