package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// PayrollRepository defines data access for payrolls and their monthly rollup.
// Every method runs on the transaction bound to ctx when there is one.
type PayrollRepository interface {
	// Create inserts the payroll. A second payroll for the same employee and
	// period fails with ErrDuplicatePeriod.
	Create(ctx context.Context, p Payroll) (Payroll, error)
	GetByID(ctx context.Context, id int64) (Payroll, error)
	// GetByIDForUpdate locks the row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (Payroll, error)
	GetByIDWithDetails(ctx context.Context, id int64) (PayrollWithDetails, error)
	List(ctx context.Context, filter PayrollFilter) ([]PayrollWithDetails, int64, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]Payroll, error)
	// ListEmployeeIDsForPeriod returns the employees that already have a payroll for the period.
	ListEmployeeIDsForPeriod(ctx context.Context, period Period) ([]int64, error)
	Update(ctx context.Context, p Payroll) (Payroll, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteByEmployee(ctx context.Context, employeeID int64) (int64, error)

	// ApplyRollupDelta adds the deltas to the period's rollup row, creating it when missing.
	ApplyRollupDelta(ctx context.Context, period Period, netDelta decimal.Decimal, countDelta int64) error
}
