package dashboard

import (
	"context"

	"github.com/shopspring/decimal"
)

// EmployeeStats combines active headcount and average base salary
type EmployeeStats struct {
	Active        int64
	AverageSalary decimal.Decimal
}

// PeriodTotal is the net payroll of one month
type PeriodTotal struct {
	TotalNet     decimal.Decimal
	PayrollCount int64
}

// DepartmentCount is the active headcount of one department. DepartmentID
// is nil for employees without a department.
type DepartmentCount struct {
	DepartmentID *int64
	Name         string
	Count        int64
}

// DashboardRepository defines the interface for dashboard data access.
// Callers run these inside Transactor.WithSnapshot.
type DashboardRepository interface {
	// GetEmployeeStats returns active count and average base salary in a single query
	GetEmployeeStats(ctx context.Context) (EmployeeStats, error)

	// CountPayrollsByStatus counts payrolls in the given status
	CountPayrollsByStatus(ctx context.Context, status string) (int64, error)

	// GetRollup returns the precomputed total of a month; ok is false when no rollup row exists
	GetRollup(ctx context.Context, year, month int) (total PeriodTotal, ok bool, err error)

	// SumPayrollsForPeriod computes the month total from the payroll rows
	SumPayrollsForPeriod(ctx context.Context, year, month int) (PeriodTotal, error)

	// GetActiveByDepartment returns active headcount per department, including an unassigned bucket
	GetActiveByDepartment(ctx context.Context) ([]DepartmentCount, error)
}
