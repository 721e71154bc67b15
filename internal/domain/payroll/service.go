package payroll

import "context"

// PayrollService orchestrates validation, calculation and persistence of payrolls.
type PayrollService interface {
	// ValidateAndCompute runs the write rules against the current employee
	// record without persisting anything.
	ValidateAndCompute(ctx context.Context, req CreatePayrollRequest) (PayrollResponse, error)

	CreatePayroll(ctx context.Context, req CreatePayrollRequest) (PayrollResponse, error)
	GetPayroll(ctx context.Context, id int64) (PayrollResponse, error)
	ListPayrolls(ctx context.Context, filter PayrollFilter) (ListPayrollResponse, error)
	UpdatePayroll(ctx context.Context, req UpdatePayrollRequest) (PayrollResponse, error)

	// DeletePayroll reports whether a payroll was removed; a missing id is not an error.
	DeletePayroll(ctx context.Context, id int64) (bool, error)

	// ProcessMonthlyPayroll creates the payrolls of a period for every eligible
	// employee in one transaction, or none of them.
	ProcessMonthlyPayroll(ctx context.Context, req ProcessMonthlyRequest) (BatchReport, error)
}
