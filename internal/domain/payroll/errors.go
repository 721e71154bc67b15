package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
)

var (
	ErrPayrollNotFound = apperror.New(apperror.ErrNotFound, "payroll not found")
	ErrDuplicatePeriod = apperror.New(apperror.ErrConflict, "a payroll for this employee and period already exists")
)

// BatchRejectedError is returned when a monthly run was rolled back because
// at least one employee failed validation. Report lists every employee.
type BatchRejectedError struct {
	Report BatchReport
	Cause  error
}

func (e *BatchRejectedError) Error() string {
	return fmt.Sprintf("monthly payroll %02d/%d rejected: %d employee(s) failed validation",
		e.Report.PeriodMonth, e.Report.PeriodYear, e.Report.Rejected)
}

func (e *BatchRejectedError) Unwrap() error {
	return e.Cause
}
