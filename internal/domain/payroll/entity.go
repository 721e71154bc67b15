package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enum
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a stored payroll in status s may be saved
// with status next. Completed and failed are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	return s == StatusPending && (next == StatusCompleted || next == StatusFailed)
}

// Period identifies a payroll month.
type Period struct {
	Month int
	Year  int
}

// Payroll is one employee's pay for one period. NetAmount is always the
// result of CalculateNetAmount over the four input amounts.
type Payroll struct {
	ID              int64
	EmployeeID      int64
	PeriodMonth     int
	PeriodYear      int
	GrossAmount     decimal.Decimal
	TaxDeductions   decimal.Decimal
	OtherDeductions decimal.Decimal
	Bonuses         decimal.Decimal
	NetAmount       decimal.Decimal
	Status          Status
	Details         map[string]any
	ProcessedAt     *time.Time
	ProcessedBy     *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p Payroll) Period() Period {
	return Period{Month: p.PeriodMonth, Year: p.PeriodYear}
}

// PayrollWithDetails adds the joined employee, department and user columns.
type PayrollWithDetails struct {
	Payroll

	// Joined fields
	Position       *string
	DepartmentID   *int64
	DepartmentName *string
	EmployeeName   *string
	EmployeeEmail  *string
}
