package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

// Input is an unvalidated payroll write. Create, update and the monthly run
// all build an Input and pass it through ValidateAndCompute.
type Input struct {
	EmployeeID      int64
	PeriodMonth     int
	PeriodYear      int
	GrossAmount     money.Input
	TaxDeductions   *money.Input
	OtherDeductions *money.Input
	Bonuses         *money.Input
	// NetAmount is accepted for comparison only; the stored value is always computed.
	NetAmount   *money.Input
	Status      *string
	Details     map[string]any
	ProcessedAt *time.Time
}

// InputFromPayroll rebuilds the full input of a stored record.
func InputFromPayroll(p Payroll) Input {
	status := string(p.Status)
	return Input{
		EmployeeID:      p.EmployeeID,
		PeriodMonth:     p.PeriodMonth,
		PeriodYear:      p.PeriodYear,
		GrossAmount:     money.FromDecimal(p.GrossAmount),
		TaxDeductions:   money.Ptr(p.TaxDeductions.StringFixed(money.Scale)),
		OtherDeductions: money.Ptr(p.OtherDeductions.StringFixed(money.Scale)),
		Bonuses:         money.Ptr(p.Bonuses.StringFixed(money.Scale)),
		Status:          &status,
		Details:         p.Details,
		ProcessedAt:     p.ProcessedAt,
	}
}

// Validated is a payroll that passed every rule, with its net amount derived.
type Validated struct {
	Payroll
	// DiscardedNet holds a caller supplied net amount that disagreed with the
	// computed one.
	DiscardedNet *decimal.Decimal
}

// ValidateAndCompute checks in against the business rules and derives the
// net amount. emp is the referenced employee or nil when it does not exist.
// All failures are collected into validator.ValidationErrors.
func ValidateAndCompute(emp *employee.Employee, in Input, now time.Time) (Validated, error) {
	var errs validator.ValidationErrors

	switch {
	case emp == nil:
		errs.Add("employee_id", validator.ErrInvalidReference, fmt.Sprintf("employee %d does not exist", in.EmployeeID))
	case !emp.IsActive():
		errs.Add("employee_id", validator.ErrInvalidReference, fmt.Sprintf("employee %d is %s", in.EmployeeID, emp.Status))
	}

	if in.PeriodMonth < 1 || in.PeriodMonth > 12 {
		errs.Add("period_month", validator.ErrOutOfRange, "period_month must be between 1 and 12")
	}
	if in.PeriodYear < MinYear || in.PeriodYear > MaxYear {
		errs.Add("period_year", validator.ErrOutOfRange, fmt.Sprintf("period_year must be between %d and %d", MinYear, MaxYear))
	}

	gross, err := money.Parse(in.GrossAmount.String())
	switch {
	case err != nil:
		errs.Add("gross_amount", validator.ErrInvalidAmount, "gross_amount must be a decimal number")
	case !money.Round(gross).IsPositive():
		errs.Add("gross_amount", validator.ErrInvalidAmount, "gross_amount must be greater than zero")
	case !money.InRange(gross):
		errs.Add("gross_amount", validator.ErrInvalidAmount, "gross_amount must not exceed "+money.MaxAmount.StringFixed(money.Scale))
	}

	tax := optionalAmount(&errs, "tax_deductions", in.TaxDeductions)
	other := optionalAmount(&errs, "other_deductions", in.OtherDeductions)
	bonuses := optionalAmount(&errs, "bonuses", in.Bonuses)

	status := StatusPending
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		status = Status(strings.ToLower(strings.TrimSpace(*in.Status)))
		if !status.IsValid() {
			errs.Add("status", validator.ErrInvalidFormat, "status must be pending, completed or failed")
		}
	}

	if err := errs.Err(); err != nil {
		return Validated{}, err
	}

	amounts := Amounts{
		Gross:           money.Round(gross),
		TaxDeductions:   tax,
		OtherDeductions: other,
		Bonuses:         bonuses,
	}
	net := CalculateNetAmount(amounts)
	if !money.InRange(net) {
		errs.Add("net_amount", validator.ErrInvalidAmount, "computed net_amount must not exceed "+money.MaxAmount.StringFixed(money.Scale))
		return Validated{}, errs.Err()
	}

	details := in.Details
	if details == nil {
		details = map[string]any{}
	}

	processedAt := in.ProcessedAt
	if status == StatusCompleted && processedAt == nil {
		ts := now
		processedAt = &ts
	}

	v := Validated{
		Payroll: Payroll{
			EmployeeID:      in.EmployeeID,
			PeriodMonth:     in.PeriodMonth,
			PeriodYear:      in.PeriodYear,
			GrossAmount:     amounts.Gross,
			TaxDeductions:   amounts.TaxDeductions,
			OtherDeductions: amounts.OtherDeductions,
			Bonuses:         amounts.Bonuses,
			NetAmount:       net,
			Status:          status,
			Details:         details,
			ProcessedAt:     processedAt,
		},
	}

	if in.NetAmount != nil && in.NetAmount.String() != "" {
		if supplied, err := money.Parse(in.NetAmount.String()); err == nil && !supplied.Equal(net) {
			v.DiscardedNet = &supplied
		}
	}

	return v, nil
}

// CheckTransition rejects status changes out of a terminal state.
func CheckTransition(from, to Status) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	var errs validator.ValidationErrors
	errs.Add("status", validator.ErrInvalidTransition, fmt.Sprintf("cannot change status from %s to %s", from, to))
	return errs
}

// optionalAmount parses a non-negative amount; absent values are zero.
func optionalAmount(errs *validator.ValidationErrors, field string, in *money.Input) decimal.Decimal {
	if in == nil || in.String() == "" {
		return decimal.Zero
	}
	d, err := money.Parse(in.String())
	if err != nil {
		errs.Add(field, validator.ErrInvalidAmount, field+" must be a decimal number")
		return decimal.Zero
	}
	if d.IsNegative() {
		errs.Add(field, validator.ErrInvalidAmount, field+" must not be negative")
		return decimal.Zero
	}
	if !money.InRange(d) {
		errs.Add(field, validator.ErrInvalidAmount, field+" must not exceed "+money.MaxAmount.StringFixed(money.Scale))
		return decimal.Zero
	}
	return money.Round(d)
}
