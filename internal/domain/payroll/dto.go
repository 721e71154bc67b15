package payroll

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== SINGLE RECORD DTOs ==========

type CreatePayrollRequest struct {
	EmployeeID      int64          `json:"employee_id"`
	PeriodMonth     int            `json:"period_month"`
	PeriodYear      int            `json:"period_year"`
	GrossAmount     money.Input    `json:"gross_amount"`
	TaxDeductions   *money.Input   `json:"tax_deductions,omitempty"`
	OtherDeductions *money.Input   `json:"other_deductions,omitempty"`
	Bonuses         *money.Input   `json:"bonuses,omitempty"`
	NetAmount       *money.Input   `json:"net_amount,omitempty"`
	Status          *string        `json:"status,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
}

func (r CreatePayrollRequest) ToInput() Input {
	return Input{
		EmployeeID:      r.EmployeeID,
		PeriodMonth:     r.PeriodMonth,
		PeriodYear:      r.PeriodYear,
		GrossAmount:     r.GrossAmount,
		TaxDeductions:   r.TaxDeductions,
		OtherDeductions: r.OtherDeductions,
		Bonuses:         r.Bonuses,
		NetAmount:       r.NetAmount,
		Status:          r.Status,
		Details:         r.Details,
		ProcessedAt:     r.ProcessedAt,
	}
}

// UpdatePayrollRequest is a partial update. Employee and period cannot change.
type UpdatePayrollRequest struct {
	ID              int64          `json:"-"`
	GrossAmount     *money.Input   `json:"gross_amount,omitempty"`
	TaxDeductions   *money.Input   `json:"tax_deductions,omitempty"`
	OtherDeductions *money.Input   `json:"other_deductions,omitempty"`
	Bonuses         *money.Input   `json:"bonuses,omitempty"`
	NetAmount       *money.Input   `json:"net_amount,omitempty"`
	Status          *string        `json:"status,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
}

func (r UpdatePayrollRequest) Validate() error {
	var errs validator.ValidationErrors
	if r.ID <= 0 {
		errs.Add("id", validator.ErrRequired, "id is required")
	}
	return errs.Err()
}

// Overlay copies every supplied field over base. Absent fields keep the
// stored value.
func (r UpdatePayrollRequest) Overlay(base Input) Input {
	if r.GrossAmount != nil {
		base.GrossAmount = *r.GrossAmount
	}
	if r.TaxDeductions != nil {
		base.TaxDeductions = r.TaxDeductions
	}
	if r.OtherDeductions != nil {
		base.OtherDeductions = r.OtherDeductions
	}
	if r.Bonuses != nil {
		base.Bonuses = r.Bonuses
	}
	if r.Status != nil {
		base.Status = r.Status
	}
	if r.Details != nil {
		base.Details = r.Details
	}
	if r.ProcessedAt != nil {
		base.ProcessedAt = r.ProcessedAt
	}
	base.NetAmount = r.NetAmount
	return base
}

type PayrollResponse struct {
	ID              int64           `json:"id"`
	EmployeeID      int64           `json:"employee_id"`
	EmployeeName    *string         `json:"employee_name,omitempty"`
	EmployeeEmail   *string         `json:"employee_email,omitempty"`
	Position        *string         `json:"position,omitempty"`
	DepartmentID    *int64          `json:"department_id,omitempty"`
	DepartmentName  *string         `json:"department_name,omitempty"`
	PeriodMonth     int             `json:"period_month"`
	PeriodYear      int             `json:"period_year"`
	GrossAmount     decimal.Decimal `json:"gross_amount"`
	TaxDeductions   decimal.Decimal `json:"tax_deductions"`
	OtherDeductions decimal.Decimal `json:"other_deductions"`
	Bonuses         decimal.Decimal `json:"bonuses"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	Status          string          `json:"status"`
	Details         map[string]any  `json:"details"`
	ProcessedAt     *string         `json:"processed_at,omitempty"`
	ProcessedBy     *int64          `json:"processed_by,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

func ToResponse(p PayrollWithDetails) PayrollResponse {
	resp := PayrollResponse{
		ID:              p.ID,
		EmployeeID:      p.EmployeeID,
		EmployeeName:    p.EmployeeName,
		EmployeeEmail:   p.EmployeeEmail,
		Position:        p.Position,
		DepartmentID:    p.DepartmentID,
		DepartmentName:  p.DepartmentName,
		PeriodMonth:     p.PeriodMonth,
		PeriodYear:      p.PeriodYear,
		GrossAmount:     p.GrossAmount,
		TaxDeductions:   p.TaxDeductions,
		OtherDeductions: p.OtherDeductions,
		Bonuses:         p.Bonuses,
		NetAmount:       p.NetAmount,
		Status:          string(p.Status),
		Details:         p.Details,
		ProcessedBy:     p.ProcessedBy,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
	if p.ProcessedAt != nil {
		ts := p.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &ts
	}
	if resp.Details == nil {
		resp.Details = map[string]any{}
	}
	return resp
}

// ========== LISTING ==========

type PayrollFilter struct {
	PeriodMonth  *int    `json:"period_month,omitempty"`
	PeriodYear   *int    `json:"period_year,omitempty"`
	Status       *string `json:"status,omitempty"`
	EmployeeID   *int64  `json:"employee_id,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	Page         int     `json:"page"`
	Limit        int     `json:"limit"`
	SortBy       string  `json:"sort_by"`
	SortOrder    string  `json:"sort_order"`
}

// Sort columns accepted by ListPayrolls.
var sortableColumns = []string{"period", "net_amount", "gross_amount", "status", "created_at"}

// Normalize applies paging defaults and validates the filter.
func (f *PayrollFilter) Normalize() error {
	var errs validator.ValidationErrors

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}

	if f.SortBy == "" {
		f.SortBy = "period"
	} else if !validator.IsInSlice(f.SortBy, sortableColumns) {
		errs.Add("sort_by", validator.ErrInvalidFormat, "sort_by must be one of "+strings.Join(sortableColumns, ", "))
	}

	f.SortOrder = strings.ToLower(f.SortOrder)
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	} else if f.SortOrder != "asc" && f.SortOrder != "desc" {
		errs.Add("sort_order", validator.ErrInvalidFormat, "sort_order must be asc or desc")
	}

	if f.PeriodMonth != nil && (*f.PeriodMonth < 1 || *f.PeriodMonth > 12) {
		errs.Add("period_month", validator.ErrOutOfRange, "period_month must be between 1 and 12")
	}
	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs.Add("status", validator.ErrInvalidFormat, "status must be pending, completed or failed")
	}

	return errs.Err()
}

type ListPayrollResponse struct {
	Data       []PayrollResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

// ========== MONTHLY RUN DTOs ==========

// Adjustment supplies the caller defined deductions and bonuses of one
// employee in a monthly run. Gross pay is always the employee's base salary.
type Adjustment struct {
	EmployeeID      int64          `json:"employee_id"`
	TaxDeductions   *money.Input   `json:"tax_deductions,omitempty"`
	OtherDeductions *money.Input   `json:"other_deductions,omitempty"`
	Bonuses         *money.Input   `json:"bonuses,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
}

type ProcessMonthlyRequest struct {
	PeriodMonth int          `json:"period_month"`
	PeriodYear  int          `json:"period_year"`
	Adjustments []Adjustment `json:"adjustments,omitempty"`
}

func (r ProcessMonthlyRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.PeriodMonth < 1 || r.PeriodMonth > 12 {
		errs.Add("period_month", validator.ErrOutOfRange, "period_month must be between 1 and 12")
	}
	if r.PeriodYear < MinYear || r.PeriodYear > MaxYear {
		errs.Add("period_year", validator.ErrOutOfRange, "period_year is out of range")
	}

	seen := make(map[int64]bool, len(r.Adjustments))
	for _, a := range r.Adjustments {
		if seen[a.EmployeeID] {
			errs.Add("adjustments", validator.ErrInvalidFormat, "duplicate adjustment for an employee")
			break
		}
		seen[a.EmployeeID] = true
	}

	return errs.Err()
}

// CheckAdjustments rejects adjustments whose employee is not part of the run.
func (r ProcessMonthlyRequest) CheckAdjustments(employeeIDs []int64) error {
	var errs validator.ValidationErrors
	for i, a := range r.Adjustments {
		if !slices.Contains(employeeIDs, a.EmployeeID) {
			errs.Add(fmt.Sprintf("adjustments[%d].employee_id", i), validator.ErrInvalidReference,
				fmt.Sprintf("employee %d does not exist", a.EmployeeID))
		}
	}
	return errs.Err()
}

// AdjustmentFor returns the adjustment of employeeID, if any.
func (r ProcessMonthlyRequest) AdjustmentFor(employeeID int64) (Adjustment, bool) {
	for _, a := range r.Adjustments {
		if a.EmployeeID == employeeID {
			return a, true
		}
	}
	return Adjustment{}, false
}

type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRejected Outcome = "rejected"
)

// Reason codes reported per employee.
const (
	ReasonInvalidReference = "InvalidReference"
	ReasonOutOfRange       = "OutOfRange"
	ReasonInvalidAmount    = "InvalidAmount"
	ReasonDuplicatePeriod  = "DuplicatePeriod"
	ReasonInvalidInput     = "InvalidInput"
)

// ReasonFor maps a validation or conflict error to its reason code.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, validator.ErrInvalidReference):
		return ReasonInvalidReference
	case errors.Is(err, validator.ErrOutOfRange):
		return ReasonOutOfRange
	case errors.Is(err, validator.ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, ErrDuplicatePeriod):
		return ReasonDuplicatePeriod
	}
	return ReasonInvalidInput
}

type BatchEntry struct {
	EmployeeID int64             `json:"employee_id"`
	Outcome    Outcome           `json:"outcome"`
	Reason     string            `json:"reason,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	PayrollID  *int64            `json:"payroll_id,omitempty"`
	NetAmount  *decimal.Decimal  `json:"net_amount,omitempty"`
}

type BatchReport struct {
	RunID       string       `json:"run_id"`
	PeriodMonth int          `json:"period_month"`
	PeriodYear  int          `json:"period_year"`
	Committed   bool         `json:"committed"`
	Created     int          `json:"created"`
	Skipped     int          `json:"skipped"`
	Rejected    int          `json:"rejected"`
	Entries     []BatchEntry `json:"entries"`
}

// Add records an entry and updates the counters.
func (r *BatchReport) Add(entry BatchEntry) {
	r.Entries = append(r.Entries, entry)
	switch entry.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeRejected:
		r.Rejected++
	}
}
