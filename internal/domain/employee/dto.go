package employee

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateEmployeeRequest struct {
	// Either link an existing user or create one; both empty leaves the employee unlinked.
	UserID  *int64                  `json:"user_id,omitempty"`
	NewUser *user.CreateUserRequest `json:"new_user,omitempty"`

	DepartmentID      *int64      `json:"department_id,omitempty"`
	Position          string      `json:"position"`
	TaxID             *string     `json:"tax_id,omitempty"`
	TaxStatus         *string     `json:"tax_status,omitempty"`
	BankName          *string     `json:"bank_name,omitempty"`
	BankAccountNumber *string     `json:"bank_account_number,omitempty"`
	BankRoutingNumber *string     `json:"bank_routing_number,omitempty"`
	BaseSalary        money.Input `json:"base_salary"`
	JoinDate          *string     `json:"join_date,omitempty"`
	Status            *string     `json:"status,omitempty"`
}

// Parse validates the request shape and returns the employee to insert.
// References (user, department) are checked by the service inside the
// transaction.
func (r *CreateEmployeeRequest) Parse(now time.Time) (Employee, error) {
	var errs validator.ValidationErrors

	if r.UserID != nil && r.NewUser != nil {
		errs.Add("user_id", validator.ErrInvalidReference, "provide either user_id or new_user, not both")
	}
	if r.NewUser != nil {
		r.NewUser.Normalize()
		errs = append(errs, r.NewUser.Validate("new_user.")...)
	}

	position := strings.TrimSpace(r.Position)
	if validator.IsEmpty(position) {
		errs.Add("position", validator.ErrRequired, "position is required")
	} else if len(position) > 100 {
		errs.Add("position", validator.ErrInvalidFormat, "position must not exceed 100 characters")
	}

	salary, _ := parseSalary(&errs, r.BaseSalary)

	joinDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if r.JoinDate != nil {
		parsed, valid := validator.IsValidDate(*r.JoinDate)
		if !valid {
			errs.Add("join_date", validator.ErrInvalidFormat, "join_date must be YYYY-MM-DD")
		} else {
			joinDate = parsed
		}
	}

	status := StatusActive
	if r.Status != nil {
		status = Status(strings.ToLower(*r.Status))
		if !status.IsValid() {
			errs.Add("status", validator.ErrInvalidFormat, "status must be active, inactive or terminated")
		}
	}

	if err := errs.Err(); err != nil {
		return Employee{}, err
	}
	return Employee{
		UserID:            r.UserID,
		DepartmentID:      r.DepartmentID,
		Position:          position,
		TaxID:             r.TaxID,
		TaxStatus:         r.TaxStatus,
		BankName:          r.BankName,
		BankAccountNumber: r.BankAccountNumber,
		BankRoutingNumber: r.BankRoutingNumber,
		BaseSalary:        salary,
		JoinDate:          joinDate,
		Status:            status,
	}, nil
}

type UpdateEmployeeRequest struct {
	ID                int64        `json:"-"`
	UserID            *int64       `json:"user_id,omitempty"`
	DepartmentID      *int64       `json:"department_id,omitempty"`
	Position          *string      `json:"position,omitempty"`
	TaxID             *string      `json:"tax_id,omitempty"`
	TaxStatus         *string      `json:"tax_status,omitempty"`
	BankName          *string      `json:"bank_name,omitempty"`
	BankAccountNumber *string      `json:"bank_account_number,omitempty"`
	BankRoutingNumber *string      `json:"bank_routing_number,omitempty"`
	BaseSalary        *money.Input `json:"base_salary,omitempty"`
	JoinDate          *string      `json:"join_date,omitempty"`
	Status            *string      `json:"status,omitempty"`
}

// Parse validates the supplied fields and returns the typed patch.
func (r *UpdateEmployeeRequest) Parse() (Patch, error) {
	var errs validator.ValidationErrors
	patch := Patch{
		UserID:            r.UserID,
		DepartmentID:      r.DepartmentID,
		TaxID:             r.TaxID,
		TaxStatus:         r.TaxStatus,
		BankName:          r.BankName,
		BankAccountNumber: r.BankAccountNumber,
		BankRoutingNumber: r.BankRoutingNumber,
	}

	if r.ID <= 0 {
		errs.Add("id", validator.ErrRequired, "id is required")
	}

	if r.Position != nil {
		position := strings.TrimSpace(*r.Position)
		if validator.IsEmpty(position) {
			errs.Add("position", validator.ErrRequired, "position must not be empty")
		}
		patch.Position = &position
	}

	if r.BaseSalary != nil {
		if salary, ok := parseSalary(&errs, *r.BaseSalary); ok {
			patch.BaseSalary = &salary
		}
	}

	if r.JoinDate != nil {
		parsed, valid := validator.IsValidDate(*r.JoinDate)
		if !valid {
			errs.Add("join_date", validator.ErrInvalidFormat, "join_date must be YYYY-MM-DD")
		} else {
			patch.JoinDate = &parsed
		}
	}

	if r.Status != nil {
		status := Status(strings.ToLower(*r.Status))
		if !status.IsValid() {
			errs.Add("status", validator.ErrInvalidFormat, "status must be active, inactive or terminated")
		} else {
			patch.Status = &status
		}
	}

	if err := errs.Err(); err != nil {
		return Patch{}, err
	}
	return patch, nil
}

func parseSalary(errs *validator.ValidationErrors, in money.Input) (decimal.Decimal, bool) {
	salary, err := money.Parse(in.String())
	if err != nil {
		errs.Add("base_salary", validator.ErrInvalidAmount, "base_salary must be a decimal number")
		return decimal.Zero, false
	}
	if salary.IsNegative() {
		errs.Add("base_salary", validator.ErrInvalidAmount, "base_salary must not be negative")
		return decimal.Zero, false
	}
	if !money.InRange(salary) {
		errs.Add("base_salary", validator.ErrInvalidAmount, "base_salary must not exceed "+money.MaxAmount.StringFixed(money.Scale))
		return decimal.Zero, false
	}
	return money.Round(salary), true
}

type EmployeeFilter struct {
	DepartmentID *int64  `json:"department_id,omitempty"`
	Status       *string `json:"status,omitempty"`
	Search       *string `json:"search,omitempty"`
	Page         int     `json:"page"`
	Limit        int     `json:"limit"`
}

type EmployeeResponse struct {
	ID                int64           `json:"id"`
	UserID            *int64          `json:"user_id,omitempty"`
	Username          *string         `json:"username,omitempty"`
	Name              *string         `json:"name,omitempty"`
	Email             *string         `json:"email,omitempty"`
	DepartmentID      *int64          `json:"department_id,omitempty"`
	DepartmentName    *string         `json:"department_name,omitempty"`
	Position          string          `json:"position"`
	TaxID             *string         `json:"tax_id,omitempty"`
	TaxStatus         *string         `json:"tax_status,omitempty"`
	BankName          *string         `json:"bank_name,omitempty"`
	BankAccountNumber *string         `json:"bank_account_number,omitempty"`
	BankRoutingNumber *string         `json:"bank_routing_number,omitempty"`
	BaseSalary        decimal.Decimal `json:"base_salary"`
	JoinDate          string          `json:"join_date"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type ListEmployeeResponse struct {
	Data       []EmployeeResponse `json:"data"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

func ToResponse(e EmployeeWithDetails) EmployeeResponse {
	return EmployeeResponse{
		ID:                e.ID,
		UserID:            e.UserID,
		Username:          e.Username,
		Name:              e.UserName,
		Email:             e.UserEmail,
		DepartmentID:      e.DepartmentID,
		DepartmentName:    e.DepartmentName,
		Position:          e.Position,
		TaxID:             e.TaxID,
		TaxStatus:         e.TaxStatus,
		BankName:          e.BankName,
		BankAccountNumber: e.BankAccountNumber,
		BankRoutingNumber: e.BankRoutingNumber,
		BaseSalary:        e.BaseSalary,
		JoinDate:          e.JoinDate.Format("2006-01-02"),
		Status:            string(e.Status),
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         e.UpdatedAt.Format(time.RFC3339),
	}
}
