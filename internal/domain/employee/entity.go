package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID                int64
	UserID            *int64
	DepartmentID      *int64
	Position          string
	TaxID             *string
	TaxStatus         *string
	BankName          *string
	BankAccountNumber *string
	BankRoutingNumber *string
	BaseSalary        decimal.Decimal
	JoinDate          time.Time
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EmployeeWithDetails carries the joined user and department columns used for display.
type EmployeeWithDetails struct {
	Employee
	DepartmentName *string
	UserName       *string
	UserEmail      *string
	Username       *string
}

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusTerminated Status = "terminated"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusTerminated:
		return true
	}
	return false
}

// IsActive reports whether the employee may receive payroll.
func (e Employee) IsActive() bool {
	return e.Status == StatusActive
}

// Patch is a parsed partial update. Nil fields keep the stored value.
type Patch struct {
	UserID            *int64
	DepartmentID      *int64
	Position          *string
	TaxID             *string
	TaxStatus         *string
	BankName          *string
	BankAccountNumber *string
	BankRoutingNumber *string
	BaseSalary        *decimal.Decimal
	JoinDate          *time.Time
	Status            *Status
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply merges the patch into e and returns the result.
func (p Patch) Apply(e Employee) Employee {
	if p.UserID != nil {
		e.UserID = p.UserID
	}
	if p.DepartmentID != nil {
		e.DepartmentID = p.DepartmentID
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.TaxID != nil {
		e.TaxID = p.TaxID
	}
	if p.TaxStatus != nil {
		e.TaxStatus = p.TaxStatus
	}
	if p.BankName != nil {
		e.BankName = p.BankName
	}
	if p.BankAccountNumber != nil {
		e.BankAccountNumber = p.BankAccountNumber
	}
	if p.BankRoutingNumber != nil {
		e.BankRoutingNumber = p.BankRoutingNumber
	}
	if p.BaseSalary != nil {
		e.BaseSalary = *p.BaseSalary
	}
	if p.JoinDate != nil {
		e.JoinDate = *p.JoinDate
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	return e
}
