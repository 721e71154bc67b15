package dashboard

import "github.com/shopspring/decimal"

// DashboardResponse is the combined response for the main dashboard endpoint
type DashboardResponse struct {
	Summary      SummaryResponse           `json:"summary"`
	Distribution []DepartmentShareResponse `json:"department_distribution"`
}

// Sources of the monthly payroll total.
const (
	SourceRollup = "rollup"
	SourceRaw    = "raw"
)

// SummaryResponse holds the headline figures, all read from one snapshot.
type SummaryResponse struct {
	EmployeeCount int64           `json:"employee_count"` // active employees
	TotalPayroll  decimal.Decimal `json:"total_payroll"`  // net pay of the current month
	AverageSalary decimal.Decimal `json:"average_salary"` // base salary of active employees
	PendingCount  int64           `json:"pending_count"`
	Month         string          `json:"month"` // Format: "YYYY-MM"
	Source        string          `json:"source"`
}

// DepartmentShareResponse is one slice of the department distribution.
type DepartmentShareResponse struct {
	DepartmentID *int64 `json:"department_id"`
	Name         string `json:"name"`
	Count        int64  `json:"count"`
	Percentage   int64  `json:"percentage"`
}
