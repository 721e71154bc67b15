package dashboard

import "context"

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	// GetDashboard returns summary and distribution together
	GetDashboard(ctx context.Context) (*DashboardResponse, error)

	// GetSummary returns headcount, current month payroll total, average salary and pending count
	GetSummary(ctx context.Context) (*SummaryResponse, error)

	// GetDepartmentDistribution returns active headcount per department with percentages
	GetDepartmentDistribution(ctx context.Context) ([]DepartmentShareResponse, error)
}
