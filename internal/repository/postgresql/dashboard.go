package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type dashboardRepositoryImpl struct {
	db *database.DB
}

func NewDashboardRepository(db *database.DB) dashboard.DashboardRepository {
	return &dashboardRepositoryImpl{db: db}
}

// GetEmployeeStats returns active count and average base salary in single query
func (r *dashboardRepositoryImpl) GetEmployeeStats(ctx context.Context) (dashboard.EmployeeStats, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) AS active_count,
			COALESCE(ROUND(AVG(base_salary), 2), 0) AS average_salary
		FROM employees
		WHERE status = 'active'
	`

	var stats dashboard.EmployeeStats
	if err := q.QueryRow(ctx, query).Scan(&stats.Active, &stats.AverageSalary); err != nil {
		return dashboard.EmployeeStats{}, fmt.Errorf("failed to get employee stats: %w", err)
	}
	return stats, nil
}

// CountPayrollsByStatus counts payrolls in a status
func (r *dashboardRepositoryImpl) CountPayrollsByStatus(ctx context.Context, status string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var count int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM payrolls WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s payrolls: %w", status, err)
	}
	return count, nil
}

// GetRollup returns the precomputed month total
func (r *dashboardRepositoryImpl) GetRollup(ctx context.Context, year, month int) (dashboard.PeriodTotal, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT total_net, payroll_count
		FROM payroll_rollups
		WHERE period_year = $1 AND period_month = $2
	`

	var total dashboard.PeriodTotal
	err := q.QueryRow(ctx, query, year, month).Scan(&total.TotalNet, &total.PayrollCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dashboard.PeriodTotal{}, false, nil
		}
		return dashboard.PeriodTotal{}, false, fmt.Errorf("failed to get payroll rollup: %w", err)
	}
	return total, true, nil
}

// SumPayrollsForPeriod computes the month total from raw payroll rows
func (r *dashboardRepositoryImpl) SumPayrollsForPeriod(ctx context.Context, year, month int) (dashboard.PeriodTotal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(net_amount), 0), COUNT(*)
		FROM payrolls
		WHERE period_year = $1 AND period_month = $2
	`

	var total dashboard.PeriodTotal
	if err := q.QueryRow(ctx, query, year, month).Scan(&total.TotalNet, &total.PayrollCount); err != nil {
		return dashboard.PeriodTotal{}, fmt.Errorf("failed to sum payrolls: %w", err)
	}
	return total, nil
}

// GetActiveByDepartment returns active headcount per department in single query
func (r *dashboardRepositoryImpl) GetActiveByDepartment(ctx context.Context) ([]dashboard.DepartmentCount, error) {
	q := GetQuerier(ctx, r.db)

	// Every department is listed; active employees without one form the unassigned row.
	query := `
		SELECT d.id, d.name, COUNT(e.id)
		FROM departments d
		LEFT JOIN employees e ON e.department_id = d.id AND e.status = 'active'
		GROUP BY d.id, d.name
		UNION ALL
		SELECT NULL::BIGINT, $1::TEXT, COUNT(*)
		FROM employees
		WHERE department_id IS NULL AND status = 'active'
		HAVING COUNT(*) > 0
	`

	rows, err := q.Query(ctx, query, dashboard.UnassignedName)
	if err != nil {
		return nil, fmt.Errorf("failed to get department distribution: %w", err)
	}
	defer rows.Close()

	counts := make([]dashboard.DepartmentCount, 0)
	for rows.Next() {
		var c dashboard.DepartmentCount
		if err := rows.Scan(&c.DepartmentID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
