package memory

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

type dashboardRepository struct {
	store *Store
}

func NewDashboardRepository(store *Store) dashboard.DashboardRepository {
	return &dashboardRepository{store: store}
}

// GetEmployeeStats implements dashboard.DashboardRepository.
func (r *dashboardRepository) GetEmployeeStats(ctx context.Context) (dashboard.EmployeeStats, error) {
	var stats dashboard.EmployeeStats
	err := r.store.read(ctx, func(st *state) error {
		sum := decimal.Zero
		for _, e := range st.employees {
			if e.Status == employee.StatusActive {
				stats.Active++
				sum = sum.Add(e.BaseSalary)
			}
		}
		stats.AverageSalary = decimal.Zero
		if stats.Active > 0 {
			stats.AverageSalary = money.Round(sum.Div(decimal.NewFromInt(stats.Active)))
		}
		return nil
	})
	return stats, err
}

// CountPayrollsByStatus implements dashboard.DashboardRepository.
func (r *dashboardRepository) CountPayrollsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.payrolls {
			if string(p.Status) == status {
				count++
			}
		}
		return nil
	})
	return count, err
}

// GetRollup implements dashboard.DashboardRepository.
func (r *dashboardRepository) GetRollup(ctx context.Context, year, month int) (dashboard.PeriodTotal, bool, error) {
	var (
		total dashboard.PeriodTotal
		found bool
	)
	err := r.store.read(ctx, func(st *state) error {
		ru, ok := st.rollups[payroll.Period{Month: month, Year: year}]
		if !ok {
			return nil
		}
		found = true
		total = dashboard.PeriodTotal{TotalNet: ru.totalNet, PayrollCount: ru.count}
		return nil
	})
	return total, found, err
}

// SumPayrollsForPeriod implements dashboard.DashboardRepository.
func (r *dashboardRepository) SumPayrollsForPeriod(ctx context.Context, year, month int) (dashboard.PeriodTotal, error) {
	total := dashboard.PeriodTotal{TotalNet: decimal.Zero}
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.payrolls {
			if p.PeriodYear == year && p.PeriodMonth == month {
				total.TotalNet = total.TotalNet.Add(p.NetAmount)
				total.PayrollCount++
			}
		}
		return nil
	})
	return total, err
}

// GetActiveByDepartment implements dashboard.DashboardRepository.
func (r *dashboardRepository) GetActiveByDepartment(ctx context.Context) ([]dashboard.DepartmentCount, error) {
	var counts []dashboard.DepartmentCount
	err := r.store.read(ctx, func(st *state) error {
		byDept := make(map[int64]int64, len(st.departments))
		var unassigned int64
		for _, e := range st.employees {
			if e.Status != employee.StatusActive {
				continue
			}
			if e.DepartmentID == nil {
				unassigned++
				continue
			}
			byDept[*e.DepartmentID]++
		}

		counts = make([]dashboard.DepartmentCount, 0, len(st.departments)+1)
		for id, d := range st.departments {
			deptID := id
			counts = append(counts, dashboard.DepartmentCount{DepartmentID: &deptID, Name: d.Name, Count: byDept[id]})
		}
		if unassigned > 0 {
			counts = append(counts, dashboard.DepartmentCount{Name: dashboard.UnassignedName, Count: unassigned})
		}
		return nil
	})
	return counts, err
}
