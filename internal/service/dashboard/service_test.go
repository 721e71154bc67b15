package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store       *memory.Store
	departments department.DepartmentRepository
	employees   employee.EmployeeRepository
	payrolls    payroll.PayrollRepository
	repo        dashboard.DashboardRepository
	cache       cache.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(memory.WithClock(func() time.Time { return testNow }))
	return &fixture{
		store:       store,
		departments: memory.NewDepartmentRepository(store),
		employees:   memory.NewEmployeeRepository(store),
		payrolls:    memory.NewPayrollRepository(store),
		repo:        memory.NewDashboardRepository(store),
		cache:       cache.NewLocal(0),
	}
}

func (f *fixture) service(repo dashboard.DashboardRepository) *DashboardServiceImpl {
	svc := NewDashboardService(f.store, repo, f.cache).(*DashboardServiceImpl)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) addDepartment(t *testing.T, name string) int64 {
	t.Helper()
	d, err := f.departments.Create(context.Background(), department.Department{Name: name})
	require.NoError(t, err)
	return d.ID
}

func (f *fixture) addEmployee(t *testing.T, deptID *int64, salary string, status employee.Status) employee.Employee {
	t.Helper()
	e, err := f.employees.Create(context.Background(), employee.Employee{
		DepartmentID: deptID,
		Position:     "Staff",
		BaseSalary:   decimal.RequireFromString(salary),
		JoinDate:     testNow,
		Status:       status,
	})
	require.NoError(t, err)
	return e
}

// addPayroll writes a payroll for the current month; withRollup controls
// whether the rollup row is maintained as the payroll service would.
func (f *fixture) addPayroll(t *testing.T, employeeID int64, gross string, status payroll.Status, withRollup bool) {
	t.Helper()
	ctx := context.Background()
	p := payroll.Payroll{
		EmployeeID:  employeeID,
		PeriodMonth: int(testNow.Month()),
		PeriodYear:  testNow.Year(),
		GrossAmount: decimal.RequireFromString(gross),
		Status:      status,
	}
	p.NetAmount = payroll.CalculateNetAmount(p.Amounts())
	_, err := f.payrolls.Create(ctx, p)
	require.NoError(t, err)
	if withRollup {
		require.NoError(t, f.payrolls.ApplyRollupDelta(ctx, p.Period(), p.NetAmount, 1))
	}
}

func TestGetSummary_FromRollup(t *testing.T) {
	f := newFixture(t)
	a := f.addEmployee(t, nil, "5000", employee.StatusActive)
	b := f.addEmployee(t, nil, "6000.50", employee.StatusActive)
	f.addEmployee(t, nil, "9000", employee.StatusTerminated)
	f.addPayroll(t, a.ID, "5000", payroll.StatusPending, true)
	f.addPayroll(t, b.ID, "6000.50", payroll.StatusCompleted, true)

	summary, err := f.service(f.repo).GetSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-06", summary.Month)
	assert.Equal(t, dashboard.SourceRollup, summary.Source)
	assert.Equal(t, int64(2), summary.EmployeeCount)
	assert.Equal(t, int64(1), summary.PendingCount)
	assert.True(t, summary.TotalPayroll.Equal(decimal.RequireFromString("11000.50")), summary.TotalPayroll.String())
	assert.True(t, summary.AverageSalary.Equal(decimal.RequireFromString("5500.25")), summary.AverageSalary.String())
}

func TestGetSummary_FallsBackToRawAndAgrees(t *testing.T) {
	f := newFixture(t)
	a := f.addEmployee(t, nil, "5000", employee.StatusActive)
	b := f.addEmployee(t, nil, "3000", employee.StatusActive)
	f.addPayroll(t, a.ID, "5000", payroll.StatusPending, false)
	f.addPayroll(t, b.ID, "3000", payroll.StatusPending, false)

	raw, err := f.service(f.repo).GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dashboard.SourceRaw, raw.Source)
	assert.True(t, raw.TotalPayroll.Equal(decimal.RequireFromString("8000")))

	// Once the rollup exists the same total comes from it.
	require.NoError(t, f.payrolls.ApplyRollupDelta(context.Background(),
		payroll.Period{Month: 6, Year: 2024}, decimal.RequireFromString("8000"), 2))
	require.NoError(t, f.cache.Delete(context.Background(), cache.SummaryKey(testNow)))

	fromRollup, err := f.service(f.repo).GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dashboard.SourceRollup, fromRollup.Source)
	assert.True(t, fromRollup.TotalPayroll.Equal(raw.TotalPayroll))
}

func TestGetSummary_EmptyStore(t *testing.T) {
	f := newFixture(t)
	summary, err := f.service(f.repo).GetSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.EmployeeCount)
	assert.True(t, summary.TotalPayroll.IsZero())
	assert.True(t, summary.AverageSalary.IsZero())
}

func TestGetSummary_ServedFromCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	svc := f.service(f.repo)
	ctx := context.Background()
	f.addEmployee(t, nil, "5000", employee.StatusActive)

	first, err := svc.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.EmployeeCount)

	f.addEmployee(t, nil, "5000", employee.StatusActive)
	second, err := svc.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.EmployeeCount)

	require.NoError(t, f.cache.Delete(ctx, cache.DashboardKeys(testNow)...))
	third, err := svc.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.EmployeeCount)
}

func TestGetDepartmentDistribution(t *testing.T) {
	f := newFixture(t)
	eng := f.addDepartment(t, "Engineering")
	ops := f.addDepartment(t, "Operations")
	f.addDepartment(t, "Legal")
	for range 3 {
		f.addEmployee(t, &eng, "5000", employee.StatusActive)
	}
	f.addEmployee(t, &ops, "5000", employee.StatusActive)
	f.addEmployee(t, &ops, "5000", employee.StatusInactive)
	f.addEmployee(t, nil, "5000", employee.StatusActive)
	f.addEmployee(t, nil, "5000", employee.StatusActive)

	shares, err := f.service(f.repo).GetDepartmentDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, shares, 4)

	names := make([]string, 0, len(shares))
	var sum int64
	for _, s := range shares {
		names = append(names, s.Name)
		sum += s.Count
	}
	assert.Equal(t, []string{"Engineering", dashboard.UnassignedName, "Operations", "Legal"}, names)
	assert.Equal(t, int64(6), sum)
	assert.Equal(t, int64(50), shares[0].Percentage)
	assert.Equal(t, int64(33), shares[1].Percentage)
	assert.Equal(t, int64(17), shares[2].Percentage)
	assert.Zero(t, shares[3].Percentage)
	assert.Nil(t, shares[1].DepartmentID)
}

func TestGetDashboard_CombinesViews(t *testing.T) {
	f := newFixture(t)
	eng := f.addDepartment(t, "Engineering")
	e := f.addEmployee(t, &eng, "5000", employee.StatusActive)
	f.addPayroll(t, e.ID, "5000", payroll.StatusPending, true)

	resp, err := f.service(f.repo).GetDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Summary.EmployeeCount)
	require.Len(t, resp.Distribution, 1)
	assert.Equal(t, int64(100), resp.Distribution[0].Percentage)
}

type failingRepo struct {
	dashboard.DashboardRepository
}

func (failingRepo) CountPayrollsByStatus(context.Context, string) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestGetSummary_StoreFailureIsAggregationFailed(t *testing.T) {
	f := newFixture(t)
	svc := f.service(failingRepo{DashboardRepository: f.repo})

	_, err := svc.GetSummary(context.Background())
	assert.ErrorIs(t, err, dashboard.ErrAggregationFailed)

	_, err = svc.GetDashboard(context.Background())
	assert.ErrorIs(t, err, dashboard.ErrAggregationFailed)

	var v dashboard.SummaryResponse
	found, err := f.cache.Get(context.Background(), cache.SummaryKey(testNow), &v)
	require.NoError(t, err)
	assert.False(t, found, "failures are not cached")
}

// invalidatingRepo invalidates the cache while the summary is being computed,
// as a payroll write committing during the read would.
type invalidatingRepo struct {
	dashboard.DashboardRepository
	cache cache.Cache
}

func (r invalidatingRepo) CountPayrollsByStatus(ctx context.Context, status string) (int64, error) {
	if err := r.cache.Invalidate(ctx, cache.DashboardKeys(testNow)...); err != nil {
		return 0, err
	}
	return r.DashboardRepository.CountPayrollsByStatus(ctx, status)
}

func TestGetSummary_WriteDuringComputeIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, nil, "5000", employee.StatusActive)

	_, err := f.service(invalidatingRepo{DashboardRepository: f.repo, cache: f.cache}).GetSummary(ctx)
	require.NoError(t, err)

	var v dashboard.SummaryResponse
	found, err := f.cache.Get(ctx, cache.SummaryKey(testNow), &v)
	require.NoError(t, err)
	assert.False(t, found)

	// The next read after the write is cached again.
	_, err = f.service(f.repo).GetSummary(ctx)
	require.NoError(t, err)
	found, err = f.cache.Get(ctx, cache.SummaryKey(testNow), &v)
	require.NoError(t, err)
	assert.True(t, found)
}
