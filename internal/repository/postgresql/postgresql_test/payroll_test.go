package postgresql_test

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayroll(employeeID int64, month int) payroll.Payroll {
	p := payroll.Payroll{
		EmployeeID:    employeeID,
		PeriodMonth:   month,
		PeriodYear:    2024,
		GrossAmount:   decimal.RequireFromString("5000.00"),
		TaxDeductions: decimal.RequireFromString("750.00"),
		Bonuses:       decimal.RequireFromString("200.00"),
		Status:        payroll.StatusPending,
		Details:       map[string]any{"note": "june"},
	}
	p.NetAmount = payroll.CalculateNetAmount(p.Amounts())
	return p
}

func TestPayrollRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	dept := createTestDepartment(t, ctx, db, "Engineering")
	emp := createTestEmployee(t, ctx, db, &dept.ID, "5000.00", employee.StatusActive)

	created, err := repo.Create(ctx, newPayroll(emp.ID, 6))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "4450.00", created.NetAmount.StringFixed(2))
	assert.Equal(t, "june", created.Details["note"])

	withDetails, err := repo.GetByIDWithDetails(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, withDetails.DepartmentName)
	assert.Equal(t, "Engineering", *withDetails.DepartmentName)
}

func TestPayrollRepository_DuplicatePeriod(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	emp := createTestEmployee(t, ctx, db, nil, "5000.00", employee.StatusActive)

	_, err := repo.Create(ctx, newPayroll(emp.ID, 6))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newPayroll(emp.ID, 6))
	assert.ErrorIs(t, err, payroll.ErrDuplicatePeriod)
}

func TestPayrollRepository_NetCheckConstraint(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	emp := createTestEmployee(t, ctx, db, nil, "5000.00", employee.StatusActive)

	p := newPayroll(emp.ID, 6)
	p.NetAmount = decimal.RequireFromString("1.00")
	_, err := repo.Create(ctx, p)
	assert.Error(t, err)
}

func TestPayrollRepository_DeleteIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	emp := createTestEmployee(t, ctx, db, nil, "5000.00", employee.StatusActive)
	created, err := repo.Create(ctx, newPayroll(emp.ID, 6))
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPayrollRepository_RollupDeltas(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)
	dash := postgresql.NewDashboardRepository(db)

	period := payroll.Period{Month: 6, Year: 2024}
	require.NoError(t, repo.ApplyRollupDelta(ctx, period, decimal.RequireFromString("4450.00"), 1))
	require.NoError(t, repo.ApplyRollupDelta(ctx, period, decimal.RequireFromString("1000.00"), 1))
	require.NoError(t, repo.ApplyRollupDelta(ctx, period, decimal.RequireFromString("-1000.00"), -1))

	total, ok, err := dash.GetRollup(ctx, 2024, 6)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "4450.00", total.TotalNet.StringFixed(2))
	assert.Equal(t, int64(1), total.PayrollCount)

	_, ok, err = dash.GetRollup(ctx, 2024, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPayrollRepository_ListEmployeeIDsForPeriod(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	a := createTestEmployee(t, ctx, db, nil, "5000.00", employee.StatusActive)
	b := createTestEmployee(t, ctx, db, nil, "5000.00", employee.StatusActive)
	_, err := repo.Create(ctx, newPayroll(a.ID, 6))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newPayroll(b.ID, 7))
	require.NoError(t, err)

	ids, err := repo.ListEmployeeIDsForPeriod(ctx, payroll.Period{Month: 6, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids)
}
