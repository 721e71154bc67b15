package employee

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store       *memory.Store
	svc         *EmployeeServiceImpl
	users       user.UserRepository
	departments department.DepartmentRepository
	employees   employee.EmployeeRepository
	payrolls    payroll.PayrollRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(memory.WithClock(func() time.Time { return testNow }))
	f := &fixture{
		store:       store,
		users:       memory.NewUserRepository(store),
		departments: memory.NewDepartmentRepository(store),
		employees:   memory.NewEmployeeRepository(store),
		payrolls:    memory.NewPayrollRepository(store),
	}
	f.svc = f.service(f.employees)
	return f
}

func (f *fixture) service(employees employee.EmployeeRepository) *EmployeeServiceImpl {
	svc := NewEmployeeService(f.store, employees, f.users, f.payrolls, cache.NewLocal(0)).(*EmployeeServiceImpl)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) addDepartment(t *testing.T, name string) department.Department {
	t.Helper()
	d, err := f.departments.Create(context.Background(), department.Department{Name: name})
	require.NoError(t, err)
	return d
}

func (f *fixture) addPayroll(t *testing.T, employeeID int64, month, year int, net string) {
	t.Helper()
	amount := decimal.RequireFromString(net)
	ctx := context.Background()
	err := f.store.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := f.payrolls.Create(txCtx, payroll.Payroll{
			EmployeeID:      employeeID,
			PeriodMonth:     month,
			PeriodYear:      year,
			GrossAmount:     amount,
			TaxDeductions:   decimal.Zero,
			OtherDeductions: decimal.Zero,
			Bonuses:         decimal.Zero,
			NetAmount:       amount,
			Status:          payroll.StatusPending,
			Details:         map[string]any{},
		})
		if err != nil {
			return err
		}
		return f.payrolls.ApplyRollupDelta(txCtx, p.Period(), p.NetAmount, 1)
	})
	require.NoError(t, err)
}

func (f *fixture) assertRollupMatchesRaw(t *testing.T, year, month int) {
	t.Helper()
	repo := memory.NewDashboardRepository(f.store)
	ctx := context.Background()
	raw, err := repo.SumPayrollsForPeriod(ctx, year, month)
	require.NoError(t, err)
	rollup, ok, err := repo.GetRollup(ctx, year, month)
	require.NoError(t, err)
	if !ok {
		assert.True(t, raw.TotalNet.IsZero())
		assert.Zero(t, raw.PayrollCount)
		return
	}
	assert.True(t, raw.TotalNet.Equal(rollup.TotalNet), "raw %s rollup %s", raw.TotalNet, rollup.TotalNet)
	assert.Equal(t, raw.PayrollCount, rollup.PayrollCount)
}

func newUserRequest(username string) *user.CreateUserRequest {
	return &user.CreateUserRequest{
		Username: username,
		Password: "password123",
		Name:     "New Hire",
		Email:    username + "@example.com",
	}
}

func createRequest(deptID *int64) employee.CreateEmployeeRequest {
	return employee.CreateEmployeeRequest{
		DepartmentID: deptID,
		Position:     "Engineer",
		BaseSalary:   money.Input("5000"),
	}
}

// failingCreate lets everything through except Create.
type failingCreate struct {
	employee.EmployeeRepository
}

func (failingCreate) Create(context.Context, employee.Employee) (employee.Employee, error) {
	return employee.Employee{}, errors.New("insert failed")
}

func TestCreateEmployee_WithNewUser(t *testing.T) {
	f := newFixture(t)
	dept := f.addDepartment(t, "Engineering")

	req := createRequest(&dept.ID)
	req.NewUser = newUserRequest("newhire")

	resp, err := f.svc.CreateEmployee(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.UserID)
	assert.Equal(t, "newhire", *resp.Username)
	assert.Equal(t, "Engineering", *resp.DepartmentName)
	assert.Equal(t, "2024-06-15", resp.JoinDate)
	assert.Equal(t, "active", resp.Status)
	assert.True(t, resp.BaseSalary.Equal(decimal.NewFromInt(5000)))

	u, err := f.users.GetByUsername(context.Background(), "newhire")
	require.NoError(t, err)
	assert.Equal(t, user.RoleEmployee, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")))
}

func TestCreateEmployee_UserRolledBackWhenEmployeeFails(t *testing.T) {
	f := newFixture(t)
	svc := f.service(failingCreate{f.employees})

	req := createRequest(nil)
	req.NewUser = newUserRequest("ghost")

	_, err := svc.CreateEmployee(context.Background(), req)
	require.Error(t, err)

	_, err = f.users.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestCreateEmployee_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Create(context.Background(), user.User{
		Username: "taken", PasswordHash: "x", Name: "Taken", Email: "other@example.com", Role: user.RoleEmployee,
	})
	require.NoError(t, err)

	req := createRequest(nil)
	req.NewUser = newUserRequest("taken")

	_, err = f.svc.CreateEmployee(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))

	list, err := f.svc.ListEmployees(context.Background(), employee.EmployeeFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestCreateEmployee_InvalidReferences(t *testing.T) {
	f := newFixture(t)
	missing := int64(99)

	tests := []struct {
		name  string
		req   func() employee.CreateEmployeeRequest
		field string
	}{
		{"unknown department", func() employee.CreateEmployeeRequest { return createRequest(&missing) }, "department_id"},
		{"unknown user", func() employee.CreateEmployeeRequest {
			r := createRequest(nil)
			r.UserID = &missing
			return r
		}, "user_id"},
		{"user_id and new_user", func() employee.CreateEmployeeRequest {
			r := createRequest(nil)
			r.UserID = &missing
			r.NewUser = newUserRequest("both")
			return r
		}, "user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateEmployee(context.Background(), tt.req())
			require.Error(t, err)
			assert.ErrorIs(t, err, validator.ErrInvalidReference)

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, verrs.ToMap(), tt.field)
		})
	}
}

func TestCreateEmployee_UserAlreadyLinked(t *testing.T) {
	f := newFixture(t)
	u, err := f.users.Create(context.Background(), user.User{
		Username: "linked", PasswordHash: "x", Name: "Linked", Email: "linked@example.com", Role: user.RoleEmployee,
	})
	require.NoError(t, err)

	req := createRequest(nil)
	req.UserID = &u.ID
	_, err = f.svc.CreateEmployee(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.CreateEmployee(context.Background(), req)
	assert.ErrorIs(t, err, employee.ErrUserAlreadyLinked)
}

func TestCreateEmployee_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	req := employee.CreateEmployeeRequest{Position: " ", BaseSalary: money.Input("-1")}
	_, err := f.svc.CreateEmployee(context.Background(), req)
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := verrs.ToMap()
	assert.Contains(t, fields, "position")
	assert.Contains(t, fields, "base_salary")
}

func TestUpdateEmployee(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateEmployee(context.Background(), createRequest(nil))
	require.NoError(t, err)

	salary := money.Input("6500.5")
	resp, err := f.svc.UpdateEmployee(context.Background(), employee.UpdateEmployeeRequest{
		ID:         created.ID,
		BaseSalary: &salary,
	})
	require.NoError(t, err)
	assert.Equal(t, "6500.50", resp.BaseSalary.StringFixed(2))
	assert.Equal(t, "Engineer", resp.Position)

	missing := int64(42)
	_, err = f.svc.UpdateEmployee(context.Background(), employee.UpdateEmployeeRequest{
		ID:           created.ID,
		DepartmentID: &missing,
	})
	assert.ErrorIs(t, err, validator.ErrInvalidReference)

	_, err = f.svc.UpdateEmployee(context.Background(), employee.UpdateEmployeeRequest{ID: 777, BaseSalary: &salary})
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	tooLarge := money.Input("1000000000000")
	_, err = f.svc.UpdateEmployee(context.Background(), employee.UpdateEmployeeRequest{
		ID:         created.ID,
		BaseSalary: &tooLarge,
	})
	assert.ErrorIs(t, err, validator.ErrInvalidAmount)
}

func TestUpdateEmployee_EmptyPatchReturnsCurrent(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateEmployee(context.Background(), createRequest(nil))
	require.NoError(t, err)

	resp, err := f.svc.UpdateEmployee(context.Background(), employee.UpdateEmployeeRequest{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created, resp)
}

func TestDeleteEmployee_CascadesPayrollsAndRollup(t *testing.T) {
	f := newFixture(t)
	req := createRequest(nil)
	req.NewUser = newUserRequest("leaver")
	leaver, err := f.svc.CreateEmployee(context.Background(), req)
	require.NoError(t, err)
	stayer, err := f.svc.CreateEmployee(context.Background(), createRequest(nil))
	require.NoError(t, err)

	f.addPayroll(t, leaver.ID, 5, 2024, "1000")
	f.addPayroll(t, leaver.ID, 6, 2024, "1200")
	f.addPayroll(t, stayer.ID, 6, 2024, "900")

	require.NoError(t, f.svc.DeleteEmployee(context.Background(), leaver.ID))

	_, err = f.svc.GetEmployee(context.Background(), leaver.ID)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	remaining, err := f.payrolls.ListByEmployee(context.Background(), leaver.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	f.assertRollupMatchesRaw(t, 2024, 5)
	f.assertRollupMatchesRaw(t, 2024, 6)

	_, err = f.users.GetByID(context.Background(), *leaver.UserID)
	assert.NoError(t, err, "linked user is kept")
}

func TestDeleteEmployee_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteEmployee(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestListEmployees(t *testing.T) {
	f := newFixture(t)
	dept := f.addDepartment(t, "Finance")
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateEmployee(context.Background(), createRequest(&dept.ID))
		require.NoError(t, err)
	}
	inactive := "inactive"
	r := createRequest(nil)
	r.Status = &inactive
	_, err := f.svc.CreateEmployee(context.Background(), r)
	require.NoError(t, err)

	t.Run("defaults and paging", func(t *testing.T) {
		list, err := f.svc.ListEmployees(context.Background(), employee.EmployeeFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), list.TotalCount)
		assert.Len(t, list.Data, 2)
		assert.Equal(t, 1, list.Page)
	})

	t.Run("limit is capped", func(t *testing.T) {
		list, err := f.svc.ListEmployees(context.Background(), employee.EmployeeFilter{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 100, list.Limit)
	})

	t.Run("status filter", func(t *testing.T) {
		status := "INACTIVE"
		list, err := f.svc.ListEmployees(context.Background(), employee.EmployeeFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), list.TotalCount)
	})

	t.Run("department filter", func(t *testing.T) {
		list, err := f.svc.ListEmployees(context.Background(), employee.EmployeeFilter{DepartmentID: &dept.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), list.TotalCount)
	})

	t.Run("invalid status", func(t *testing.T) {
		status := "retired"
		_, err := f.svc.ListEmployees(context.Background(), employee.EmployeeFilter{Status: &status})
		assert.True(t, validator.IsValidation(err))
	})
}

func TestRollupDeltas_OrderedByPeriod(t *testing.T) {
	payrolls := []payroll.Payroll{
		{PeriodMonth: 1, PeriodYear: 2025, NetAmount: decimal.NewFromInt(10)},
		{PeriodMonth: 12, PeriodYear: 2024, NetAmount: decimal.NewFromInt(5)},
		{PeriodMonth: 1, PeriodYear: 2025, NetAmount: decimal.NewFromInt(7)},
	}

	deltas := rollupDeltas(payrolls)
	require.Len(t, deltas, 2)
	assert.Equal(t, payroll.Period{Month: 12, Year: 2024}, deltas[0].period)
	assert.Equal(t, payroll.Period{Month: 1, Year: 2025}, deltas[1].period)
	assert.True(t, deltas[1].net.Equal(decimal.NewFromInt(17)))
	assert.Equal(t, int64(2), deltas[1].count)
}
