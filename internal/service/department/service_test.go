package department

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (department.DepartmentService, employee.EmployeeRepository) {
	t.Helper()
	store := memory.NewStore()
	svc := NewDepartmentService(store, memory.NewDepartmentRepository(store), nil)
	return svc, memory.NewEmployeeRepository(store)
}

func TestDepartmentService_CRUD(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	desc := "Builds things"
	created, err := svc.Create(ctx, department.CreateDepartmentRequest{Name: "  Engineering ", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", created.Name)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	name := "Platform"
	updated, err := svc.Update(ctx, department.UpdateDepartmentRequest{ID: created.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Platform", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, desc, *updated.Description)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, department.ErrDepartmentNotFound)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDepartmentService_Validation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), department.CreateDepartmentRequest{Name: " "})
	assert.ErrorIs(t, err, validator.ErrRequired)
}

func TestDepartmentService_DuplicateNameIsConflict(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, department.CreateDepartmentRequest{Name: "Finance"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, department.CreateDepartmentRequest{Name: "Finance"})
	assert.ErrorIs(t, err, department.ErrDepartmentNameExists)
	assert.True(t, apperror.IsConflict(err))
}

func TestDepartmentService_DeleteBlockedWhileReferenced(t *testing.T) {
	svc, employees := newService(t)
	ctx := context.Background()

	withStaff, err := svc.Create(ctx, department.CreateDepartmentRequest{Name: "Sales"})
	require.NoError(t, err)
	empty, err := svc.Create(ctx, department.CreateDepartmentRequest{Name: "Legal"})
	require.NoError(t, err)

	_, err = employees.Create(ctx, employee.Employee{
		DepartmentID: &withStaff.ID,
		Position:     "Rep",
		BaseSalary:   decimal.RequireFromString("3000"),
		JoinDate:     time.Now(),
		Status:       employee.StatusActive,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, withStaff.ID)
	assert.ErrorIs(t, err, department.ErrDepartmentInUse)
	assert.True(t, apperror.IsConflict(err))
	_, err = svc.GetByID(ctx, withStaff.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, empty.ID))
	assert.ErrorIs(t, svc.Delete(ctx, empty.ID), department.ErrDepartmentNotFound)
}
