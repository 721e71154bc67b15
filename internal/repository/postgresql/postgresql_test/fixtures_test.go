package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func createTestUser(t *testing.T, ctx context.Context, db *database.DB, username string) user.User {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	created, err := postgresql.NewUserRepository(db).Create(ctx, user.User{
		Username:     username,
		PasswordHash: string(hashed),
		Name:         "User " + username,
		Email:        username + "@example.com",
		Role:         user.RoleEmployee,
	})
	require.NoError(t, err)
	return created
}

func createTestDepartment(t *testing.T, ctx context.Context, db *database.DB, name string) department.Department {
	created, err := postgresql.NewDepartmentRepository(db).Create(ctx, department.Department{Name: name})
	require.NoError(t, err)
	return created
}

func createTestEmployee(t *testing.T, ctx context.Context, db *database.DB, deptID *int64, salary string, status employee.Status) employee.Employee {
	created, err := postgresql.NewEmployeeRepository(db).Create(ctx, employee.Employee{
		DepartmentID: deptID,
		Position:     "Engineer",
		BaseSalary:   decimal.RequireFromString(salary),
		JoinDate:     time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Status:       status,
	})
	require.NoError(t, err)
	return created
}
