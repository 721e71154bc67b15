package employee

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type EmployeeServiceImpl struct {
	tx           database.Transactor
	employeeRepo employee.EmployeeRepository
	userRepo     user.UserRepository
	payrollRepo  payroll.PayrollRepository
	cache        cache.Cache
	now          func() time.Time
}

func NewEmployeeService(
	tx database.Transactor,
	employeeRepo employee.EmployeeRepository,
	userRepo user.UserRepository,
	payrollRepo payroll.PayrollRepository,
	dashboardCache cache.Cache,
) employee.EmployeeService {
	if dashboardCache == nil {
		dashboardCache = cache.NewNoop()
	}
	return &EmployeeServiceImpl{
		tx:           tx,
		employeeRepo: employeeRepo,
		userRepo:     userRepo,
		payrollRepo:  payrollRepo,
		cache:        dashboardCache,
		now:          time.Now,
	}
}

func (s *EmployeeServiceImpl) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.DashboardKeys(s.now())...); err != nil {
		slog.Warn("Failed to invalidate dashboard cache", "error", err)
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GetEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) GetEmployee(ctx context.Context, id int64) (employee.EmployeeResponse, error) {
	emp, err := s.employeeRepo.GetByIDWithDetails(ctx, id)
	if err != nil {
		return employee.EmployeeResponse{}, err
	}
	return employee.ToResponse(emp), nil
}

// CreateEmployee implements employee.EmployeeService. A new user given in
// the request is created in the same transaction as the employee.
func (s *EmployeeServiceImpl) CreateEmployee(ctx context.Context, req employee.CreateEmployeeRequest) (employee.EmployeeResponse, error) {
	newEmployee, err := req.Parse(s.now())
	if err != nil {
		return employee.EmployeeResponse{}, err
	}

	var newUser *user.User
	if req.NewUser != nil {
		hash, err := hashPassword(req.NewUser.Password)
		if err != nil {
			return employee.EmployeeResponse{}, fmt.Errorf("failed to hash password: %w", err)
		}
		newUser = &user.User{
			Username:     req.NewUser.Username,
			PasswordHash: hash,
			Name:         req.NewUser.Name,
			Email:        req.NewUser.Email,
			Phone:        req.NewUser.Phone,
			Role:         user.Role(req.NewUser.Role),
		}
	}

	var created employee.Employee
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if newUser != nil {
			createdUser, err := s.userRepo.Create(txCtx, *newUser)
			if err != nil {
				return err
			}
			newEmployee.UserID = &createdUser.ID
		}

		created, err = s.employeeRepo.Create(txCtx, newEmployee)
		return err
	})
	if err != nil {
		return employee.EmployeeResponse{}, err
	}

	slog.Info("Created employee", "employee_id", created.ID, "user_id", created.UserID, "new_user", newUser != nil)
	s.invalidateDashboard(ctx)

	return s.GetEmployee(ctx, created.ID)
}

// UpdateEmployee implements employee.EmployeeService.
func (s *EmployeeServiceImpl) UpdateEmployee(ctx context.Context, req employee.UpdateEmployeeRequest) (employee.EmployeeResponse, error) {
	patch, err := req.Parse()
	if err != nil {
		return employee.EmployeeResponse{}, err
	}
	if patch.IsEmpty() {
		return s.GetEmployee(ctx, req.ID)
	}

	if _, err := s.employeeRepo.Update(ctx, req.ID, patch); err != nil {
		return employee.EmployeeResponse{}, err
	}

	slog.Info("Updated employee", "employee_id", req.ID)
	s.invalidateDashboard(ctx)

	return s.GetEmployee(ctx, req.ID)
}

// DeleteEmployee implements employee.EmployeeService. The employee's
// payrolls go with it and the rollups of their periods are reduced in the
// same transaction. The linked user is kept.
func (s *EmployeeServiceImpl) DeleteEmployee(ctx context.Context, id int64) error {
	var removedPayrolls int64
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.employeeRepo.GetByIDForShare(txCtx, id); err != nil {
			return err
		}

		payrolls, err := s.payrollRepo.ListByEmployee(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to list payrolls: %w", err)
		}

		removedPayrolls, err = s.payrollRepo.DeleteByEmployee(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to delete payrolls: %w", err)
		}

		for _, d := range rollupDeltas(payrolls) {
			if err := s.payrollRepo.ApplyRollupDelta(txCtx, d.period, d.net.Neg(), -d.count); err != nil {
				return fmt.Errorf("failed to update rollup: %w", err)
			}
		}

		removed, err := s.employeeRepo.Delete(txCtx, id)
		if err != nil {
			return err
		}
		if !removed {
			return employee.ErrEmployeeNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Deleted employee", "employee_id", id, "payrolls_removed", removedPayrolls)
	s.invalidateDashboard(ctx)
	return nil
}

type periodDelta struct {
	period payroll.Period
	net    decimal.Decimal
	count  int64
}

// rollupDeltas sums payrolls per period, ordered by period so concurrent
// writers touch rollup rows in the same order.
func rollupDeltas(payrolls []payroll.Payroll) []periodDelta {
	byPeriod := make(map[payroll.Period]*periodDelta)
	for _, p := range payrolls {
		d, ok := byPeriod[p.Period()]
		if !ok {
			d = &periodDelta{period: p.Period(), net: decimal.Zero}
			byPeriod[p.Period()] = d
		}
		d.net = d.net.Add(p.NetAmount)
		d.count++
	}

	out := make([]periodDelta, 0, len(byPeriod))
	for _, d := range byPeriod {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b periodDelta) int {
		return cmp.Or(cmp.Compare(a.period.Year, b.period.Year), cmp.Compare(a.period.Month, b.period.Month))
	})
	return out
}

// ListEmployees implements employee.EmployeeService.
func (s *EmployeeServiceImpl) ListEmployees(ctx context.Context, filter employee.EmployeeFilter) (employee.ListEmployeeResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Status != nil {
		status := strings.ToLower(*filter.Status)
		if !employee.Status(status).IsValid() {
			var errs validator.ValidationErrors
			errs.Add("status", validator.ErrInvalidFormat, "status must be active, inactive or terminated")
			return employee.ListEmployeeResponse{}, errs
		}
		filter.Status = &status
	}

	items, total, err := s.employeeRepo.List(ctx, filter)
	if err != nil {
		return employee.ListEmployeeResponse{}, fmt.Errorf("failed to list employees: %w", err)
	}

	resp := employee.ListEmployeeResponse{
		Data:       make([]employee.EmployeeResponse, 0, len(items)),
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	for _, item := range items {
		resp.Data = append(resp.Data, employee.ToResponse(item))
	}
	return resp, nil
}
