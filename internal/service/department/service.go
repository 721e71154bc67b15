package department

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
)

type departmentServiceImpl struct {
	tx             database.Transactor
	departmentRepo department.DepartmentRepository
	cache          cache.Cache
}

func NewDepartmentService(tx database.Transactor, departmentRepo department.DepartmentRepository, dashboardCache cache.Cache) department.DepartmentService {
	if dashboardCache == nil {
		dashboardCache = cache.NewNoop()
	}
	return &departmentServiceImpl{
		tx:             tx,
		departmentRepo: departmentRepo,
		cache:          dashboardCache,
	}
}

func (s *departmentServiceImpl) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.DashboardKeys(time.Now())...); err != nil {
		slog.Warn("Failed to invalidate dashboard cache", "error", err)
	}
}

func (s *departmentServiceImpl) Create(ctx context.Context, req department.CreateDepartmentRequest) (department.DepartmentResponse, error) {
	if err := req.Validate(); err != nil {
		return department.DepartmentResponse{}, err
	}

	created, err := s.departmentRepo.Create(ctx, department.Department{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return department.DepartmentResponse{}, err
	}

	slog.Info("Created department", "department_id", created.ID, "name", created.Name)
	s.invalidateDashboard(ctx)
	return department.ToResponse(created), nil
}

func (s *departmentServiceImpl) GetByID(ctx context.Context, id int64) (department.DepartmentResponse, error) {
	d, err := s.departmentRepo.GetByID(ctx, id)
	if err != nil {
		return department.DepartmentResponse{}, err
	}
	return department.ToResponse(d), nil
}

func (s *departmentServiceImpl) List(ctx context.Context) ([]department.DepartmentResponse, error) {
	items, err := s.departmentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	resp := make([]department.DepartmentResponse, 0, len(items))
	for _, d := range items {
		resp = append(resp, department.ToResponse(d))
	}
	return resp, nil
}

func (s *departmentServiceImpl) Update(ctx context.Context, req department.UpdateDepartmentRequest) (department.DepartmentResponse, error) {
	if err := req.Validate(); err != nil {
		return department.DepartmentResponse{}, err
	}

	updated, err := s.departmentRepo.Update(ctx, req)
	if err != nil {
		return department.DepartmentResponse{}, err
	}

	s.invalidateDashboard(ctx)
	return department.ToResponse(updated), nil
}

// Delete removes a department that no employee references.
func (s *departmentServiceImpl) Delete(ctx context.Context, id int64) error {
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		count, err := s.departmentRepo.CountEmployees(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count employees: %w", err)
		}
		if count > 0 {
			return department.ErrDepartmentInUse
		}

		removed, err := s.departmentRepo.Delete(txCtx, id)
		if err != nil {
			return err
		}
		if !removed {
			return department.ErrDepartmentNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Deleted department", "department_id", id)
	s.invalidateDashboard(ctx)
	return nil
}
