package department

import "context"

type DepartmentRepository interface {
	Create(ctx context.Context, d Department) (Department, error)
	GetByID(ctx context.Context, id int64) (Department, error)
	List(ctx context.Context) ([]Department, error)
	Update(ctx context.Context, req UpdateDepartmentRequest) (Department, error)
	// Delete removes the department and reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)
	CountEmployees(ctx context.Context, id int64) (int64, error)
}
