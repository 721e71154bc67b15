package employee

import "context"

type EmployeeRepository interface {
	Create(ctx context.Context, newEmployee Employee) (Employee, error)
	GetByID(ctx context.Context, id int64) (Employee, error)
	// GetByIDForShare reads the employee and, inside a transaction, keeps its
	// row from being changed until the transaction ends.
	GetByIDForShare(ctx context.Context, id int64) (Employee, error)
	GetByIDWithDetails(ctx context.Context, id int64) (EmployeeWithDetails, error)
	GetByUserID(ctx context.Context, userID int64) (Employee, error)
	List(ctx context.Context, filter EmployeeFilter) ([]EmployeeWithDetails, int64, error)
	// ListForPeriodRun returns every employee ordered by id for bulk processing.
	ListForPeriodRun(ctx context.Context) ([]EmployeeWithDetails, error)
	Update(ctx context.Context, id int64, patch Patch) (Employee, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
