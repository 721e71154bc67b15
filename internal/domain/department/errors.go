package department

import "github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"

var (
	ErrDepartmentNotFound   = apperror.New(apperror.ErrNotFound, "department not found")
	ErrDepartmentNameExists = apperror.New(apperror.ErrConflict, "department name already exists")
	ErrDepartmentInUse      = apperror.New(apperror.ErrConflict, "department still has employees assigned")
)
