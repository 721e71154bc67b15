package employee

import "github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"

var (
	ErrEmployeeNotFound  = apperror.New(apperror.ErrNotFound, "employee not found")
	ErrUserAlreadyLinked = apperror.New(apperror.ErrConflict, "user is already linked to another employee")
)
