package user

import (
	"errors"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
)

var (
	ErrUserNotFound            = apperror.New(apperror.ErrNotFound, "user not found")
	ErrUsernameExists          = apperror.New(apperror.ErrConflict, "username already registered")
	ErrEmailExists             = apperror.New(apperror.ErrConflict, "email already registered")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
