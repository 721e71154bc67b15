package user

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

// UserResponse represents user data in API responses
type UserResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	Role      string  `json:"role"`
	CreatedAt string  `json:"created_at"`
}

func ToResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// CreateUserRequest is used both for registration and for creating a user
// together with an employee.
type CreateUserRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone,omitempty"`
	Role     string  `json:"role,omitempty"`
}

// Normalize trims input and applies the default role.
func (r *CreateUserRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Role == "" {
		r.Role = string(RoleEmployee)
	}
}

// Validate checks the request. prefix is prepended to field names so nested
// requests report e.g. "new_user.email".
func (r *CreateUserRequest) Validate(prefix string) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Username) {
		errs.Add(prefix+"username", validator.ErrRequired, "username is required")
	} else if !validator.IsValidUsername(r.Username) {
		errs.Add(prefix+"username", validator.ErrInvalidFormat, "username must be 3-50 letters, digits, dots, underscores or hyphens")
	}

	if validator.IsEmpty(r.Password) {
		errs.Add(prefix+"password", validator.ErrRequired, "password is required")
	} else if len(r.Password) < 8 {
		errs.Add(prefix+"password", validator.ErrInvalidFormat, "password must be at least 8 characters")
	}

	if validator.IsEmpty(r.Name) {
		errs.Add(prefix+"name", validator.ErrRequired, "name is required")
	}

	if validator.IsEmpty(r.Email) {
		errs.Add(prefix+"email", validator.ErrRequired, "email is required")
	} else if !validator.IsValidEmail(r.Email) {
		errs.Add(prefix+"email", validator.ErrInvalidFormat, "invalid email format")
	}

	if r.Phone != nil && !validator.IsValidPhoneNumber(*r.Phone) {
		errs.Add(prefix+"phone", validator.ErrInvalidFormat, "invalid phone number")
	}

	if !Role(r.Role).IsValid() {
		errs.Add(prefix+"role", validator.ErrInvalidFormat, "role must be 'employee' or 'admin'")
	}

	return errs
}
