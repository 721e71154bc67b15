package auth

import (
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

type RegisterRequest struct {
	user.CreateUserRequest
	ConfirmPassword string `json:"confirm_password"`
}

func (r *RegisterRequest) Validate() error {
	r.Normalize()
	errs := r.CreateUserRequest.Validate("")

	if r.Password != r.ConfirmPassword {
		errs.Add("confirm_password", validator.ErrInvalidFormat, "passwords do not match")
	}

	return errs.Err()
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Username) {
		errs.Add("username", validator.ErrRequired, "username is required")
	}
	if validator.IsEmpty(r.Password) {
		errs.Add("password", validator.ErrRequired, "password is required")
	}

	return errs.Err()
}

type TokenResponse struct {
	AccessToken          string            `json:"access_token"`
	AccessTokenExpiresAt int64             `json:"access_token_expires_at"`
	User                 user.UserResponse `json:"user"`
}
