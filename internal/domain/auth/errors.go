package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSelfRegisterAdmin  = errors.New("admin accounts cannot be self-registered")
)
