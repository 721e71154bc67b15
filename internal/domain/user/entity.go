package user

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"    // Manages employees, departments and payroll
	RoleEmployee Role = "employee" // Sees own payroll only
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User is an identity record. Users are never deleted; removing the
// employee that references a user leaves the user in place.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Name         string
	Email        string
	Phone        *string
	Role         Role
	CreatedAt    time.Time
}

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
