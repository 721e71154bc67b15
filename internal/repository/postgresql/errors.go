package postgresql

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes used by the repositories.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNumericOverflow     = "22003"
)

// constraintError returns the violated constraint name when err is a
// PostgreSQL error with the given code.
func constraintError(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isUniqueViolation(err error, constraint string) bool {
	name, ok := constraintError(err, pgUniqueViolation)
	return ok && (constraint == "" || name == constraint)
}

func isForeignKeyViolation(err error) bool {
	_, ok := constraintError(err, pgForeignKeyViolation)
	return ok
}

func isCheckViolation(err error) bool {
	_, ok := constraintError(err, pgCheckViolation)
	return ok
}

func isNumericOverflow(err error) bool {
	_, ok := constraintError(err, pgNumericOverflow)
	return ok
}
