package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
)

// IsExclusionViolation reports whether err came from an EXCLUDE constraint,
// optionally a specific one.
func IsExclusionViolation(err error, constraint string) bool {
	return isPgCode(err, codeExclusionViolation, constraint)
}

func IsUniqueViolation(err error, constraint string) bool {
	return isPgCode(err, codeUniqueViolation, constraint)
}

func isPgCode(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
