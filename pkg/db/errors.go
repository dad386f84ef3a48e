package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE classes the repositories translate into domain errors.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateCheckViolation      = "23514"
	sqlStateForeignKeyViolation = "23503"
)

// IsUniqueViolation reports a unique violation, optionally on a named constraint or index.
func IsUniqueViolation(err error, constraint string) bool {
	return matches(err, sqlStateUniqueViolation, constraint, "UNIQUE constraint failed", "duplicate key value")
}

// IsCheckViolation reports a CHECK constraint failure, optionally on a named constraint.
func IsCheckViolation(err error, constraint string) bool {
	return matches(err, sqlStateCheckViolation, constraint, "CHECK constraint failed")
}

func IsForeignKeyViolation(err error, constraint string) bool {
	return matches(err, sqlStateForeignKeyViolation, constraint, "FOREIGN KEY constraint failed")
}

// matches checks the SQLSTATE from pgx or lib/pq. Drivers without structured
// errors (sqlite in tests) fall back to their message text.
func matches(err error, state, constraint string, fallbacks ...string) bool {
	if err == nil {
		return false
	}
	if code, name, ok := sqlState(err); ok {
		return code == state && (constraint == "" || name == constraint)
	}
	msg := err.Error()
	if constraint != "" && !strings.Contains(msg, constraint) {
		return false
	}
	for _, fallback := range fallbacks {
		if strings.Contains(msg, fallback) {
			return true
		}
	}
	return false
}

func sqlState(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
