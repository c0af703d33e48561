package sql

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Constraint kinds reported by ConstraintKind.
const (
	UniqueConstraint     = "unique"
	ForeignKeyConstraint = "foreign_key"
	CheckConstraint      = "check"
	NotNullConstraint    = "not_null"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

// sqlStateError is implemented by errors that provide SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// SQLState returns the SQLSTATE code carried by err, if any. It understands
// pgx (*pgconn.PgError), lib/pq (*pq.Error) and any error exposing a
// SQLState method.
func SQLState(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState(), true
	}
	return "", false
}

// ConstraintKind classifies a constraint violation. It returns the empty
// string when err is not a constraint violation.
func ConstraintKind(err error) string {
	if err == nil {
		return ""
	}
	if code, ok := SQLState(err); ok {
		switch code {
		case pgUniqueViolation:
			return UniqueConstraint
		case pgForeignKeyViolation:
			return ForeignKeyConstraint
		case pgCheckViolation:
			return CheckConstraint
		case pgNotNullViolation:
			return NotNullConstraint
		}
	}
	if e, ok := asError[sqliteCoder](err); ok {
		switch e.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return UniqueConstraint
		case sqliteConstraintForeignKey:
			return ForeignKeyConstraint
		case sqliteConstraintCheck:
			return CheckConstraint
		case sqliteConstraintNotNull:
			return NotNullConstraint
		}
	}
	// Fallback to string matching for drivers that don't implement interfaces.
	msg := err.Error()
	switch {
	case containsAny(msg, "violates unique constraint", "UNIQUE constraint failed"):
		return UniqueConstraint
	case containsAny(msg, "violates foreign key constraint", "FOREIGN KEY constraint failed"):
		return ForeignKeyConstraint
	case containsAny(msg, "violates check constraint", "CHECK constraint failed"):
		return CheckConstraint
	case containsAny(msg, "violates not-null constraint", "NOT NULL constraint failed"):
		return NotNullConstraint
	}
	return ""
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return ConstraintKind(err) != ""
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	return ConstraintKind(err) == UniqueConstraint
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	return ConstraintKind(err) == ForeignKeyConstraint
}

// IsCheckConstraintError reports if the error resulted from a check constraint violation.
func IsCheckConstraintError(err error) bool {
	return ConstraintKind(err) == CheckConstraint
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
