package dawnorm

import (
	"errors"
	"fmt"
	"reflect"

	dsql "github.com/syssam/dawnorm/dialect/sql"
)

// ErrNoResult is returned when a query that requires a row returns none.
var ErrNoResult = errors.New("dawnorm: no result")

// NoResultError represents a query that matched no rows.
type NoResultError struct {
	Table string
}

// Error returns the error string.
func (e *NoResultError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("dawnorm: no result from %s", e.Table)
	}
	return ErrNoResult.Error()
}

// Is reports whether the target error matches NoResultError.
// This allows errors.Is(noResultErr, ErrNoResult) to return true.
func (e *NoResultError) Is(err error) bool {
	return err == ErrNoResult
}

// IsNoResult returns true if the error is a NoResultError.
func IsNoResult(err error) bool {
	return err != nil && errors.Is(err, ErrNoResult)
}

// TransportError wraps a failure reported by the client.
type TransportError struct {
	Table string // Table the statement targeted
	Op    string // Operation (e.g., "query", "insert", "delete")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *TransportError) Error() string {
	return fmt.Sprintf("dawnorm: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if the error is a TransportError.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var e *TransportError
	return errors.As(err, &e)
}

// IsConstraintError returns true if the client reported a constraint
// violation (unique, foreign key, check or not-null).
func IsConstraintError(err error) bool {
	return IsTransportError(err) && dsql.IsConstraintError(err)
}

// DecodeError is returned when a result column is missing or cannot be
// converted into the field type.
type DecodeError struct {
	Column string
	Type   reflect.Type
	Err    error
}

// Error returns the error string.
func (e *DecodeError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("dawnorm: decoding column %q into %s: %v", e.Column, e.Type, e.Err)
	}
	return fmt.Sprintf("dawnorm: decoding column %q: %v", e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if the error is a DecodeError.
func IsDecodeError(err error) bool {
	if err == nil {
		return false
	}
	var e *DecodeError
	return errors.As(err, &e)
}

// MisuseError is the panic value raised for programming errors, such as
// reusing a DbSet after a terminal operation or running a bulk operation
// without a filter. It is never returned as an error.
type MisuseError struct {
	Op  string
	Msg string
}

// Error returns the error string.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("dawnorm: misuse of %s: %s", e.Op, e.Msg)
}

func misuse(op, format string, args ...any) {
	panic(&MisuseError{Op: op, Msg: fmt.Sprintf(format, args...)})
}
