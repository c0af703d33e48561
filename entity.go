package dawnorm

import (
	"errors"
	"fmt"
	"reflect"
)

// Row is one result row, addressed by column name.
type Row interface {
	// Value returns the raw value of the named column.
	Value(column string) (any, error)
}

// Entity is the capability set every record type exposes to DbSet. It is
// implemented on the record pointer, usually by generated code.
type Entity interface {
	// SelectColumns returns the comma separated column list of the record.
	SelectColumns() string
	// KeyColumns returns the key columns, in declaration order.
	KeyColumns() []string
	// ScanRow decodes a row into the record. It fails on the first column
	// that cannot be decoded and leaves the record unchanged then.
	ScanRow(Row) error
	// InsertQuery returns the insert statement for table and its arguments.
	InsertQuery(table string) (string, []any)
	// UpdateQuery returns the update statement for table and its arguments.
	UpdateQuery(table string) (string, []any)
	// DeleteQuery returns the delete statement for table and its arguments.
	DeleteQuery(table string) (string, []any)
}

// EntityPtr constrains P to be a pointer to T implementing Entity.
type EntityPtr[T any] interface {
	*T
	Entity
}

var errMissingColumn = errors.New("column not present in result")

// Column decodes the named column of row into a value of type T. Times are
// returned in UTC.
func Column[T any](row Row, column string) (T, error) {
	var v T
	src, err := row.Value(column)
	if err != nil {
		return v, &DecodeError{Column: column, Type: reflect.TypeFor[T](), Err: err}
	}
	if err := convertAssign(&v, src); err != nil {
		return v, &DecodeError{Column: column, Type: reflect.TypeFor[T](), Err: err}
	}
	return v, nil
}

// resultRow is a Row over the values of one result row.
type resultRow struct {
	index  map[string]int
	values []any
}

func newIndex(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}
	return index
}

func (r *resultRow) Value(column string) (any, error) {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return nil, errMissingColumn
	}
	return r.values[i], nil
}

// NewRow returns a Row over a column list and its values. It is useful
// for testing ScanRow implementations.
func NewRow(columns []string, values []any) (Row, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("dawnorm: %d columns for %d values", len(columns), len(values))
	}
	return &resultRow{index: newIndex(columns), values: values}, nil
}
