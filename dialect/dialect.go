package dialect

import (
	"context"
	"strings"
)

// Dialect names.
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

// Rows is a result set read one row at a time. Values returns the column
// values of the current row in the order of Columns.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// ExecQuerier executes SQL text with positional parameters.
type ExecQuerier interface {
	// Query runs a statement that returns rows.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// Driver is an ExecQuerier owning its connections.
type Driver interface {
	ExecQuerier
	// Dialect returns the dialect name of the driver.
	Dialect() string
	// Close releases the underlying connections.
	Close() error
}

// Normalize maps a database/sql driver name onto a dialect name.
func Normalize(driverName string) string {
	switch name := strings.ToLower(driverName); {
	case name == "pgx", strings.HasPrefix(name, "postgres"):
		return Postgres
	case strings.HasPrefix(name, "sqlite"):
		return SQLite
	default:
		return name
	}
}
