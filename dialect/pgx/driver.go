// Package pgx implements the dialect contract on a native pgx connection
// pool, without going through database/sql.
package pgx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syssam/dawnorm/dialect"
)

// Querier is the subset of *pgxpool.Pool, *pgx.Conn and pgx.Tx used by the
// driver.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Driver is a dialect.Driver over a pgx Querier.
type Driver struct {
	q     Querier
	close func()
}

// Open creates a connection pool for the given connection string.
func Open(ctx context.Context, dsn string) (*Driver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: open: %w", err)
	}
	return OpenPool(pool), nil
}

// OpenPool wraps an existing pool. Close closes the pool.
func OpenPool(pool *pgxpool.Pool) *Driver {
	return &Driver{q: pool, close: pool.Close}
}

// NewDriver wraps any Querier. Close is a no-op; the caller owns q.
func NewDriver(q Querier) *Driver {
	return &Driver{q: q}
}

// Query implements the dialect.ExecQuerier interface.
func (d *Driver) Query(ctx context.Context, query string, args ...any) (dialect.Rows, error) {
	rows, err := d.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: query: %w", err)
	}
	return &Rows{rows: rows}, nil
}

// Exec implements the dialect.ExecQuerier interface.
func (d *Driver) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := d.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("dialect/pgx: exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Dialect implements the dialect.Driver interface.
func (*Driver) Dialect() string { return dialect.Postgres }

// Close closes the pool opened by Open or OpenPool.
func (d *Driver) Close() error {
	if d.close != nil {
		d.close()
	}
	return nil
}

var _ dialect.Driver = (*Driver)(nil)

// Rows adapts pgx.Rows to dialect.Rows.
type Rows struct {
	rows pgx.Rows
}

// Columns returns the result column names.
func (r *Rows) Columns() ([]string, error) {
	fds := r.rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols, nil
}

// Next advances to the next row.
func (r *Rows) Next() bool { return r.rows.Next() }

// Values returns the decoded values of the current row. UUID columns are
// returned as uuid.UUID.
func (r *Rows) Values() ([]any, error) {
	values, err := r.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("dialect/pgx: values: %w", err)
	}
	for i, v := range values {
		if b, ok := v.([16]byte); ok {
			values[i] = uuid.UUID(b)
		}
	}
	return values, nil
}

// Err returns the error encountered while iterating, if any.
func (r *Rows) Err() error { return r.rows.Err() }

// Close closes the rows and returns the iteration error, if any.
func (r *Rows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}
