// Package dialect defines the client contract the query layer talks to.
//
// A client executes SQL text with positional ($n) parameters and returns
// either rows, read column by column, or an affected row count. The query
// layer never inspects the client beyond this contract, so any driver that
// satisfies ExecQuerier can be used:
//
//	type ExecQuerier interface {
//	    Query(ctx context.Context, query string, args ...any) (Rows, error)
//	    Exec(ctx context.Context, query string, args ...any) (int64, error)
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver (pgx, lib/pq, SQLite), with
//     statistics and debug wrappers and constraint error classification
//   - dialect/pgx: native pgxpool backed driver
package dialect
