// Package sql implements the dialect contract on top of database/sql.
//
// Any registered database/sql driver can be used. The driver name passed to
// Open is normalized into a dialect name:
//
//	import _ "github.com/jackc/pgx/v5/stdlib" // "pgx"
//	import _ "github.com/lib/pq"               // "postgres"
//	import _ "modernc.org/sqlite"              // "sqlite"
//
//	drv, err := sql.Open("pgx", "postgres://localhost/blog")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Wrappers
//
// StatsDriver counts statements, errors and slow queries; DebugDriver logs
// every statement. Both wrap any dialect.Driver.
//
// # Errors
//
// ConstraintKind and the IsXConstraintError helpers classify constraint
// violations reported by pgx, lib/pq and SQLite.
package sql
