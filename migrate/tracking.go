package migrate

import (
	"context"
	"fmt"

	"github.com/syssam/dawnorm/dialect"
)

// TableName is the bookkeeping table recording applied migrations.
const TableName = "__dawnorm_schema_migrations"

func ensureTable(ctx context.Context, drv dialect.ExecQuerier) error {
	_, err := drv.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+TableName+` (
	name   TEXT PRIMARY KEY,
	run_on TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`)
	if err != nil {
		return fmt.Errorf("migrate: create %s: %w", TableName, err)
	}
	return nil
}

// appliedNames returns the recorded migration names.
func appliedNames(ctx context.Context, drv dialect.ExecQuerier) ([]string, error) {
	rows, err := drv.Query(ctx, "SELECT name FROM "+TableName+";")
	if err != nil {
		return nil, fmt.Errorf("migrate: query applied migrations: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("migrate: scan migration name: %w", err)
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("migrate: expected 1 column, got %d", len(values))
		}
		switch v := values[0].(type) {
		case string:
			names = append(names, v)
		case []byte:
			names = append(names, string(v))
		default:
			return nil, fmt.Errorf("migrate: unexpected migration name type %T", v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("migrate: iterate applied migrations: %w", err)
	}
	return names, nil
}

func record(ctx context.Context, drv dialect.ExecQuerier, name string) error {
	if _, err := drv.Exec(ctx, "INSERT INTO "+TableName+" (name) VALUES ($1);", name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

func forget(ctx context.Context, drv dialect.ExecQuerier, name string) error {
	if _, err := drv.Exec(ctx, "DELETE FROM "+TableName+" WHERE name = $1;", name); err != nil {
		return fmt.Errorf("remove migration record: %w", err)
	}
	return nil
}
