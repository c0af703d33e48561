// Package migrate applies named DDL scripts to a database exactly once, in
// the order they were added.
//
// Applied scripts are recorded by name in the __dawnorm_schema_migrations
// table, which is created on first use. Running the same Migrator again only
// applies the scripts added since:
//
//	m := migrate.New().
//		AddUp("initial-migration", "CREATE TABLE posts (id SERIAL PRIMARY KEY, title TEXT NOT NULL, body TEXT);").
//		AddUpDown("post-slug", "ALTER TABLE posts ADD COLUMN slug TEXT;", "ALTER TABLE posts DROP COLUMN slug;")
//	if err := m.Migrate(ctx, drv); err != nil {
//		log.Fatal(err)
//	}
//
// A failing script stops the run. Scripts applied before it stay recorded
// and the failed one is not, so the database may need manual repair before
// the next run.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syssam/dawnorm/dialect"
)

var (
	// ErrDuplicateName is returned when two migrations share a name.
	ErrDuplicateName = errors.New("migrate: duplicate migration name")
	// ErrUnknown is returned by Down for a name the Migrator does not hold.
	ErrUnknown = errors.New("migrate: unknown migration")
	// ErrNotApplied is returned by Down for a migration that is not recorded.
	ErrNotApplied = errors.New("migrate: migration not applied")
	// ErrNoDown is returned by Down for a migration without a down script.
	ErrNoDown = errors.New("migrate: migration has no down script")
)

// Error reports a script that failed to apply or revert.
type Error struct {
	Name string // Migration name
	Err  error  // Underlying error
}

// Error returns the error string.
func (e *Error) Error() string {
	return fmt.Sprintf("migrate: migration %q failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Migration is one named schema change.
type Migration struct {
	Name string
	Up   string
	Down string // empty when the migration cannot be reverted
}

// State is the state of one migration in the database.
type State struct {
	Name    string
	Applied bool
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the logger progress is reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) {
		m.logger = logger
	}
}

// Migrator holds an ordered list of migrations.
type Migrator struct {
	migrations []Migration
	logger     *slog.Logger
}

// New returns an empty Migrator.
func New(opts ...Option) *Migrator {
	m := &Migrator{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddUp appends a migration without a down script.
func (m *Migrator) AddUp(name, up string) *Migrator {
	return m.AddUpDown(name, up, "")
}

// AddUpDown appends a migration with a down script.
func (m *Migrator) AddUpDown(name, up, down string) *Migrator {
	m.migrations = append(m.migrations, Migration{Name: name, Up: up, Down: down})
	return m
}

// Migrations returns the migrations in application order.
func (m *Migrator) Migrations() []Migration {
	return append([]Migration(nil), m.migrations...)
}

// Migrate applies, in order, every migration whose name is not recorded yet.
func (m *Migrator) Migrate(ctx context.Context, drv dialect.ExecQuerier) error {
	if err := m.validate(); err != nil {
		return err
	}
	applied, err := appliedSet(ctx, drv)
	if err != nil {
		return err
	}
	var n int
	for _, mg := range m.migrations {
		if applied[mg.Name] {
			m.logger.DebugContext(ctx, "migration already applied", "name", mg.Name)
			continue
		}
		if _, err := drv.Exec(ctx, mg.Up); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "name", mg.Name, "error", err)
			return &Error{Name: mg.Name, Err: err}
		}
		if err := record(ctx, drv, mg.Name); err != nil {
			return &Error{Name: mg.Name, Err: err}
		}
		m.logger.InfoContext(ctx, "migration applied", "name", mg.Name)
		n++
	}
	m.logger.DebugContext(ctx, "migrations complete", "applied", n, "total", len(m.migrations))
	return nil
}

// Down reverts the named migration and removes its record.
func (m *Migrator) Down(ctx context.Context, drv dialect.ExecQuerier, name string) error {
	var mg *Migration
	for i := range m.migrations {
		if m.migrations[i].Name == name {
			mg = &m.migrations[i]
			break
		}
	}
	if mg == nil {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if mg.Down == "" {
		return fmt.Errorf("%w: %q", ErrNoDown, name)
	}
	applied, err := appliedSet(ctx, drv)
	if err != nil {
		return err
	}
	if !applied[name] {
		return fmt.Errorf("%w: %q", ErrNotApplied, name)
	}
	if _, err := drv.Exec(ctx, mg.Down); err != nil {
		return &Error{Name: name, Err: err}
	}
	if err := forget(ctx, drv, name); err != nil {
		return &Error{Name: name, Err: err}
	}
	m.logger.InfoContext(ctx, "migration reverted", "name", name)
	return nil
}

// Status reports, in order, whether each migration has been applied.
func (m *Migrator) Status(ctx context.Context, drv dialect.ExecQuerier) ([]State, error) {
	applied, err := appliedSet(ctx, drv)
	if err != nil {
		return nil, err
	}
	states := make([]State, len(m.migrations))
	for i, mg := range m.migrations {
		states[i] = State{Name: mg.Name, Applied: applied[mg.Name]}
	}
	return states, nil
}

func (m *Migrator) validate() error {
	seen := make(map[string]struct{}, len(m.migrations))
	for _, mg := range m.migrations {
		if _, ok := seen[mg.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateName, mg.Name)
		}
		seen[mg.Name] = struct{}{}
	}
	return nil
}

func appliedSet(ctx context.Context, drv dialect.ExecQuerier) (map[string]bool, error) {
	if err := ensureTable(ctx, drv); err != nil {
		return nil, err
	}
	names, err := appliedNames(ctx, drv)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}
