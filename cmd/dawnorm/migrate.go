package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/dawnorm/dialect"
	"github.com/syssam/dawnorm/dialect/pgx"
	dsql "github.com/syssam/dawnorm/dialect/sql"
	"github.com/syssam/dawnorm/migrate"
)

// slowScript is the duration above which a migration statement is logged.
const slowScript = time.Second

func (c *cli) migrate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "error: 'dawnorm migrate' requires a subcommand (up, down, status, new, lint)")
		return errUsage
	}
	fs := flag.NewFlagSet("migrate "+args[0], flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	dir := fs.String("dir", c.cfg.Migrations, "migrations directory")
	allowDrop := fs.Bool("allow-drop", false, "lint: report dropped tables and columns as warnings")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	if args[0] == "new" {
		if fs.NArg() != 1 {
			fmt.Fprintln(c.stderr, "error: usage: dawnorm migrate new <name>")
			return errUsage
		}
		up, down, err := migrate.Create(*dir, fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, up)
		fmt.Fprintln(c.stdout, down)
		return nil
	}
	if args[0] == "lint" {
		m, err := migrate.LoadDir(os.DirFS(*dir))
		if err != nil {
			return err
		}
		var opts []migrate.LintOption
		if *allowDrop {
			opts = append(opts, migrate.AllowDropTable(), migrate.AllowDropColumn())
		}
		result := migrate.Lint(m, opts...)
		fmt.Fprintln(c.stdout, result)
		if result.HasBreakingChanges() {
			return errors.New("migrations contain breaking changes")
		}
		return nil
	}

	drv, stats, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		c.logger.Debug("query stats", "stats", stats.Stats().String())
		drv.Close()
	}()
	m, err := migrate.LoadDir(os.DirFS(*dir), migrate.WithLogger(c.logger))
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		return m.Migrate(ctx, drv)
	case "down":
		if fs.NArg() != 1 {
			fmt.Fprintln(c.stderr, "error: usage: dawnorm migrate down <name>")
			return errUsage
		}
		return m.Down(ctx, drv, fs.Arg(0))
	case "status":
		states, err := m.Status(ctx, drv)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTATUS")
		for _, s := range states {
			status := "pending"
			if s.Applied {
				status = "applied"
			}
			fmt.Fprintf(tw, "%s\t%s\n", s.Name, status)
		}
		return tw.Flush()
	default:
		fmt.Fprintf(c.stderr, "error: unknown migrate subcommand: %s\n", args[0])
		return errUsage
	}
}

// open connects to the configured database. Statements slower than
// slowScript are logged, and every statement is logged at debug level.
func (c *cli) open(ctx context.Context) (dialect.Driver, *dsql.QueryStats, error) {
	if c.cfg.DSN == "" {
		return nil, nil, errors.New("no data source: set dsn in the configuration or DAWNORM_DSN")
	}
	var (
		drv dialect.Driver
		err error
	)
	if c.cfg.Driver == "pgxpool" {
		drv, err = pgx.Open(ctx, c.cfg.DSN)
	} else {
		var sd *dsql.Driver
		sd, err = dsql.Open(c.cfg.Driver, c.cfg.DSN)
		if err == nil {
			if err = sd.Ping(ctx); err != nil {
				sd.Close()
			}
			drv = sd
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", c.cfg.Driver, err)
	}
	c.logger.Debug("connected", "driver", c.cfg.Driver, "dialect", drv.Dialect())
	stats := dsql.NewStatsDriver(
		dsql.NewDebugDriver(drv, dsql.DebugWithLogger(c.logger)),
		dsql.WithSlowThreshold(slowScript),
		dsql.WithSlowQueryLog(c.logger),
	)
	return stats, stats.QueryStats(), nil
}
