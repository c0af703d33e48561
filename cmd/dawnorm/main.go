// Command dawnorm generates entity code for record types and applies SQL
// migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
)

const usage = `dawnorm - Entity code generation and migrations

Usage:
  dawnorm [options] <command> [arguments]

Commands:
  gen                  Generate entity files for the configured records package
  migrate up           Apply pending migrations
  migrate down <name>  Revert one migration
  migrate status       List migrations and whether they are applied
  migrate new <name>   Create an empty up/down script pair
  migrate lint         Report destructive statements in up scripts

Options:
  -config <file>  Configuration file (default dawnorm.yaml)
  -v              Verbose (debug) logging
  -h, --help      Show this help message

Environment:
  DAWNORM_DSN     Overrides the configured data source name
  DAWNORM_DRIVER  Overrides the configured driver
`

// errUsage reports bad command line arguments. The message has already been
// printed when it is returned.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// cli carries what every command needs.
type cli struct {
	cfg    *Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dawnorm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "configuration file")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return nil
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	c := &cli{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}

	rest := fs.Args()
	switch cmd := rest[0]; cmd {
	case "help":
		fmt.Fprint(stdout, usage)
		return nil
	case "gen":
		return c.gen(ctx, rest[1:])
	case "migrate":
		return c.migrate(ctx, rest[1:])
	default:
		fmt.Fprintf(stderr, "error: unknown command: %s\n", cmd)
		fmt.Fprintln(stderr, "Run 'dawnorm --help' for usage.")
		return errUsage
	}
}
