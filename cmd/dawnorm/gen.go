package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syssam/dawnorm/compiler/gen"
)

// debounce is how long the watcher waits for writes to settle.
const debounce = 200 * time.Millisecond

func (c *cli) gen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	pkg := fs.String("package", c.cfg.Gen.Package, "records package pattern")
	records := fs.String("records", strings.Join(c.cfg.Gen.Records, ","), "comma separated record names")
	watch := fs.Bool("watch", false, "regenerate when the package changes")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if *pkg == "" {
		fmt.Fprintln(c.stderr, "error: 'dawnorm gen' requires -package or gen.package in the configuration")
		return errUsage
	}

	opts := []gen.Option{gen.WithPackage(*pkg), gen.WithBuildFlags(c.cfg.Gen.BuildFlags...)}
	if *records != "" {
		opts = append(opts, gen.WithRecords(strings.Split(*records, ",")...))
	}
	for record, table := range c.cfg.Gen.Tables {
		opts = append(opts, gen.WithTable(record, table))
	}
	if c.cfg.Gen.Header != "" {
		opts = append(opts, gen.WithHeader(c.cfg.Gen.Header))
	}
	cfg, err := gen.NewConfig(opts...)
	if err != nil {
		return err
	}

	files, err := c.generate(ctx, cfg)
	if err != nil {
		return err
	}
	if !*watch {
		return nil
	}
	return c.watch(ctx, cfg, filepath.Dir(files[0]))
}

func (c *cli) generate(ctx context.Context, cfg *gen.Config) ([]string, error) {
	start := time.Now()
	files, err := gen.Generate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		fmt.Fprintln(c.stdout, f)
	}
	c.logger.Debug("generation complete", "files", len(files), "duration", time.Since(start))
	return files, nil
}

// watch regenerates whenever a non-generated Go file of dir changes, until
// ctx is cancelled. Generation errors are logged and do not stop the watch.
func (c *cli) watch(ctx context.Context, cfg *gen.Config, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	c.logger.Info("watching for changes", "dir", dir)

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			c.logger.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", "error", err)
		case <-timer.C:
			if _, err := c.generate(ctx, cfg); err != nil {
				c.logger.Error("generation failed", "error", err)
			}
		}
	}
}

// relevant reports whether ev may change the records of the package.
func relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_entity.go") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
