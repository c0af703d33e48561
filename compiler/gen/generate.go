package gen

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/dawnorm/compiler/load"
	"github.com/syssam/dawnorm/schema"
)

// Generate loads the records of cfg.Package and writes one entity file per
// record next to its declaration. It returns the written paths, sorted.
func Generate(ctx context.Context, cfg *Config) ([]string, error) {
	if cfg == nil || cfg.Package == "" {
		return nil, NewConfigError("Package", nil, "missing records package")
	}
	lc := &load.Config{
		Path:       cfg.Package,
		Names:      cfg.Records,
		BuildFlags: cfg.BuildFlags,
		Dir:        cfg.Dir,
	}
	pkg, err := lc.Load()
	if err != nil {
		return nil, err
	}
	if len(pkg.Records) == 0 {
		return nil, NewGenerationError("load", "", "no records found in "+pkg.PkgPath, nil)
	}
	for name := range cfg.Tables {
		if !slices.ContainsFunc(pkg.Records, func(r *load.Record) bool { return r.Name == name }) {
			return nil, NewConfigError("Tables", name, "table override for an unknown record")
		}
	}
	return NewGenerator(cfg, pkg).Generate(ctx)
}

// Generator renders the entity files of one loaded package.
type Generator struct {
	cfg     *Config
	pkg     *load.Package
	workers int
}

// NewGenerator creates a Generator for pkg.
func NewGenerator(cfg *Config, pkg *load.Package) *Generator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Generator{cfg: cfg, pkg: pkg, workers: workers}
}

// Generate writes the entity file of every record in parallel.
func (g *Generator) Generate(ctx context.Context) ([]string, error) {
	var (
		mu    sync.Mutex
		paths []string
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, r := range g.pkg.Records {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := g.File(r)
			if err != nil {
				return err
			}
			path := filepath.Join(g.pkg.Dir, FileName(r.Name))
			if err := g.writeFile(f, path); err != nil {
				return err
			}
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

// FileName returns the name of the entity file generated for a record.
func FileName(record string) string {
	return schema.Snake(record) + "_entity.go"
}
