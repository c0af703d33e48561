package gen

import (
	"errors"
	"runtime"

	"github.com/syssam/dawnorm/schema"
)

// DefaultHeader is the comment placed at the top of generated files.
const DefaultHeader = "Code generated by dawnorm. DO NOT EDIT."

// Config holds the code generation configuration.
type Config struct {
	// Package is the pattern of the package declaring the records.
	Package string
	// Dir is the directory Package is resolved in. Empty means the
	// current directory.
	Dir string
	// Records restricts generation to the named types.
	Records []string
	// Tables overrides the default table of a record, keyed by type name.
	Tables map[string]string
	// Header is the comment placed at the top of each generated file.
	Header string
	// BuildFlags are passed to the go command when loading the package.
	BuildFlags []string
	// Workers bounds the number of files rendered in parallel.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

// WithPackage sets the records package pattern, e.g. "./internal/blog".
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithDir sets the directory the package pattern is resolved in.
func WithDir(dir string) Option {
	return func(c *Config) error {
		c.Dir = dir
		return nil
	}
}

// WithRecords restricts generation to the named record types.
func WithRecords(names ...string) Option {
	return func(c *Config) error {
		for _, n := range names {
			if n == "" {
				return NewConfigError("Records", nil, "record name cannot be empty")
			}
		}
		c.Records = append(c.Records, names...)
		return nil
	}
}

// WithTable overrides the default table of a record.
func WithTable(record, table string) Option {
	return func(c *Config) error {
		if record == "" || table == "" {
			return NewConfigError("Tables", record, "record and table cannot be empty")
		}
		if c.Tables == nil {
			c.Tables = make(map[string]string)
		}
		c.Tables[record] = table
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithBuildFlags sets custom build flags for loading the records package.
func WithBuildFlags(flags ...string) Option {
	return func(c *Config) error {
		c.BuildFlags = append(c.BuildFlags, flags...)
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Header:  DefaultHeader,
		Workers: runtime.GOMAXPROCS(0),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Table returns the table of the named record: the configured override or
// the pluralised snake case of its name.
func (c *Config) Table(record string) string {
	if t, ok := c.Tables[record]; ok {
		return t
	}
	return schema.TableName(record)
}
