package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no -config flag is given. It may be absent.
const DefaultConfigFile = "dawnorm.yaml"

// Config is the dawnorm.yaml configuration.
type Config struct {
	// Driver is the database/sql driver name (pgx, postgres or sqlite) or
	// pgxpool for the native pgx pool. Empty infers it from DSN.
	Driver string `yaml:"driver,omitempty"`
	// DSN is the data source name.
	DSN string `yaml:"dsn,omitempty"`
	// Migrations is the directory holding the migration scripts.
	Migrations string `yaml:"migrations,omitempty"`
	// Gen configures entity generation.
	Gen GenConfig `yaml:"gen,omitempty"`
}

// GenConfig configures entity generation.
type GenConfig struct {
	Package    string            `yaml:"package,omitempty"`
	Records    []string          `yaml:"records,omitempty"`
	Tables     map[string]string `yaml:"tables,omitempty"`
	Header     string            `yaml:"header,omitempty"`
	BuildFlags []string          `yaml:"build_flags,omitempty"`
}

// LoadConfig reads the configuration file at path, or DefaultConfigFile when
// path is empty, and applies the environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if v := os.Getenv("DAWNORM_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("DAWNORM_DRIVER"); v != "" {
		cfg.Driver = v
	}
	if cfg.Migrations == "" {
		cfg.Migrations = "migrations"
	}
	if cfg.Driver == "" {
		cfg.Driver = inferDriver(cfg.DSN)
	}
	return cfg, nil
}

func inferDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "pgx"
	}
	return "sqlite"
}
