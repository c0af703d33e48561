package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var (
	fileRe = regexp.MustCompile(`^(\d+)_([A-Za-z0-9][A-Za-z0-9_-]*)\.(up|down)\.sql$`)
	nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// LoadDir builds a Migrator from the scripts at the root of fsys. Scripts
// are named NNNN_name.up.sql and NNNN_name.down.sql; the migration name is
// NNNN_name and migrations run in numeric order. Other files are ignored.
func LoadDir(fsys fs.FS, opts ...Option) (*Migrator, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: read dir: %w", err)
	}
	type script struct {
		version  int
		name     string
		up, down string
		hasUp    bool
	}
	byName := make(map[string]*script)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("migrate: bad version in %s: %w", e.Name(), err)
		}
		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", e.Name(), err)
		}
		name := m[1] + "_" + m[2]
		s, ok := byName[name]
		if !ok {
			s = &script{version: version, name: name}
			byName[name] = s
		}
		if m[3] == "up" {
			s.up, s.hasUp = string(body), true
		} else {
			s.down = string(body)
		}
	}
	scripts := make([]*script, 0, len(byName))
	for _, s := range byName {
		if !s.hasUp {
			return nil, fmt.Errorf("migrate: %s has a down script but no up script", s.name)
		}
		scripts = append(scripts, s)
	}
	sort.Slice(scripts, func(i, j int) bool {
		if scripts[i].version != scripts[j].version {
			return scripts[i].version < scripts[j].version
		}
		return scripts[i].name < scripts[j].name
	})
	m := New(opts...)
	for _, s := range scripts {
		m.AddUpDown(s.name, s.up, s.down)
	}
	return m, nil
}

// Create writes an empty up and down script pair for name into dir, numbered
// after the highest existing script. It returns the paths written.
func Create(dir, name string) (up, down string, err error) {
	if !nameRe.MatchString(name) {
		return "", "", fmt.Errorf("migrate: invalid migration name %q: use lowercase letters, digits, '-' and '_'", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("migrate: create dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("migrate: read dir: %w", err)
	}
	next := 1
	for _, e := range entries {
		if m := fileRe.FindStringSubmatch(e.Name()); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v >= next {
				next = v + 1
			}
		}
	}
	stem := fmt.Sprintf("%04d_%s", next, name)
	up = filepath.Join(dir, stem+".up.sql")
	down = filepath.Join(dir, stem+".down.sql")
	if err := os.WriteFile(up, []byte("-- "+stem+" up\n"), 0o644); err != nil {
		return "", "", fmt.Errorf("migrate: write %s: %w", up, err)
	}
	if err := os.WriteFile(down, []byte("-- "+stem+" down\n"), 0o644); err != nil {
		return "", "", fmt.Errorf("migrate: write %s: %w", down, err)
	}
	return up, down, nil
}
