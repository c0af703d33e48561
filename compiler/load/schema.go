// Package load reads record types from Go packages with go/packages, so the
// generator can describe them without compiling and running user code.
package load

import (
	"errors"
	"fmt"
	"go/types"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/syssam/dawnorm/schema"
)

// Config holds the configuration for loading records.
type Config struct {
	// Path is the package pattern holding the records, e.g. "./internal/blog".
	Path string
	// Names, if set, restricts loading to the named types. Without it every
	// exported struct type with at least one db or dawn tagged field is a
	// record; unexported helper structs meant for embedding are skipped.
	Names []string
	// BuildFlags are passed to the go command.
	BuildFlags []string
	// Dir is the directory the pattern is resolved in.
	Dir string
}

// Package is a loaded package and the records it declares.
type Package struct {
	Name    string
	PkgPath string
	Dir     string
	Records []*Record
}

// Record is a struct type loaded from source.
type Record struct {
	Name    string
	PkgPath string
	Pos     string
	Fields  []*Field
}

// Field is one column of a loaded record.
type Field struct {
	// Path is the selector path from the record to the field, including
	// embedded struct names.
	Path    []string
	Column  string
	Markers []string
	Type    types.Type
}

// Name returns the Go name of the field.
func (f *Field) Name() string { return f.Path[len(f.Path)-1] }

// Selector returns the field selector relative to the record, e.g. "Audit.CreatedAt".
func (f *Field) Selector() string { return strings.Join(f.Path, ".") }

// Classify groups the record columns.
func (r *Record) Classify() schema.Classification {
	fields := make([]schema.Field, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = schema.Field{Name: f.Name(), Column: f.Column, Markers: f.Markers}
	}
	return schema.Classify(fields)
}

// Field returns the field mapped to column.
func (r *Record) Field(column string) (*Field, bool) {
	for _, f := range r.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return nil, false
}

// Load loads the package matching c.Path and describes its records.
func (c *Config) Load() (*Package, error) {
	if c.Path == "" {
		return nil, errors.New("load: missing package path")
	}
	cfg := &packages.Config{
		Mode:       packages.NeedName | packages.NeedFiles | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
		BuildFlags: c.BuildFlags,
		Dir:        c.Dir,
	}
	pkgs, err := packages.Load(cfg, c.Path)
	if err != nil {
		return nil, fmt.Errorf("loading package %q: %w", c.Path, err)
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("load: pattern %q matched %d packages, want 1", c.Path, len(pkgs))
	}
	pkg := pkgs[0]
	// Only syntax errors are fatal. Type and import errors are tolerated so
	// that a stale generated file does not prevent its own regeneration.
	for _, e := range pkg.Errors {
		if e.Kind == packages.ParseError {
			return nil, fmt.Errorf("loading package %q: %w", c.Path, e)
		}
	}
	if pkg.Types == nil || len(pkg.Syntax) == 0 {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("loading package %q: %w", c.Path, pkg.Errors[0])
		}
		return nil, fmt.Errorf("load: no Go files in %q", c.Path)
	}
	p := &Package{Name: pkg.Name, PkgPath: pkg.PkgPath}
	if len(pkg.GoFiles) > 0 {
		p.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	records, err := c.records(pkg)
	if err != nil {
		return nil, err
	}
	p.Records = records
	return p, nil
}

func (c *Config) records(pkg *packages.Package) ([]*Record, error) {
	scope := pkg.Types.Scope()
	names := c.Names
	explicit := len(names) > 0
	if !explicit {
		names = scope.Names()
	}
	var records []*Record
	for _, name := range names {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || obj.IsAlias() {
			if explicit {
				return nil, schema.NewSchemaError(name, "", "type not found in "+pkg.PkgPath, nil)
			}
			continue
		}
		if !explicit && !obj.Exported() {
			continue
		}
		named, ok := obj.Type().(*types.Named)
		if !ok {
			continue
		}
		st, ok := named.Underlying().(*types.Struct)
		if !ok {
			if explicit {
				return nil, schema.NewSchemaError(name, "", "records must be structs", nil)
			}
			continue
		}
		if !explicit && !tagged(st) {
			continue
		}
		if named.TypeParams().Len() > 0 {
			if explicit {
				return nil, schema.NewSchemaError(name, "", "generic records are not supported", nil)
			}
			continue
		}
		r := &Record{Name: name, PkgPath: pkg.PkgPath, Pos: pkg.Fset.Position(obj.Pos()).String()}
		if err := describe(r, st, nil); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b *Record) int { return strings.Compare(a.Name, b.Name) })
	return records, nil
}

// tagged reports whether a field of st, or of a struct it embeds, carries a
// column or marker tag.
func tagged(st *types.Struct) bool {
	for i := range st.NumFields() {
		tag := reflect.StructTag(st.Tag(i))
		if _, ok := tag.Lookup(schema.ColumnTag); ok {
			return true
		}
		if _, ok := tag.Lookup(schema.MarkerTag); ok {
			return true
		}
		if f := st.Field(i); f.Embedded() {
			if inner, ok := f.Type().Underlying().(*types.Struct); ok && tagged(inner) {
				return true
			}
		}
	}
	return false
}

func describe(r *Record, st *types.Struct, path []string) error {
	for i := range st.NumFields() {
		v := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))
		fpath := append(slices.Clone(path), v.Name())
		if v.Embedded() && tag.Get(schema.ColumnTag) == "" {
			if _, isPtr := v.Type().(*types.Pointer); !isPtr {
				if inner, ok := v.Type().Underlying().(*types.Struct); ok {
					if err := describe(r, inner, fpath); err != nil {
						return err
					}
					continue
				}
			}
		}
		if !v.Exported() {
			continue
		}
		column, markers, skip := schema.ParseTags(v.Name(), tag)
		if skip {
			continue
		}
		if err := checkType(v.Type()); err != nil {
			return schema.NewSchemaError(r.Name, v.Name(), err.Error(), nil)
		}
		if prev, ok := r.Field(column); ok {
			return schema.NewSchemaError(r.Name, v.Name(), fmt.Sprintf("column %q already mapped by field %s", column, prev.Name()), nil)
		}
		for _, f := range r.Fields {
			if f.Name() == v.Name() {
				return schema.NewSchemaError(r.Name, v.Name(), "field name is used twice through embedding", nil)
			}
		}
		r.Fields = append(r.Fields, &Field{Path: fpath, Column: column, Markers: markers, Type: v.Type()})
	}
	return nil
}

// checkType rejects field types no driver value can be stored in.
func checkType(t types.Type) error {
	switch u := t.Underlying().(type) {
	case *types.Chan:
		return errors.New("channel fields are not supported")
	case *types.Signature:
		return errors.New("func fields are not supported")
	case *types.Basic:
		switch u.Kind() {
		case types.Complex64, types.Complex128:
			return errors.New("complex fields are not supported")
		case types.UnsafePointer:
			return errors.New("unsafe.Pointer fields are not supported")
		}
	case *types.Interface:
		if !u.Empty() {
			return fmt.Errorf("interface field of type %s is not supported", t)
		}
	}
	return nil
}
