package schema

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// Struct tags read from record types.
const (
	ColumnTag = "db"
	MarkerTag = "dawn"
)

// Marker substrings recognised by Classify.
const (
	MarkerKey      = "key"
	MarkerNoInsert = "noinsert"
	MarkerNoUpdate = "noupdate"
)

// Field describes one persisted attribute of a record.
type Field struct {
	Name    string   // Go field name
	Column  string   // Column name in the result set and in templates
	Markers []string // Marker tokens, in tag order
	Type    reflect.Type
	Index   []int // Index path for reflect.Value.FieldByIndex
}

// HasMarker reports whether any marker of the field contains sub.
func (f Field) HasMarker(sub string) bool {
	for _, m := range f.Markers {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

// Record describes a record type: its name and persisted fields in
// declaration order.
type Record struct {
	Name   string
	Fields []Field
}

// Columns returns the column names of all fields.
func (r *Record) Columns() []string {
	cols := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Field returns the field mapped to the given column.
func (r *Record) Field(column string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

// Classify classifies the fields of the record.
func (r *Record) Classify() Classification {
	return Classify(r.Fields)
}

// Table returns the default table name of the record.
func (r *Record) Table() string {
	return TableName(r.Name)
}

// ParseTags returns the column name and markers of a field from its struct
// tag. skip is true when the field is excluded with `db:"-"`.
func ParseTags(name string, tag reflect.StructTag) (column string, markers []string, skip bool) {
	column, _, _ = strings.Cut(tag.Get(ColumnTag), ",")
	switch column = strings.TrimSpace(column); column {
	case "-":
		return "", nil, true
	case "":
		column = Snake(name)
	}
	for m := range strings.SplitSeq(tag.Get(MarkerTag), ",") {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	return column, markers, false
}

// Describe builds the description of a struct type. Pointer types are
// dereferenced once. Anonymous struct fields without a column tag are
// flattened into the parent.
func Describe(t reflect.Type) (*Record, error) {
	if t == nil {
		return nil, NewSchemaError("", "", "nil type", nil)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, NewSchemaError(t.String(), "", fmt.Sprintf("records must be structs, got %s", t.Kind()), nil)
	}
	r := &Record{Name: t.Name()}
	if err := describeFields(r, t, nil); err != nil {
		return nil, err
	}
	seen := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		if prev, ok := seen[f.Column]; ok {
			return nil, NewSchemaError(r.Name, f.Name, fmt.Sprintf("column %q already mapped by field %s", f.Column, prev), nil)
		}
		seen[f.Column] = f.Name
	}
	return r, nil
}

func describeFields(r *Record, t reflect.Type, index []int) error {
	for i := range t.NumField() {
		sf := t.Field(i)
		path := append(append([]int(nil), index...), i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Tag.Get(ColumnTag) == "" {
			if err := describeFields(r, sf.Type, path); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		column, markers, skip := ParseTags(sf.Name, sf.Tag)
		if skip {
			continue
		}
		if err := CheckType(sf.Type); err != nil {
			return NewSchemaError(r.Name, sf.Name, "unsupported field type", err)
		}
		r.Fields = append(r.Fields, Field{
			Name:    sf.Name,
			Column:  column,
			Markers: markers,
			Type:    sf.Type,
			Index:   path,
		})
	}
	return nil
}

// CheckType reports whether values of t can be bound as parameters and
// decoded from result columns.
func CheckType(t reflect.Type) error {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("%s values cannot be stored in a column", t.Kind())
	case reflect.Interface:
		if t.NumMethod() > 0 {
			return fmt.Errorf("interface %s cannot be decoded", t)
		}
	}
	return nil
}

var rules = inflect.NewDefaultRuleset()

// TableName returns the default table name for a record type name: the
// snake_case plural form, "Post" becomes "posts".
func TableName(name string) string {
	return Snake(rules.Pluralize(name))
}

// Snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
//	UserID   => user_id
func Snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "UserInfo"), or next letter is also
		// a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
