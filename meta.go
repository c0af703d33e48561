package dawnorm

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/syssam/dawnorm/schema"
)

// Meta is the reflection based form of the Entity contract for a record
// type T. It describes T once and serves the same statements the code
// generator would emit, so hand-written records can implement Entity by
// delegating to it:
//
//	var postMeta = dawnorm.MustMeta[Post]()
//
//	func (p *Post) SelectColumns() string { return postMeta.SelectColumns() }
//	func (p *Post) KeyColumns() []string { return postMeta.KeyColumns() }
//	func (p *Post) ScanRow(r dawnorm.Row) error { return postMeta.ScanRow(p, r) }
//	func (p *Post) InsertQuery(t string) (string, []any) { return postMeta.InsertQuery(p, t) }
//	func (p *Post) UpdateQuery(t string) (string, []any) { return postMeta.UpdateQuery(p, t) }
//	func (p *Post) DeleteQuery(t string) (string, []any) { return postMeta.DeleteQuery(p, t) }
type Meta[T any] struct {
	record    *schema.Record
	class     schema.Classification
	templates schema.Templates
	fields    map[string]schema.Field
}

// NewMeta describes T. It fails when T is not a struct, has fields of an
// unsupported shape, maps two fields to one column or has no insertable
// field.
func NewMeta[T any]() (*Meta[T], error) {
	r, err := schema.Describe(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	c := r.Classify()
	if len(c.Insert) == 0 {
		return nil, schema.NewSchemaError(r.Name, "", "record has no insertable fields", nil)
	}
	m := &Meta[T]{
		record:    r,
		class:     c,
		templates: schema.Generate(c),
		fields:    make(map[string]schema.Field, len(r.Fields)),
	}
	for _, f := range r.Fields {
		m.fields[f.Column] = f
	}
	return m, nil
}

// MustMeta is like NewMeta but panics on error. It is meant for package
// level variables, making a bad record description fail at start up.
func MustMeta[T any]() *Meta[T] {
	m, err := NewMeta[T]()
	if err != nil {
		panic(err)
	}
	return m
}

// Record returns the description of T.
func (m *Meta[T]) Record() *schema.Record { return m.record }

// Classification returns the column groups of T.
func (m *Meta[T]) Classification() schema.Classification { return m.class }

// Templates returns the statement templates of T.
func (m *Meta[T]) Templates() schema.Templates { return m.templates }

// SelectColumns returns the select list of T.
func (m *Meta[T]) SelectColumns() string { return m.templates.SelectColumns }

// KeyColumns returns the key columns of T.
func (m *Meta[T]) KeyColumns() []string { return slices.Clone(m.class.Key) }

// ScanRow decodes every column of row into v. v is left unchanged when a
// column fails to decode.
func (m *Meta[T]) ScanRow(v *T, row Row) error {
	decoded := make([]reflect.Value, len(m.record.Fields))
	for i, f := range m.record.Fields {
		src, err := row.Value(f.Column)
		if err != nil {
			return &DecodeError{Column: f.Column, Type: f.Type, Err: err}
		}
		dst := reflect.New(f.Type).Elem()
		if err := assign(dst, src); err != nil {
			return &DecodeError{Column: f.Column, Type: f.Type, Err: err}
		}
		decoded[i] = dst
	}
	rv := reflect.ValueOf(v).Elem()
	for i, f := range m.record.Fields {
		rv.FieldByIndex(f.Index).Set(decoded[i])
	}
	return nil
}

// InsertQuery returns the insert statement for table and the values of v
// bound to it.
func (m *Meta[T]) InsertQuery(v *T, table string) (string, []any) {
	return m.templates.Insert.Render(table), m.bind(v, m.templates.Insert)
}

// UpdateQuery returns the update statement for table and the values of v
// bound to it.
func (m *Meta[T]) UpdateQuery(v *T, table string) (string, []any) {
	return m.templates.Update.Render(table), m.bind(v, m.templates.Update)
}

// DeleteQuery returns the delete statement for table and the key values of
// v bound to it.
func (m *Meta[T]) DeleteQuery(v *T, table string) (string, []any) {
	return m.templates.Delete.Render(table), m.bind(v, m.templates.Delete)
}

func (m *Meta[T]) bind(v *T, t schema.Template) []any {
	rv := reflect.ValueOf(v).Elem()
	args := make([]any, len(t.Params))
	for i, col := range t.Params {
		f, ok := m.fields[col]
		if !ok {
			panic(fmt.Sprintf("dawnorm: template column %q has no field", col))
		}
		args[i] = rv.FieldByIndex(f.Index).Interface()
	}
	return args
}
