package gen

import (
	"go/token"
	"go/types"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/syssam/dawnorm/compiler/load"
	"github.com/syssam/dawnorm/schema"
)

// dawnormPkg is the import path of the runtime package generated code uses.
const dawnormPkg = "github.com/syssam/dawnorm"

// File renders the entity file of record r.
func (g *Generator) File(r *load.Record) (*jen.File, error) {
	c := r.Classify()
	if len(c.Insert) == 0 {
		return nil, schema.NewSchemaError(r.Name, "", "record has no insertable fields", nil)
	}
	e := &entity{
		record: r,
		class:  c,
		tmpl:   schema.Generate(c),
		table:  g.cfg.Table(r.Name),
		recv:   receiver(r.Name),
		prefix: lowerFirst(r.Name),
	}
	f := jen.NewFilePathName(g.pkg.PkgPath, g.pkg.Name)
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	e.genConstants(f)
	e.genFields(f)
	e.genMethods(f)
	e.genSet(f)
	return f, nil
}

type entity struct {
	record *load.Record
	class  schema.Classification
	tmpl   schema.Templates
	table  string
	recv   string
	prefix string
}

func (e *entity) name() string { return e.record.Name }

func (e *entity) genConstants(f *jen.File) {
	f.Commentf("%sTable is the default table of %s.", e.name(), e.name())
	f.Const().Id(e.name() + "Table").Op("=").Lit(e.table)

	f.Commentf("Statement templates of %s. The %s token stands for the table.", e.name(), schema.TableToken)
	f.Const().Defs(
		jen.Id(e.prefix+"SelectColumns").Op("=").Lit(e.tmpl.SelectColumns),
		jen.Id(e.prefix+"InsertSQL").Op("=").Lit(e.tmpl.Insert.SQL),
		jen.Id(e.prefix+"UpdateSQL").Op("=").Lit(e.tmpl.Update.SQL),
		jen.Id(e.prefix+"DeleteSQL").Op("=").Lit(e.tmpl.Delete.SQL),
	)
}

func (e *entity) genFields(f *jen.File) {
	fields := make([]jen.Code, len(e.record.Fields))
	values := jen.Dict{}
	for i, fd := range e.record.Fields {
		fields[i] = jen.Id(fd.Name()).String()
		values[jen.Id(fd.Name())] = jen.Lit(fd.Column)
	}
	f.Commentf("%sFields holds the column names of %s, for use in filters.", e.name(), e.name())
	f.Var().Id(e.name() + "Fields").Op("=").Struct(fields...).Values(values)
}

func (e *entity) genMethods(f *jen.File) {
	recv := func() *jen.Statement { return jen.Id(e.recv).Op("*").Id(e.name()) }

	f.Comment("SelectColumns returns the comma separated column list.")
	f.Func().Params(recv()).Id("SelectColumns").Params().String().Block(
		jen.Return(jen.Id(e.prefix + "SelectColumns")),
	)

	f.Comment("KeyColumns returns the key columns.")
	keys := jen.Nil()
	if len(e.class.Key) > 0 {
		keys = jen.Index().String().ValuesFunc(func(grp *jen.Group) {
			for _, k := range e.class.Key {
				grp.Lit(k)
			}
		})
	}
	f.Func().Params(recv()).Id("KeyColumns").Params().Index().String().Block(jen.Return(keys))

	f.Commentf("ScanRow decodes row into %s. %s is left unchanged when a column fails to decode.", e.recv, e.recv)
	f.Func().Params(recv()).Id("ScanRow").Params(jen.Id("row").Qual(dawnormPkg, "Row")).Error().BlockFunc(func(grp *jen.Group) {
		locals := e.locals()
		for i, fd := range e.record.Fields {
			grp.List(jen.Id(locals[i]), jen.Err()).Op(":=").
				Qual(dawnormPkg, "Column").Types(typeCode(fd.Type)).Call(jen.Id("row"), jen.Lit(fd.Column))
			grp.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err()))
		}
		for i, fd := range e.record.Fields {
			grp.Add(e.selector(fd)).Op("=").Id(locals[i])
		}
		grp.Return(jen.Nil())
	})

	for _, q := range []struct {
		method, constant string
		tmpl             schema.Template
	}{
		{"InsertQuery", "InsertSQL", e.tmpl.Insert},
		{"UpdateQuery", "UpdateSQL", e.tmpl.Update},
		{"DeleteQuery", "DeleteSQL", e.tmpl.Delete},
	} {
		f.Commentf("%s returns the %s statement for table and its arguments.", q.method, strings.ToLower(strings.TrimSuffix(q.constant, "SQL")))
		f.Func().Params(recv()).Id(q.method).Params(jen.Id("table").String()).Params(jen.String(), jen.Index().Id("any")).Block(
			jen.Return(
				jen.Qual("strings", "Replace").Call(jen.Id(e.prefix+q.constant), jen.Lit(schema.TableToken), jen.Id("table"), jen.Lit(1)),
				jen.Index().Id("any").ValuesFunc(func(grp *jen.Group) {
					for _, col := range q.tmpl.Params {
						fd, _ := e.record.Field(col)
						grp.Add(e.selector(fd))
					}
				}),
			),
		)
	}
}

func (e *entity) genSet(f *jen.File) {
	name := inflect.Pluralize(e.name())
	if name == e.name() {
		name += "Set"
	}
	f.Commentf("%s returns a query over %sTable.", name, e.name())
	f.Func().Id(name).Params(jen.Id("c").Op("*").Qual(dawnormPkg, "Client")).
		Op("*").Qual(dawnormPkg, "DbSet").Types(jen.Id(e.name()), jen.Op("*").Id(e.name())).
		Block(jen.Return(jen.Qual(dawnormPkg, "Set").Types(jen.Id(e.name())).Call(jen.Id("c"), jen.Id(e.name()+"Table"))))
}

// selector returns the field access expression on the receiver.
func (e *entity) selector(fd *load.Field) *jen.Statement {
	s := jen.Id(e.recv)
	for _, p := range fd.Path {
		s = s.Dot(p)
	}
	return s
}

// locals returns a distinct local variable name for each field, avoiding
// keywords, predeclared identifiers and the other names ScanRow uses.
func (e *entity) locals() []string {
	used := map[string]bool{"row": true, "err": true, e.recv: true, "dawnorm": true}
	for _, fd := range e.record.Fields {
		packageNames(fd.Type, used)
	}
	names := make([]string, len(e.record.Fields))
	for i, fd := range e.record.Fields {
		base := lowerFirst(fd.Name())
		if token.IsKeyword(base) || types.Universe.Lookup(base) != nil {
			base += "Value"
		}
		name := base
		for n := 2; used[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// packageNames adds the names of the packages t refers to.
func packageNames(t types.Type, names map[string]bool) {
	switch t := t.(type) {
	case *types.Pointer:
		packageNames(t.Elem(), names)
	case *types.Slice:
		packageNames(t.Elem(), names)
	case *types.Array:
		packageNames(t.Elem(), names)
	case *types.Map:
		packageNames(t.Key(), names)
		packageNames(t.Elem(), names)
	case interface {
		Obj() *types.TypeName
		TypeArgs() *types.TypeList
	}:
		if pkg := t.Obj().Pkg(); pkg != nil {
			names[pkg.Name()] = true
		}
		for arg := range t.TypeArgs().Types() {
			packageNames(arg, names)
		}
	}
}

// receiver returns the receiver name of a record: its first letter, lowered.
func receiver(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	// Leading initialisms are lowered as a whole: HTTPLog → httpLog.
	upper := 0
	for i, c := range s {
		if !unicode.IsUpper(c) {
			break
		}
		upper = i + utf8.RuneLen(c)
	}
	if upper > n && upper < len(s) {
		last, size := utf8.DecodeLastRuneInString(s[:upper])
		return strings.ToLower(s[:upper-size]) + string(last) + s[upper:]
	}
	if upper == len(s) {
		return strings.ToLower(s)
	}
	return string(unicode.ToLower(r)) + s[n:]
}
