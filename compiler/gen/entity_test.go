package gen

import (
	"go/token"
	"go/types"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dawnorm/compiler/load"
	"github.com/syssam/dawnorm/schema"
)

func namedType(pkgPath, pkgName, name string) types.Type {
	obj := types.NewTypeName(token.NoPos, types.NewPackage(pkgPath, pkgName), name, nil)
	return types.NewNamed(obj, types.NewStruct(nil, nil), nil)
}

func postRecord() *load.Record {
	return &load.Record{
		Name:    "Post",
		PkgPath: "example.com/blog",
		Fields: []*load.Field{
			{Path: []string{"ID"}, Column: "id", Markers: []string{"key", "noinsert", "noupdate"}, Type: types.Typ[types.Int32]},
			{Path: []string{"Title"}, Column: "title", Type: types.Typ[types.String]},
			{Path: []string{"Body"}, Column: "body", Type: types.NewPointer(types.Typ[types.String])},
		},
	}
}

func newTestGenerator(t *testing.T, opts ...Option) *Generator {
	t.Helper()
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)
	return NewGenerator(cfg, &load.Package{Name: "blog", PkgPath: "example.com/blog"})
}

// =============================================================================
// File Tests
// =============================================================================

func TestFile_Post(t *testing.T) {
	g := newTestGenerator(t)
	f, err := g.File(postRecord())
	require.NoError(t, err)

	code := f.GoString()
	assert.Contains(t, code, "// Code generated by dawnorm. DO NOT EDIT.")
	assert.Contains(t, code, "package blog")
	assert.Contains(t, code, `const PostTable = "posts"`)
	assert.Contains(t, code, `"id, title, body"`)
	assert.Contains(t, code, `"INSERT INTO {}(title, body) VALUES ($1, $2) RETURNING id, title, body;"`)
	assert.Contains(t, code, `"UPDATE {} SET (title, body) = ($1, $2) WHERE (id) = ($3) RETURNING id, title, body;"`)
	assert.Contains(t, code, `"DELETE FROM {} WHERE (id) = ($1);"`)
	assert.Contains(t, code, "PostFields = struct {")
	assert.Contains(t, code, "func (p *Post) SelectColumns() string {")
	assert.Contains(t, code, "return postSelectColumns")
	assert.Contains(t, code, `return []string{"id"}`)
	assert.Contains(t, code, "func (p *Post) ScanRow(row dawnorm.Row) error {")
	assert.Contains(t, code, "// ScanRow decodes row into p. p is left unchanged when a column fails to decode.")
	assert.Contains(t, code, `id, err := dawnorm.Column[int32](row, "id")`)
	assert.Contains(t, code, `body, err := dawnorm.Column[*string](row, "body")`)
	assert.Contains(t, code, "\tp.ID = id\n\tp.Title = title\n\tp.Body = body\n\treturn nil\n")
	assert.Contains(t, code, `return strings.Replace(postInsertSQL, "{}", table, 1), []any{p.Title, p.Body}`)
	assert.Contains(t, code, `return strings.Replace(postUpdateSQL, "{}", table, 1), []any{p.Title, p.Body, p.ID}`)
	assert.Contains(t, code, `return strings.Replace(postDeleteSQL, "{}", table, 1), []any{p.ID}`)
	assert.Contains(t, code, "func Posts(c *dawnorm.Client) *dawnorm.DbSet[Post, *Post] {")
	assert.Contains(t, code, "return dawnorm.Set[Post](c, PostTable)")
	assert.Contains(t, code, `"github.com/syssam/dawnorm"`)
}

func TestFile_EmbeddedAndQualified(t *testing.T) {
	g := newTestGenerator(t, WithTable("Author", "people"))
	r := &load.Record{
		Name:    "Author",
		PkgPath: "example.com/blog",
		Fields: []*load.Field{
			{Path: []string{"audit", "CreatedAt"}, Column: "created_at", Markers: []string{"noupdate"}, Type: namedType("time", "time", "Time")},
			{Path: []string{"ID"}, Column: "id", Markers: []string{"key_noupdate"}, Type: namedType("github.com/google/uuid", "uuid", "UUID")},
			{Path: []string{"Status"}, Column: "status", Type: namedType("example.com/blog", "blog", "Status")},
		},
	}
	f, err := g.File(r)
	require.NoError(t, err)

	code := f.GoString()
	assert.Contains(t, code, `const AuthorTable = "people"`)
	assert.Contains(t, code, `createdAt, err := dawnorm.Column[time.Time](row, "created_at")`)
	assert.Contains(t, code, "a.audit.CreatedAt = createdAt")
	assert.Contains(t, code, `dawnorm.Column[uuid.UUID](row, "id")`)
	assert.Contains(t, code, `dawnorm.Column[Status](row, "status")`)
	assert.Contains(t, code, `"github.com/google/uuid"`)
	assert.Contains(t, code, `[]any{a.audit.CreatedAt, a.ID, a.Status}`)
	assert.Contains(t, code, `"UPDATE {} SET status = $1 WHERE (id) = ($2) RETURNING created_at, id, status;"`)
	assert.Contains(t, code, "func Authors(c *dawnorm.Client) *dawnorm.DbSet[Author, *Author] {")
}

func TestFile_ScanRowLocals(t *testing.T) {
	g := newTestGenerator(t)
	f, err := g.File(&load.Record{
		Name: "Event",
		Fields: []*load.Field{
			{Path: []string{"Type"}, Column: "type", Type: types.Typ[types.String]},
			{Path: []string{"Time"}, Column: "time", Type: namedType("time", "time", "Time")},
			{Path: []string{"Row"}, Column: "row", Type: types.Typ[types.Int64]},
			{Path: []string{"Err"}, Column: "err", Type: types.Typ[types.String]},
			{Path: []string{"E"}, Column: "e", Type: types.Typ[types.Float64]},
		},
	})
	require.NoError(t, err)

	code := f.GoString()
	assert.Contains(t, code, `typeValue, err := dawnorm.Column[string](row, "type")`)
	assert.Contains(t, code, `time2, err := dawnorm.Column[time.Time](row, "time")`)
	assert.Contains(t, code, `row2, err := dawnorm.Column[int64](row, "row")`)
	assert.Contains(t, code, `err2, err := dawnorm.Column[string](row, "err")`)
	assert.Contains(t, code, `e2, err := dawnorm.Column[float64](row, "e")`)
	assert.Contains(t, code, "\te.Type = typeValue\n\te.Time = time2\n\te.Row = row2\n\te.Err = err2\n\te.E = e2\n")
}

func TestFile_Keyless(t *testing.T) {
	g := newTestGenerator(t)
	f, err := g.File(&load.Record{
		Name: "Event",
		Fields: []*load.Field{
			{Path: []string{"Name"}, Column: "name", Type: types.Typ[types.String]},
		},
	})
	require.NoError(t, err)
	code := f.GoString()
	assert.Contains(t, code, "func (e *Event) KeyColumns() []string {\n\treturn nil\n}")
}

func TestFile_NoInsertableFields(t *testing.T) {
	g := newTestGenerator(t)
	_, err := g.File(&load.Record{
		Name: "View",
		Fields: []*load.Field{
			{Path: []string{"ID"}, Column: "id", Markers: []string{"key_noinsert_noupdate"}, Type: types.Typ[types.Int64]},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
}

func TestFile_CustomHeader(t *testing.T) {
	g := newTestGenerator(t, WithHeader("Code generated by blogctl. DO NOT EDIT."))
	f, err := g.File(postRecord())
	require.NoError(t, err)
	assert.Contains(t, f.GoString(), "// Code generated by blogctl. DO NOT EDIT.")
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestTypeCode(t *testing.T) {
	// types.Typ[types.Byte] is the uint8 Basic; the byte alias lives in the
	// universe scope.
	byteType := types.Universe.Lookup("byte").Type()
	tests := []struct {
		typ  types.Type
		want string
	}{
		{types.Typ[types.Int64], "int64"},
		{types.Typ[types.Uint8], "uint8"},
		{byteType, "byte"},
		{types.NewSlice(byteType), "[]byte"},
		{types.NewArray(byteType, 16), "[16]byte"},
		{types.NewMap(types.Typ[types.String], types.NewInterfaceType(nil, nil)), "map[string]any"},
		{types.NewPointer(namedType("time", "time", "Time")), "*time.Time"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := jen.NewFile("blog")
			f.Var().Id("v").Add(typeCode(tt.typ))
			assert.Contains(t, f.GoString(), "var v "+tt.want)
		})
	}
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "p", receiver("Post"))
	assert.Equal(t, "post", lowerFirst("Post"))
	assert.Equal(t, "httpLog", lowerFirst("HTTPLog"))
	assert.Equal(t, "id", lowerFirst("ID"))
	assert.Equal(t, "post_entity.go", FileName("Post"))
	assert.Equal(t, "blog_post_entity.go", FileName("BlogPost"))
}
