// Package gen generates the Entity implementation of record types.
//
// Records are plain Go structs whose fields carry db and dawn tags. For each
// record the generator writes a <snake_name>_entity.go file next to the
// declaration, holding the statement templates as constants and the methods
// DbSet needs:
//
//	Record declaration (blog/post.go)
//	        ↓
//	   compiler/load (go/packages, no user code is run)
//	        ↓
//	   schema.Classify + schema.Generate
//	        ↓
//	   Jennifer emission, goimports formatting
//	        ↓
//	   blog/post_entity.go
//
// # Generated Output
//
// For a record Post the file declares:
//
//   - PostTable: the default table name (pluralised snake case)
//   - PostFields: a struct value holding every column name
//   - SelectColumns, KeyColumns, ScanRow, InsertQuery, UpdateQuery and
//     DeleteQuery on *Post
//   - Posts(client): a DbSet over PostTable
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithPackage("./internal/blog"),
//	    gen.WithTable("Post", "blog_posts"),
//	)
//	files, err := gen.Generate(ctx, cfg)
//
// # Error Handling
//
//   - schema.SchemaError: a record that cannot be described
//   - ConfigError: invalid configuration
//   - GenerationError: rendering or writing a file failed
package gen
