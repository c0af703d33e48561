// Package schema describes record types and turns their field descriptions
// into SQL templates.
//
// A record is a Go struct whose exported fields map to columns. The column
// name comes from the `db` struct tag, or the snake_case form of the field
// name when the tag is absent. Markers in the `dawn` struct tag classify a
// field:
//
//	type Post struct {
//	    ID    int32   `db:"id" dawn:"key,noinsert,noupdate"`
//	    Title string  `db:"title"`
//	    Body  *string `db:"body"`
//	}
//
// Classification matches markers by substring, so a single compound marker
// such as "key_noinsert_noupdate" is equivalent to the three separate ones.
//
// Generate renders the four templates of a record (select list, insert,
// update, delete). Table names are not known at this point and are written
// as the TableToken placeholder; Template.Render substitutes them.
package schema
