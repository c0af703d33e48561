package schema

import (
	"strconv"
	"strings"
)

// TableToken marks the position of the table name in a template.
const TableToken = "{}"

// Template is a SQL statement with a deferred table name and the ordered
// list of columns whose values bind to its placeholders.
type Template struct {
	SQL    string
	Params []string
}

// Render substitutes the table name into the template.
func (t Template) Render(table string) string {
	return strings.Replace(t.SQL, TableToken, table, 1)
}

// Templates holds every statement template of a record.
type Templates struct {
	SelectColumns string
	Insert        Template
	Update        Template
	Delete        Template
}

// Generate renders the templates for a classification. Empty groups are
// passed through verbatim; a record without key columns gets update and
// delete templates that no database accepts, and callers are expected to
// refuse key based operations on such records.
func Generate(c Classification) Templates {
	sel := strings.Join(c.Query, ", ")
	return Templates{
		SelectColumns: sel,
		Insert:        insertTemplate(c, sel),
		Update:        updateTemplate(c, sel),
		Delete:        deleteTemplate(c),
	}
}

// INSERT INTO {}(a, b) VALUES ($1, $2) RETURNING <select>;
func insertTemplate(c Classification, sel string) Template {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(TableToken)
	b.WriteString("(")
	b.WriteString(strings.Join(c.Insert, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(placeholders(1, len(c.Insert)))
	b.WriteString(") RETURNING ")
	b.WriteString(sel)
	b.WriteString(";")
	return Template{SQL: b.String(), Params: clone(c.Insert)}
}

// UPDATE {} SET (a, b) = ($1, $2) WHERE (k) = ($3) RETURNING <select>;
//
// A single column SET list is written without parentheses, as PostgreSQL 10
// and later require a row expression on the right of a parenthesized list.
func updateTemplate(c Classification, sel string) Template {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(TableToken)
	b.WriteString(" SET ")
	if len(c.Update) == 1 {
		b.WriteString(c.Update[0])
		b.WriteString(" = $1")
	} else {
		b.WriteString("(")
		b.WriteString(strings.Join(c.Update, ", "))
		b.WriteString(") = (")
		b.WriteString(placeholders(1, len(c.Update)))
		b.WriteString(")")
	}
	b.WriteString(" WHERE (")
	b.WriteString(strings.Join(c.Key, ", "))
	b.WriteString(") = (")
	b.WriteString(placeholders(len(c.Update)+1, len(c.Key)))
	b.WriteString(") RETURNING ")
	b.WriteString(sel)
	b.WriteString(";")
	params := make([]string, 0, len(c.Update)+len(c.Key))
	params = append(params, c.Update...)
	params = append(params, c.Key...)
	return Template{SQL: b.String(), Params: params}
}

// DELETE FROM {} WHERE (k) = ($1);
func deleteTemplate(c Classification) Template {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(TableToken)
	b.WriteString(" WHERE (")
	b.WriteString(strings.Join(c.Key, ", "))
	b.WriteString(") = (")
	b.WriteString(placeholders(1, len(c.Key)))
	b.WriteString(");")
	return Template{SQL: b.String(), Params: clone(c.Key)}
}

// placeholders returns n comma separated positional placeholders starting
// at $start.
func placeholders(start, n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
