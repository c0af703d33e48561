package dawnorm

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Direction is the sort direction of an ordering clause.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

// String returns the SQL keyword of the direction.
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

type ordering struct {
	column string
	dir    Direction
}

// DbSet is a single-use query builder over the rows of one table holding
// records of type T.
//
// Building methods (Filter, AndFilter, FilterByKey, OrderBy, Skip, Take)
// return the receiver for chaining. The first terminal method compiles the
// accumulated state into SQL and consumes the builder; calling any method
// afterwards panics with a *MisuseError. A DbSet must not be used from
// several goroutines at once.
type DbSet[T any, P EntityPtr[T]] struct {
	client *Client
	table  string

	filter   string
	params   []any
	orders   []ordering
	skip     int
	take     int
	hasSkip  bool
	hasTake  bool
	compiled bool
}

// Table returns the table the set reads and writes.
func (s *DbSet[T, P]) Table() string { return s.table }

// Filter sets the WHERE clause. The fragment uses placeholders $1..$n local
// to it, matching params in order. A second call replaces the filter.
func (s *DbSet[T, P]) Filter(fragment string, params ...any) *DbSet[T, P] {
	s.building("Filter")
	s.filter = fragment
	s.params = params
	return s
}

// AndFilter conjoins fragment with the current filter. Placeholders of
// fragment are renumbered to follow the current parameters. Without a
// current filter it behaves like Filter.
//
// Renumbering is textual: a $n inside a string literal or a dollar-quoted
// body of fragment is renumbered too. Pass such text as a parameter.
func (s *DbSet[T, P]) AndFilter(fragment string, params ...any) *DbSet[T, P] {
	s.building("AndFilter")
	if s.filter == "" {
		s.filter = fragment
		s.params = params
		return s
	}
	s.filter = "(" + s.filter + ") AND (" + shiftPlaceholders(fragment, len(s.params)) + ")"
	s.params = append(s.params, params...)
	return s
}

// FilterByKey filters on the single key column of T.
func (s *DbSet[T, P]) FilterByKey(key any) *DbSet[T, P] {
	s.building("FilterByKey")
	s.filter = s.singleKey("FilterByKey") + " = $1"
	s.params = []any{key}
	return s
}

// FilterByKeys filters on the single key column of T matching any of keys.
// It panics when keys is empty.
func (s *DbSet[T, P]) FilterByKeys(keys ...any) *DbSet[T, P] {
	s.building("FilterByKeys")
	if len(keys) == 0 {
		misuse("FilterByKeys", "no keys")
	}
	var b strings.Builder
	b.WriteString(s.singleKey("FilterByKeys"))
	b.WriteString(" IN (")
	for i := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(i + 1))
	}
	b.WriteByte(')')
	s.filter = b.String()
	s.params = slices.Clone(keys)
	return s
}

// OrderBy appends an ordering clause.
func (s *DbSet[T, P]) OrderBy(column string, dir Direction) *DbSet[T, P] {
	s.building("OrderBy")
	s.orders = append(s.orders, ordering{column: column, dir: dir})
	return s
}

// Skip sets the number of rows to skip (OFFSET).
func (s *DbSet[T, P]) Skip(n int) *DbSet[T, P] {
	s.building("Skip")
	if n < 0 {
		misuse("Skip", "negative offset %d", n)
	}
	s.skip, s.hasSkip = n, true
	return s
}

// Take sets the maximum number of rows to return (LIMIT).
func (s *DbSet[T, P]) Take(n int) *DbSet[T, P] {
	s.building("Take")
	if n < 0 {
		misuse("Take", "negative limit %d", n)
	}
	s.take, s.hasTake = n, true
	return s
}

// ToSQL compiles the select statement and its parameters without running it.
func (s *DbSet[T, P]) ToSQL() (string, []any) {
	s.consume("ToSQL")
	return s.selectSQL(s.entity().SelectColumns()), s.params
}

// ToList returns every row matching the builder state.
func (s *DbSet[T, P]) ToList(ctx context.Context) ([]*T, error) {
	s.consume("ToList")
	return s.read(ctx, "query", s.selectSQL(s.entity().SelectColumns()), s.params)
}

// FirstOptional returns the first matching row, or nil when no row matches.
func (s *DbSet[T, P]) FirstOptional(ctx context.Context) (*T, error) {
	s.consume("FirstOptional")
	s.take, s.hasTake = 1, true
	records, err := s.read(ctx, "query", s.selectSQL(s.entity().SelectColumns()), s.params)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return records[0], nil
	default:
		misuse("FirstOptional", "%d rows returned for a single row query", len(records))
		return nil, nil
	}
}

// First returns the first matching row. It fails with a *NoResultError when
// no row matches.
func (s *DbSet[T, P]) First(ctx context.Context) (*T, error) {
	v, err := s.FirstOptional(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &NoResultError{Table: s.table}
	}
	return v, nil
}

// Any reports whether any row matches.
func (s *DbSet[T, P]) Any(ctx context.Context) (bool, error) {
	v, err := s.FirstOptional(ctx)
	return v != nil, err
}

// Count returns the number of matching rows. Skip and Take apply to the
// counted rows; ordering is ignored.
func (s *DbSet[T, P]) Count(ctx context.Context) (int64, error) {
	s.consume("Count")
	var b strings.Builder
	if s.hasSkip || s.hasTake {
		s.orders = nil
		b.WriteString("SELECT COUNT(*) FROM (")
		b.WriteString(strings.TrimSuffix(s.selectSQL("1"), ";"))
		b.WriteString(") AS q;")
	} else {
		b.WriteString("SELECT COUNT(*) FROM ")
		b.WriteString(s.table)
		s.writeWhere(&b)
		b.WriteString(";")
	}
	query := b.String()
	s.log(ctx, "count", query, s.params)
	rows, err := s.client.driver.Query(ctx, query, s.params...)
	if err != nil {
		return 0, s.transport("count", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, s.transport("count", err)
		}
		return 0, nil
	}
	values, err := rows.Values()
	if err != nil {
		return 0, s.transport("count", err)
	}
	var n int64
	if len(values) != 1 {
		return 0, &DecodeError{Column: "count", Err: fmt.Errorf("%d columns returned", len(values))}
	}
	if err := convertAssign(&n, values[0]); err != nil {
		return 0, &DecodeError{Column: "count", Err: err}
	}
	return n, nil
}

// Insert inserts v and returns the row as stored, as reported by the
// RETURNING clause.
func (s *DbSet[T, P]) Insert(ctx context.Context, v *T) (*T, error) {
	s.consume("Insert")
	query, args := P(v).InsertQuery(s.table)
	return s.writeOne(ctx, "Insert", "insert", query, args)
}

// Update updates the row identified by the key of v and returns the row as
// stored.
func (s *DbSet[T, P]) Update(ctx context.Context, v *T) (*T, error) {
	s.consume("Update")
	s.requireKey("Update")
	query, args := P(v).UpdateQuery(s.table)
	return s.writeOne(ctx, "Update", "update", query, args)
}

// Delete deletes the row identified by the key of v. It reports whether
// exactly one row was deleted.
func (s *DbSet[T, P]) Delete(ctx context.Context, v *T) (bool, error) {
	s.consume("Delete")
	s.requireKey("Delete")
	query, args := P(v).DeleteQuery(s.table)
	n, err := s.exec(ctx, "delete", query, args)
	return n == 1, err
}

// DeleteByKey deletes the row whose single key column equals key. It
// reports whether exactly one row was deleted.
func (s *DbSet[T, P]) DeleteByKey(ctx context.Context, key any) (bool, error) {
	s.consume("DeleteByKey")
	query := "DELETE FROM " + s.table + " WHERE " + s.singleKey("DeleteByKey") + " = $1;"
	n, err := s.exec(ctx, "delete", query, []any{key})
	return n == 1, err
}

// ExecuteDeleteOnFilter deletes every row matching the filter and returns
// the number of deleted rows. It panics when no filter is set.
func (s *DbSet[T, P]) ExecuteDeleteOnFilter(ctx context.Context) (int64, error) {
	s.consume("ExecuteDeleteOnFilter")
	if s.filter == "" {
		misuse("ExecuteDeleteOnFilter", "no filter set; refusing to delete every row of %s", s.table)
	}
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(s.table)
	s.writeWhere(&b)
	b.WriteString(";")
	return s.exec(ctx, "delete", b.String(), s.params)
}

// UpdateFieldOnFilter sets column to value on every row matching the filter
// and returns the number of updated rows. It panics when no filter is set.
// The filter placeholders are shifted by one with the same textual
// renumbering as AndFilter.
func (s *DbSet[T, P]) UpdateFieldOnFilter(ctx context.Context, column string, value any) (int64, error) {
	s.consume("UpdateFieldOnFilter")
	if s.filter == "" {
		misuse("UpdateFieldOnFilter", "no filter set; refusing to update every row of %s", s.table)
	}
	query := "UPDATE " + s.table + " SET " + column + " = $1 WHERE " + shiftPlaceholders(s.filter, 1) + ";"
	args := make([]any, 0, len(s.params)+1)
	args = append(args, value)
	args = append(args, s.params...)
	return s.exec(ctx, "update", query, args)
}

func (s *DbSet[T, P]) entity() P {
	return P(new(T))
}

func (s *DbSet[T, P]) building(op string) {
	if s.compiled {
		misuse(op, "DbSet of %s already consumed by a terminal operation", s.table)
	}
}

func (s *DbSet[T, P]) consume(op string) {
	s.building(op)
	s.compiled = true
}

func (s *DbSet[T, P]) requireKey(op string) {
	if len(s.entity().KeyColumns()) == 0 {
		misuse(op, "record type of %s has no key columns", s.table)
	}
}

func (s *DbSet[T, P]) singleKey(op string) string {
	keys := s.entity().KeyColumns()
	if len(keys) != 1 {
		misuse(op, "record type of %s has %d key columns, want 1", s.table, len(keys))
	}
	return keys[0]
}

// selectSQL renders SELECT <cols> FROM <table> followed by the clauses that
// are set.
func (s *DbSet[T, P]) selectSQL(columns string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(s.table)
	s.writeWhere(&b)
	if len(s.orders) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.orders {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.column)
			b.WriteByte(' ')
			b.WriteString(o.dir.String())
		}
	}
	if s.hasTake {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.take))
	}
	if s.hasSkip {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(s.skip))
	}
	b.WriteString(";")
	return b.String()
}

func (s *DbSet[T, P]) writeWhere(b *strings.Builder) {
	if s.filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(s.filter)
	}
}

// read runs a query and decodes every row, going through the cache when
// one is configured.
func (s *DbSet[T, P]) read(ctx context.Context, op, query string, args []any) ([]*T, error) {
	c := s.client.cache
	if c == nil {
		return s.query(ctx, op, query, args)
	}
	key := CacheKey{Table: s.table, Query: query, Args: args}.String()
	if b, err := c.Get(ctx, key); err != nil {
		s.client.logger.WarnContext(ctx, "cache get failed", "table", s.table, "error", err)
	} else if b != nil {
		if records, err := decodeRecords[T](b); err == nil {
			return records, nil
		}
	}
	gen := s.client.generation(s.table)
	records, err := s.query(ctx, op, query, args)
	if err != nil {
		return nil, err
	}
	b, err := encodeRecords(records)
	if err == nil {
		err = s.client.store(ctx, s.table, gen, key, b)
	}
	if err != nil {
		s.client.logger.WarnContext(ctx, "cache set failed", "table", s.table, "error", err)
	}
	return records, nil
}

func (s *DbSet[T, P]) query(ctx context.Context, op, query string, args []any) ([]*T, error) {
	s.log(ctx, op, query, args)
	rows, err := s.client.driver.Query(ctx, query, args...)
	if err != nil {
		return nil, s.transport(op, err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, s.transport(op, err)
	}
	index := newIndex(columns)
	var records []*T
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, s.transport(op, err)
		}
		v := new(T)
		if err := P(v).ScanRow(&resultRow{index: index, values: values}); err != nil {
			return nil, err
		}
		records = append(records, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.transport(op, err)
	}
	return records, nil
}

func (s *DbSet[T, P]) writeOne(ctx context.Context, name, op, query string, args []any) (*T, error) {
	records, err := s.query(ctx, op, query, args)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	if len(records) != 1 {
		misuse(name, "%d rows returned, want exactly 1", len(records))
	}
	return records[0], nil
}

func (s *DbSet[T, P]) exec(ctx context.Context, op, query string, args []any) (int64, error) {
	s.log(ctx, op, query, args)
	n, err := s.client.driver.Exec(ctx, query, args...)
	if err != nil {
		return 0, s.transport(op, err)
	}
	s.invalidate(ctx)
	return n, nil
}

func (s *DbSet[T, P]) invalidate(ctx context.Context) {
	if s.client.cache != nil {
		if err := s.client.invalidate(ctx, s.table); err != nil {
			s.client.logger.WarnContext(ctx, "cache invalidation failed", "table", s.table, "error", err)
		}
	}
}

func (s *DbSet[T, P]) transport(op string, err error) error {
	return &TransportError{Table: s.table, Op: op, Err: err}
}

func (s *DbSet[T, P]) log(ctx context.Context, op, query string, args []any) {
	s.client.logger.DebugContext(ctx, "dawnorm: "+op, "table", s.table, "sql", query, "args", len(args))
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// shiftPlaceholders adds offset to every $n placeholder of fragment.
func shiftPlaceholders(fragment string, offset int) string {
	if offset == 0 {
		return fragment
	}
	return placeholderRe.ReplaceAllStringFunc(fragment, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil {
			return m
		}
		return "$" + strconv.Itoa(n+offset)
	})
}
