package dataloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dawnorm"
	dsql "github.com/syssam/dawnorm/dialect/sql"
)

type author struct {
	ID   int64  `db:"id" dawn:"key,noinsert,noupdate"`
	Name string `db:"name"`
}

var authorMeta = dawnorm.MustMeta[author]()

func (a *author) SelectColumns() string { return authorMeta.SelectColumns() }
func (a *author) KeyColumns() []string { return authorMeta.KeyColumns() }
func (a *author) ScanRow(r dawnorm.Row) error { return authorMeta.ScanRow(a, r) }
func (a *author) InsertQuery(table string) (string, []any) {
	return authorMeta.InsertQuery(a, table)
}
func (a *author) UpdateQuery(table string) (string, []any) {
	return authorMeta.UpdateQuery(a, table)
}
func (a *author) DeleteQuery(table string) (string, []any) {
	return authorMeta.DeleteQuery(a, table)
}

func authorID(a *author) int64 { return a.ID }

func newClient(t *testing.T) (*dawnorm.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return dawnorm.NewClient(dsql.OpenDB("pgx", db)), mock
}

func TestLoad(t *testing.T) {
	c, mock := newClient(t)
	mock.ExpectQuery("SELECT id, name FROM authors WHERE id IN ($1, $2, $3);").
		WithArgs(int64(3), int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "ann").
			AddRow(int64(3), "cid"))

	set := dawnorm.Set[author](c, "authors")
	records, errs := Load(context.Background(), set, []int64{3, 1, 3, 2}, authorID)
	require.Len(t, records, 4)
	assert.Equal(t, "cid", records[0].Name)
	assert.Equal(t, "ann", records[1].Name)
	assert.Equal(t, "cid", records[2].Name)
	assert.Nil(t, records[3])
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[3], ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFailure(t *testing.T) {
	c, mock := newClient(t)
	mock.ExpectQuery("SELECT id, name FROM authors WHERE id IN ($1, $2);").
		WillReturnError(errors.New("connection reset"))

	records, errs := Load(context.Background(), dawnorm.Set[author](c, "authors"), []int64{1, 2}, authorID)
	require.Len(t, records, 2)
	for _, err := range errs {
		assert.True(t, dawnorm.IsTransportError(err))
	}
}

func TestLoadNoKeys(t *testing.T) {
	c, _ := newClient(t)
	records, errs := Load(context.Background(), dawnorm.Set[author](c, "authors"), nil, authorID)
	assert.Nil(t, records)
	assert.Nil(t, errs)
}

func TestBatch(t *testing.T) {
	c, mock := newClient(t)
	for range 2 {
		mock.ExpectQuery("SELECT id, name FROM authors WHERE id IN ($1);").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ann"))
	}
	batch := Batch(func() *dawnorm.DbSet[author, *author] { return dawnorm.Set[author](c, "authors") }, authorID)
	for range 2 {
		records, errs := batch(context.Background(), []int64{1})
		require.NoError(t, errs[0])
		assert.Equal(t, "ann", records[0].Name)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

type name struct {
	id    int
	value string
}

func nameID(n *name) int { return n.id }

func TestOrderByKeys(t *testing.T) {
	values := []*name{{3, "c"}, {1, "a"}}
	result, errs := OrderByKeys([]int{1, 2, 3}, values, nameID)
	require.Len(t, result, 3)
	assert.Equal(t, "a", result[0].value)
	assert.Nil(t, result[1])
	assert.Equal(t, "c", result[2].value)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], ErrNotFound)

	result, errs = OrderByKeys([]int{}, values, nameID)
	assert.Empty(t, result)
	assert.Empty(t, errs)
}

func TestGroupByKey(t *testing.T) {
	type post struct {
		authorID int
		title    string
	}
	posts := []post{{1, "a"}, {2, "b"}, {1, "c"}}
	groups := GroupByKey(posts, func(p post) int { return p.authorID })
	assert.Len(t, groups[1], 2)
	assert.Len(t, groups[2], 1)

	ordered := OrderGroupsByKeys([]int{2, 3, 1}, groups)
	require.Len(t, ordered, 3)
	assert.Equal(t, "b", ordered[0][0].title)
	assert.Nil(t, ordered[1])
	assert.Equal(t, []post{{1, "a"}, {1, "c"}}, ordered[2])
}

type countingBatch struct {
	mu    sync.Mutex
	calls [][]int
	fail  map[int]error
}

func (b *countingBatch) load(_ context.Context, keys []int) ([]string, []error) {
	b.mu.Lock()
	b.calls = append(b.calls, keys)
	b.mu.Unlock()
	values := make([]string, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		if err := b.fail[k]; err != nil {
			errs[i] = err
			continue
		}
		values[i] = string(rune('a' + k))
	}
	return values, errs
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	b := &countingBatch{fail: map[int]error{9: ErrNotFound, 8: errors.New("timeout")}}
	l := New(b.load)

	values, errs := l.LoadMany(ctx, []int{0, 1, 0, 9})
	assert.Equal(t, []string{"a", "b", "a", ""}, values)
	assert.ErrorIs(t, errs[3], ErrNotFound)

	v, err := l.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	_, err = l.Load(ctx, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Load(ctx, 8)
	require.Error(t, err)
	_, err = l.Load(ctx, 8)
	require.Error(t, err)

	l.Prime(2, "primed")
	v, err = l.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "primed", v)

	l.Clear(1)
	_, _ = l.Load(ctx, 1)

	assert.Equal(t, [][]int{{0, 1, 9}, {8}, {8}, {1}}, b.calls)
}

func TestLoadersContext(t *testing.T) {
	type loaders struct{ Names *Loader[int, string] }
	want := &loaders{Names: New((&countingBatch{}).load)}
	ctx := WithLoaders(context.Background(), want)
	assert.Same(t, want, For[*loaders](ctx))
	assert.Nil(t, For[*loaders](context.Background()))
}
