package dawnorm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/dawnorm"
	dsql "github.com/syssam/dawnorm/dialect/sql"
)

func openSQLite(t *testing.T) *dawnorm.Client {
	t.Helper()
	drv, err := dsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	_, err = drv.Exec(context.Background(), `CREATE TABLE posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL UNIQUE,
		body TEXT
	);`)
	require.NoError(t, err)
	return dawnorm.NewClient(drv, dawnorm.WithCache(dawnorm.NewMemoryCache(), 0))
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openSQLite(t)

	first, err := posts(c).Insert(ctx, &Post{Title: "hello", Body: strPtr("world")})
	require.NoError(t, err)
	assert.Equal(t, int32(1), first.ID)
	assert.Equal(t, "world", *first.Body)

	second, err := posts(c).Insert(ctx, &Post{Title: "draft"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), second.ID)
	assert.Nil(t, second.Body)

	_, err = posts(c).Insert(ctx, &Post{Title: "hello"})
	require.Error(t, err)
	assert.True(t, dawnorm.IsConstraintError(err))

	all, err := posts(c).OrderBy("id", dawnorm.Desc).ToList(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "draft", all[0].Title)

	got, err := posts(c).FilterByKey(1).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)

	got.Title = "hello again"
	got.Body = nil
	updated, err := posts(c).Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "hello again", updated.Title)
	assert.Nil(t, updated.Body)

	n, err := posts(c).Filter("title LIKE $1", "hello%").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = posts(c).Skip(1).Take(5).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = posts(c).Filter("id = $1", 2).UpdateFieldOnFilter(ctx, "body", "filled")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	draft, err := posts(c).FilterByKey(2).FirstOptional(ctx)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "filled", *draft.Body)

	ok, err := posts(c).Delete(ctx, updated)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = posts(c).DeleteByKey(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = posts(c).Filter("id > $1", 0).ExecuteDeleteOnFilter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	exists, err := posts(c).Any(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = posts(c).First(ctx)
	assert.True(t, dawnorm.IsNoResult(err))
}
