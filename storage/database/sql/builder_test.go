package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "crudkit/storage/database"
	"crudkit/storage/database/basic"
	"crudkit/storage/database/dialect"
)

func TestSelectBuilder_Build(t *testing.T) {
	s := New(nil)

	q, args := s.Select("id", "name").From("users").
		Where("deleted_at IS NULL").
		And("name = ?", "Alice").
		OrderBy("rowid").
		Limit(10).Offset(20).
		Build()

	assert.Equal(t, "SELECT id, name FROM users WHERE deleted_at IS NULL AND name = ? ORDER BY rowid LIMIT ? OFFSET ?", q)
	assert.Equal(t, []any{"Alice", 10, 20}, args)
}

func TestSelectBuilder_BuildIsRepeatable(t *testing.T) {
	b := New(nil).Select().From("users").Where("id = ?", 1).Limit(1)
	q1, a1 := b.Build()
	q2, a2 := b.Build()
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
	assert.Equal(t, "SELECT * FROM users WHERE id = ? LIMIT ?", q1)
}

func TestSelectBuilder_OffsetWithoutLimitIgnored(t *testing.T) {
	q, args := New(nil).Select("COUNT(*)").From("users").Offset(5).Build()
	assert.Equal(t, "SELECT COUNT(*) FROM users", q)
	assert.Empty(t, args)
}

func TestInsertBuilder_Build(t *testing.T) {
	q, args := New(nil).InsertInto("users").
		Columns("id", "name").
		Values(1, "a").
		Values(2, "b").
		Build()
	assert.Equal(t, "INSERT INTO users (id, name) VALUES (?, ?), (?, ?)", q)
	assert.Equal(t, []any{1, "a", 2, "b"}, args)
}

func TestUpdateBuilder_Build(t *testing.T) {
	q, args := New(nil).Update("users").
		Set("name", "b").
		Set("version", int64(2)).
		Where("id = ?", 1).
		Where("version = ?", int64(1)).
		Build()
	assert.Equal(t, "UPDATE users SET name = ?, version = ? WHERE id = ? AND version = ?", q)
	assert.Equal(t, []any{"b", int64(2), 1, int64(1)}, args)
}

func TestBuilders_PanicOnMisuse(t *testing.T) {
	s := New(nil)
	assert.Panics(t, func() { s.InsertInto("users").Build() })
	assert.Panics(t, func() { s.InsertInto("users").Columns("a", "b").Values(1).Build() })
	assert.Panics(t, func() { s.Update("users").Where("id = ?", 1).Build() })
	assert.Panics(t, func() { s.Update("users").Set("name", "x").Build() })
	assert.Panics(t, func() { s.Select().From("users; DROP TABLE users").Build() })
	assert.Panics(t, func() { s.InsertInto("users").Columns("name--").Values(1).Build() })
}

func TestIsSafeIdentifier(t *testing.T) {
	assert.True(t, isSafeIdentifier("books"))
	assert.True(t, isSafeIdentifier("main.books_2"))
	assert.False(t, isSafeIdentifier(""))
	assert.False(t, isSafeIdentifier("2books"))
	assert.False(t, isSafeIdentifier("main..books"))
	assert.False(t, isSafeIdentifier("books name"))
}

func TestBuilders_ExecuteAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := basic.New(core.DBConfig{DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, version INTEGER)`)
	require.NoError(t, err)

	s := New(db)
	assert.Equal(t, dialect.NameSQLite, s.Dialect().Name())

	_, err = s.InsertInto("users").Columns("id", "name", "version").Values(1, "a", 0).Values(2, "b", 0).Exec(ctx)
	require.NoError(t, err)

	res, err := s.Update("users").Set("name", "a2").Set("version", 1).Where("id = ?", 1).Where("version = ?", 0).Exec(ctx)
	require.NoError(t, err)
	affected, _ := res.RowsAffected()
	assert.Equal(t, int64(1), affected)

	res, err = s.Update("users").Set("name", "stale").Where("id = ?", 1).Where("version = ?", 0).Exec(ctx)
	require.NoError(t, err)
	affected, _ = res.RowsAffected()
	assert.Equal(t, int64(0), affected)

	var name string
	require.NoError(t, s.Select("name").From("users").Where("id = ?", 1).QueryRow(ctx).Scan(&name))
	assert.Equal(t, "a2", name)

	rows, err := s.Select("id").From("users").OrderBy("id").Limit(1).Offset(1).Query(ctx)
	require.NoError(t, err)
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	assert.Equal(t, []int{2}, ids)
}
