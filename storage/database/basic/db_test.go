package basic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "crudkit/storage/database"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(core.DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(context.Background(), `CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	return db
}

func TestDB_ExecQuery(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	res, err := db.Exec(ctx, `INSERT INTO items (id, name) VALUES (?, ?), (?, ?)`, 1, "a", 2, "b")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	rows, err := db.Query(ctx, `SELECT name FROM items ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"a", "b"}, names)

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestDB_DefaultDriverIsSQLite(t *testing.T) {
	db, err := New(core.DBConfig{DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, DefaultDriver, db.GetDialectName())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestDB_UnknownDriver(t *testing.T) {
	_, err := New(core.DBConfig{Driver: "no-such-driver", DSN: "x"})
	assert.Error(t, err)
}

func TestTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", tx.(core.IDialectNameProvider).GetDialectName())
	_, err = tx.Exec(ctx, `INSERT INTO items (id, name) VALUES (?, ?)`, 1, "kept")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO items (id, name) VALUES (?, ?)`, 2, "dropped")
	require.NoError(t, err)

	var inTx int
	require.NoError(t, tx.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&inTx))
	assert.Equal(t, 2, inTx)
	require.NoError(t, tx.Rollback())

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 1, count)
}
