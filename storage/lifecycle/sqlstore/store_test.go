package sqlstore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"crudkit/domain/lifecycle"
	"crudkit/domain/lifecycle/lifecycletest"
	"crudkit/errors"
	"crudkit/logging"
	core "crudkit/storage/database"
	"crudkit/storage/database/basic"
	"crudkit/storage/lifecycle/sqlstore"
)

// userCodec 把 lifecycletest.User 映射到 users 表，按 name 唯一
type userCodec struct{}

func (userCodec) Table() string  { return "users" }
func (userCodec) IDType() string { return "TEXT" }

func (userCodec) Columns() []sqlstore.Column {
	return []sqlstore.Column{
		{Name: "name", Type: "TEXT NOT NULL"},
		{Name: "birth_date", Type: "BIGINT NOT NULL"},
	}
}

func (userCodec) UniqueBy() []string { return []string{"name"} }

func (userCodec) EncodeID(id uuid.UUID) any { return id.String() }

func (userCodec) Values(u lifecycletest.User) []any {
	return []any{u.Name, u.BirthDate.UTC().UnixNano()}
}

func (userCodec) Targets() []any {
	return []any{new(string), new(string), new(int64)}
}

func (userCodec) Decode(targets []any, meta lifecycle.Entity[uuid.UUID]) (lifecycletest.User, error) {
	id, err := uuid.Parse(*targets[0].(*string))
	if err != nil {
		return lifecycletest.User{}, err
	}
	meta.ID = id
	return lifecycletest.User{
		Entity:    meta,
		Name:      *targets[1].(*string),
		BirthDate: time.Unix(0, *targets[2].(*int64)).UTC(),
	}, nil
}

func newStore(t *testing.T) *sqlstore.Store[uuid.UUID, lifecycletest.User] {
	t.Helper()
	db, err := basic.New(core.DBConfig{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := sqlstore.New[uuid.UUID, lifecycletest.User](db, userCodec{}, sqlstore.WithLogger(logging.NewNoopLogger()))
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func newHarness(t *testing.T) lifecycletest.Harness {
	store := newStore(t)
	return lifecycletest.Harness{Repo: store, Peek: store.FindAny}
}

func TestStore_RepositoryContract(t *testing.T) {
	lifecycletest.RunRepositorySuite(t, newHarness)
}

func TestStore_ServiceContract(t *testing.T) {
	lifecycletest.RunServiceSuite(t, newHarness)
}

func TestStore_EnsureSchemaIsIdempotent(t *testing.T) {
	store := newStore(t)
	assert.NoError(t, store.EnsureSchema(context.Background()))
}

func TestStore_DuplicateKeepsDriverCause(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, lifecycletest.NewUser("Alice", now, now)))
	err := store.Insert(ctx, lifecycletest.NewUser("Alice", now, now))
	require.Error(t, err)
	assert.True(t, errors.IsDuplicate(err))
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
}

func TestStore_DatabaseErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	db, err := basic.New(core.DBConfig{DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	// 未创建表结构
	store := sqlstore.New[uuid.UUID, lifecycletest.User](db, userCodec{}, sqlstore.WithLogger(logging.NewNoopLogger()))
	_, _, err = store.FindNonDeleted(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabase, errors.GetErrorCode(err))
	assert.False(t, errors.IsDuplicate(err))
}

func TestStore_TimestampsRoundTripInUTC(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	shanghai := time.FixedZone("CST", 8*3600)
	created := time.Date(2024, 2, 29, 23, 59, 59, 123456789, shanghai)

	u := lifecycletest.NewUser("tz", created, created)
	require.NoError(t, store.Insert(ctx, u))

	got, found, err := store.FindNonDeleted(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
	assert.Equal(t, 123456789, got.CreatedAt.Nanosecond())
}

func TestStore_LargePage(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, store.Insert(ctx, lifecycletest.NewUser(fmt.Sprintf("u%02d", i), now, now)))
	}

	page, err := store.PageNonDeleted(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "u20", page.Items[0].Name)
	assert.Equal(t, "u24", page.Items[4].Name)
}

// 并发写入同一行时，只有一个版本检查写入能成功
func TestStore_ConcurrentUpdateIfVersion(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) core.DBConfig
	}{
		{
			name: "内存库单连接",
			cfg:  func(*testing.T) core.DBConfig { return core.DBConfig{DSN: ":memory:"} },
		},
		{
			name: "文件库多连接",
			cfg: func(t *testing.T) core.DBConfig {
				dsn := "file:" + filepath.Join(t.TempDir(), "race.db") + "?_pragma=busy_timeout(5000)"
				return core.DBConfig{DSN: dsn, MaxOpenConns: 4}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db, err := basic.New(tt.cfg(t))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			store := sqlstore.New[uuid.UUID, lifecycletest.User](db, userCodec{}, sqlstore.WithLogger(logging.NewNoopLogger()))
			require.NoError(t, store.EnsureSchema(ctx))

			now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			u := lifecycletest.NewUser("racer", now, now)
			require.NoError(t, store.Insert(ctx, u))

			const writers = 16
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				success int64
			)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					next := u.WithLifecycle(u.Lifecycle().Next(now.Add(time.Duration(i+1) * time.Second)))
					affected, err := store.UpdateIfVersion(ctx, next, 0)
					assert.NoError(t, err)
					mu.Lock()
					success += affected
					mu.Unlock()
				}(i)
			}
			wg.Wait()

			assert.Equal(t, int64(1), success)
			stored, found, err := store.FindAny(ctx, u.ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, int64(1), stored.Version)
		})
	}
}
