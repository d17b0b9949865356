package lifecycletest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/domain/lifecycle"
	"crudkit/errors"
)

// Harness 契约套件所需的持久化端口实例。
//
// Repo 必须以“同名即重复”配置唯一性；Peek 读取物理记录（包括已软删除的）。
type Harness struct {
	Repo lifecycle.IRepository[uuid.UUID, User]
	Peek func(ctx context.Context, id uuid.UUID) (User, bool, error)
}

// HarnessFactory 为每个子测试创建相互隔离的 Harness
type HarnessFactory func(t *testing.T) Harness

var (
	suiteStart = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	aliceBirth = time.Date(1991, 3, 23, 0, 0, 0, 0, time.UTC)
)

// RunRepositorySuite 验证 lifecycle.IRepository 实现的契约
func RunRepositorySuite(t *testing.T, factory HarnessFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("InsertThenFind", func(t *testing.T) {
		h := factory(t)
		u := NewUser("Alice", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, u))
		require.NoError(t, h.Repo.Flush(ctx))

		got, found, err := h.Repo.FindNonDeleted(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, int64(0), got.Version)
		assert.Equal(t, "Alice", got.Name)
		assert.True(t, got.BirthDate.Equal(aliceBirth))
		assert.True(t, got.CreatedAt.Equal(suiteStart))
		assert.True(t, got.UpdatedAt.Equal(suiteStart))
		assert.Nil(t, got.DeletedAt)
	})

	t.Run("FindUnknownID", func(t *testing.T) {
		h := factory(t)
		_, found, err := h.Repo.FindNonDeleted(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("InsertDuplicateName", func(t *testing.T) {
		h := factory(t)
		require.NoError(t, h.Repo.Insert(ctx, NewUser("Alice", aliceBirth, suiteStart)))

		err := h.Repo.Insert(ctx, NewUser("Alice", aliceBirth.AddDate(1, 0, 0), suiteStart))
		require.Error(t, err)
		assert.True(t, errors.IsDuplicate(err), "expected duplicate signal, got %v", err)

		page, err := h.Repo.PageNonDeleted(ctx, 0, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("InsertExistingID", func(t *testing.T) {
		h := factory(t)
		u := NewUser("Alice", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, u))

		clash := u
		clash.Name = "Bob"
		err := h.Repo.Insert(ctx, clash)
		require.Error(t, err)
		assert.True(t, errors.IsDuplicate(err))
	})

	t.Run("UpdateIfVersionMatches", func(t *testing.T) {
		h := factory(t)
		u := NewUser("Alice", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, u))

		later := suiteStart.Add(time.Hour)
		next := u.WithLifecycle(u.Lifecycle().Next(later))
		next.Name = "Alicia"
		affected, err := h.Repo.UpdateIfVersion(ctx, next, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)

		got, found, err := h.Repo.FindNonDeleted(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, "Alicia", got.Name)
		assert.True(t, got.UpdatedAt.Equal(later))
		assert.True(t, got.CreatedAt.Equal(suiteStart))
	})

	t.Run("UpdateIfVersionStale", func(t *testing.T) {
		h := factory(t)
		e1 := NewUser("E1", aliceBirth, suiteStart)
		e2 := NewUser("E2", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, e1))
		require.NoError(t, h.Repo.Insert(ctx, e2))

		first := e1.WithLifecycle(e1.Lifecycle().Next(suiteStart.Add(time.Minute)))
		first.Name = "E1-first"
		affected, err := h.Repo.UpdateIfVersion(ctx, first, 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), affected)

		stale := e1.WithLifecycle(e1.Lifecycle().Next(suiteStart.Add(2 * time.Minute)))
		stale.Name = "E1-stale"
		affected, err = h.Repo.UpdateIfVersion(ctx, stale, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)

		got, _, err := h.Repo.FindNonDeleted(ctx, e1.ID)
		require.NoError(t, err)
		assert.Equal(t, "E1-first", got.Name)
		assert.Equal(t, int64(1), got.Version)

		other, _, err := h.Repo.FindNonDeleted(ctx, e2.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), other.Version)
	})

	t.Run("UpdateIfVersionUnknownID", func(t *testing.T) {
		h := factory(t)
		ghost := NewUser("Ghost", aliceBirth, suiteStart)
		affected, err := h.Repo.UpdateIfVersion(ctx, ghost, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
	})

	t.Run("UpdateToDuplicateName", func(t *testing.T) {
		h := factory(t)
		alice := NewUser("Alice", aliceBirth, suiteStart)
		bob := NewUser("Bob", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, alice))
		require.NoError(t, h.Repo.Insert(ctx, bob))

		renamed := bob.WithLifecycle(bob.Lifecycle().Next(suiteStart.Add(time.Minute)))
		renamed.Name = "Alice"
		_, err := h.Repo.UpdateIfVersion(ctx, renamed, 0)
		require.Error(t, err)
		assert.True(t, errors.IsDuplicate(err))

		got, _, err := h.Repo.FindNonDeleted(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", got.Name)
		assert.Equal(t, int64(0), got.Version)
	})

	t.Run("UpdateKeepingOwnName", func(t *testing.T) {
		h := factory(t)
		alice := NewUser("Alice", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, alice))

		next := alice.WithLifecycle(alice.Lifecycle().Next(suiteStart.Add(time.Minute)))
		next.BirthDate = aliceBirth.AddDate(0, 0, 1)
		affected, err := h.Repo.UpdateIfVersion(ctx, next, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
	})

	t.Run("SoftDeletedIsInvisibleButRetained", func(t *testing.T) {
		h := factory(t)
		alice := NewUser("Alice", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, alice))

		deletedAt := suiteStart.Add(time.Hour)
		deleted := alice.WithLifecycle(alice.Lifecycle().Deleted(deletedAt))
		affected, err := h.Repo.UpdateIfVersion(ctx, deleted, 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), affected)

		_, found, err := h.Repo.FindNonDeleted(ctx, alice.ID)
		require.NoError(t, err)
		assert.False(t, found)

		page, err := h.Repo.PageNonDeleted(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 0, page.TotalPages)

		if h.Peek != nil {
			raw, ok, err := h.Peek(ctx, alice.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, raw.IsDeleted())
			assert.Equal(t, int64(1), raw.Version)
			require.NotNil(t, raw.DeletedAt)
			assert.True(t, raw.DeletedAt.Equal(deletedAt))
		}
	})

	t.Run("SoftDeletedNeverCollides", func(t *testing.T) {
		h := factory(t)
		alice := NewUser("Alice", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, alice))
		deleted := alice.WithLifecycle(alice.Lifecycle().Deleted(suiteStart.Add(time.Hour)))
		_, err := h.Repo.UpdateIfVersion(ctx, deleted, 0)
		require.NoError(t, err)

		again := NewUser("Alice", aliceBirth, suiteStart.Add(2*time.Hour))
		require.NoError(t, h.Repo.Insert(ctx, again))

		got, found, err := h.Repo.FindNonDeleted(ctx, again.ID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Alice", got.Name)
	})

	t.Run("PageNonDeleted", func(t *testing.T) {
		h := factory(t)
		names := []string{"n0", "n1", "n2", "n3", "n4"}
		ids := make([]uuid.UUID, len(names))
		for i, name := range names {
			u := NewUser(name, aliceBirth, suiteStart.Add(time.Duration(i)*time.Second))
			ids[i] = u.ID
			require.NoError(t, h.Repo.Insert(ctx, u))
		}
		require.NoError(t, h.Repo.Flush(ctx))

		first, err := h.Repo.PageNonDeleted(ctx, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, first.PageIndex)
		assert.Equal(t, 2, first.PageSize)
		assert.Equal(t, 3, first.TotalPages)
		require.Len(t, first.Items, 2)
		assert.Equal(t, ids[0], first.Items[0].ID)
		assert.Equal(t, ids[1], first.Items[1].ID)

		last, err := h.Repo.PageNonDeleted(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, last.Items, 1)
		assert.Equal(t, ids[4], last.Items[0].ID)
		assert.Equal(t, 3, last.TotalPages)

		beyond, err := h.Repo.PageNonDeleted(ctx, 7, 2)
		require.NoError(t, err)
		assert.Empty(t, beyond.Items)
		assert.Equal(t, 3, beyond.TotalPages)
		assert.Equal(t, 7, beyond.PageIndex)

		// pageIndex*pageSize 溢出回绕后不能落回有效区间
		huge := math.MaxInt/2 + 1
		overflow, err := h.Repo.PageNonDeleted(ctx, huge, 4)
		require.NoError(t, err)
		assert.Empty(t, overflow.Items)
		assert.Equal(t, 2, overflow.TotalPages)
		assert.Equal(t, huge, overflow.PageIndex)

		zero, err := h.Repo.PageNonDeleted(ctx, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, zero.Items)
		assert.Equal(t, 0, zero.TotalPages)
	})

	t.Run("PageOrderSurvivesUpdates", func(t *testing.T) {
		h := factory(t)
		a := NewUser("a", aliceBirth, suiteStart)
		b := NewUser("b", aliceBirth, suiteStart)
		require.NoError(t, h.Repo.Insert(ctx, a))
		require.NoError(t, h.Repo.Insert(ctx, b))

		next := a.WithLifecycle(a.Lifecycle().Next(suiteStart.Add(time.Hour)))
		next.Name = "a2"
		_, err := h.Repo.UpdateIfVersion(ctx, next, 0)
		require.NoError(t, err)

		page, err := h.Repo.PageNonDeleted(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, a.ID, page.Items[0].ID)
		assert.Equal(t, b.ID, page.Items[1].ID)
	})
}
