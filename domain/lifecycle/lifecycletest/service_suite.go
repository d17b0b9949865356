package lifecycletest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/domain/lifecycle"
	"crudkit/errors"
	"crudkit/logging"
)

// RunServiceSuite 以给定持久化端口验证生命周期编排的可观测行为
func RunServiceSuite(t *testing.T, factory HarnessFactory) {
	t.Helper()
	ctx := context.Background()

	setup := func(t *testing.T) (Harness, *UserService, *AdjustableClock) {
		h := factory(t)
		clock := NewAdjustableClock(suiteStart)
		svc := NewUserService(h.Repo,
			lifecycle.WithClock(clock),
			lifecycle.WithLogger(logging.NewNoopLogger()),
		)
		return h, svc, clock
	}

	t.Run("CreateAlice", func(t *testing.T) {
		_, svc, _ := setup(t)

		model, err := svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth})
		require.NoError(t, err)
		assert.Equal(t, int64(0), model.Version)
		assert.Equal(t, "Alice", model.Name)
		assert.True(t, model.BirthDate.Equal(aliceBirth))
		assert.NotEqual(t, uuid.Nil, model.ID)

		_, err = svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth.AddDate(2, 0, 0)})
		require.Error(t, err)
		var crudErr *errors.CRUDError
		require.ErrorAs(t, err, &crudErr)
		assert.Equal(t, 409, crudErr.StatusCode)
		assert.Contains(t, crudErr.Message, "Alice")
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		_, svc, clock := setup(t)

		created, err := svc.Create(ctx, CreateUser{Name: "Bob", BirthDate: aliceBirth})
		require.NoError(t, err)
		assert.True(t, created.CreatedAt.Equal(clock.Now()))
		assert.True(t, created.UpdatedAt.Equal(clock.Now()))

		got, found, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, int64(0), got.Version)
		assert.Equal(t, "Bob", got.Name)
	})

	t.Run("GetUnknownIsEmpty", func(t *testing.T) {
		_, svc, _ := setup(t)
		model, found, err := svc.Get(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, UserModel{}, model)
	})

	t.Run("ConflictLeavesNoPartialState", func(t *testing.T) {
		_, svc, _ := setup(t)
		_, err := svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth})
		require.NoError(t, err)

		before, err := svc.List(ctx, 0, 100)
		require.NoError(t, err)

		_, err = svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth})
		require.Error(t, err)

		after, err := svc.List(ctx, 0, 100)
		require.NoError(t, err)
		assert.Equal(t, len(before.Items), len(after.Items))
		assert.Equal(t, before.TotalPages, after.TotalPages)
	})

	t.Run("InvalidIntentIsRejectedBeforePersistence", func(t *testing.T) {
		_, svc, _ := setup(t)
		_, err := svc.Create(ctx, CreateUser{Name: "  ", BirthDate: aliceBirth})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))

		page, err := svc.List(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("UpdateIncrementsVersion", func(t *testing.T) {
		_, svc, clock := setup(t)
		created, err := svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth})
		require.NoError(t, err)

		later := clock.Advance(90 * time.Minute)
		updated, err := svc.Update(ctx, created.ID, UpdateUser{Name: "Alicia", BirthDate: aliceBirth})
		require.NoError(t, err)
		assert.Equal(t, created.Version+1, updated.Version)
		assert.Equal(t, "Alicia", updated.Name)
		assert.True(t, updated.UpdatedAt.Equal(later))
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

		clock.Advance(time.Minute)
		again, err := svc.Update(ctx, created.ID, UpdateUser{Name: "Alicia", BirthDate: aliceBirth.AddDate(0, 1, 0)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), again.Version)

		got, found, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	})

	t.Run("UpdateToTakenNameConflicts", func(t *testing.T) {
		_, svc, _ := setup(t)
		_, err := svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth})
		require.NoError(t, err)
		bob, err := svc.Create(ctx, CreateUser{Name: "Bob", BirthDate: aliceBirth})
		require.NoError(t, err)

		_, err = svc.Update(ctx, bob.ID, UpdateUser{Name: "Alice", BirthDate: aliceBirth})
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
		assert.Contains(t, err.Error(), "Alice")

		got, _, err := svc.Get(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", got.Name)
		assert.Equal(t, int64(0), got.Version)
	})

	t.Run("UpdateOrDeleteAbsentIsNotFound", func(t *testing.T) {
		_, svc, _ := setup(t)
		id := uuid.New()

		_, err := svc.Update(ctx, id, UpdateUser{Name: "Nobody", BirthDate: aliceBirth})
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Equal(t, fmt.Sprintf("User with id %v is not found.", id), messageOf(t, err))

		err = svc.Delete(ctx, id)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("DeleteIsSoft", func(t *testing.T) {
		h, svc, clock := setup(t)
		created, err := svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth})
		require.NoError(t, err)

		deletedAt := clock.Advance(time.Hour)
		require.NoError(t, svc.Delete(ctx, created.ID))

		_, found, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, found)

		if h.Peek != nil {
			raw, ok, err := h.Peek(ctx, created.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, raw.IsDeleted())
			assert.Equal(t, created.Version+1, raw.Version)
			assert.True(t, raw.UpdatedAt.Equal(deletedAt))
			assert.True(t, raw.CreatedAt.Equal(created.CreatedAt))
		}

		_, err = svc.Update(ctx, created.ID, UpdateUser{Name: "Alice", BirthDate: aliceBirth})
		assert.True(t, errors.IsNotFound(err))
		assert.True(t, errors.IsNotFound(svc.Delete(ctx, created.ID)))

		recreated, err := svc.Create(ctx, CreateUser{Name: "Alice", BirthDate: aliceBirth})
		require.NoError(t, err)
		assert.NotEqual(t, created.ID, recreated.ID)
	})

	t.Run("ListPaging", func(t *testing.T) {
		_, svc, clock := setup(t)
		const n, size = 7, 3
		created := make([]UserModel, 0, n)
		for i := 0; i < n; i++ {
			clock.Advance(time.Second)
			m, err := svc.Create(ctx, CreateUser{Name: fmt.Sprintf("user-%d", i), BirthDate: aliceBirth})
			require.NoError(t, err)
			created = append(created, m)
		}

		var seen []uuid.UUID
		for pageIndex := 0; pageIndex < 3; pageIndex++ {
			page, err := svc.List(ctx, pageIndex, size)
			require.NoError(t, err)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, pageIndex, page.PageIndex)
			assert.Equal(t, size, page.PageSize)
			for _, m := range page.Items {
				seen = append(seen, m.ID)
			}
		}
		require.Len(t, seen, n)
		for i, m := range created {
			assert.Equal(t, m.ID, seen[i])
		}

		beyond, err := svc.List(ctx, 10, size)
		require.NoError(t, err)
		assert.Empty(t, beyond.Items)
		assert.Equal(t, 3, beyond.TotalPages)

		empty, err := svc.List(ctx, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, empty.Items)
		assert.Equal(t, 0, empty.TotalPages)
	})

	t.Run("ListRejectsNegativeArguments", func(t *testing.T) {
		_, svc, _ := setup(t)
		_, err := svc.List(ctx, -1, 10)
		assert.True(t, errors.IsValidation(err))
		_, err = svc.List(ctx, 0, -1)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("ListExcludesDeleted", func(t *testing.T) {
		_, svc, _ := setup(t)
		a, err := svc.Create(ctx, CreateUser{Name: "a", BirthDate: aliceBirth})
		require.NoError(t, err)
		_, err = svc.Create(ctx, CreateUser{Name: "b", BirthDate: aliceBirth})
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, a.ID))

		page, err := svc.List(ctx, 0, 1)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "b", page.Items[0].Name)
		assert.Equal(t, 1, page.TotalPages)
	})
}

func messageOf(t *testing.T, err error) string {
	t.Helper()
	var crudErr *errors.CRUDError
	require.ErrorAs(t, err, &crudErr)
	return crudErr.Message
}
