package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFound_MessageAndStatus(t *testing.T) {
	err := NotFound("User", 42)

	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "User with id 42 is not found.", err.Message)
	assert.Equal(t, "Not Found", err.Status)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestAlreadyExists_MessageAndStatus(t *testing.T) {
	err := AlreadyExists("User", "Alice")

	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Equal(t, "User with Alice already exists.", err.Message)
	assert.Equal(t, "Conflict", err.Status)
	assert.True(t, IsConflict(err))
	assert.True(t, stdErrors.Is(err, ErrConflict))
}

func TestCRUDError_IsMatchesEqualErrors(t *testing.T) {
	a := NotFound("User", 1)
	b := NotFound("User", 1)
	c := NotFound("User", 2)

	assert.True(t, stdErrors.Is(a, b))
	assert.False(t, stdErrors.Is(a, c))
}

func TestCRUDError_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", AlreadyExists("Book", "isbn 1"))

	var crudErr *CRUDError
	require.True(t, stdErrors.As(wrapped, &crudErr))
	assert.Equal(t, http.StatusConflict, crudErr.StatusCode)
	assert.True(t, IsConflict(wrapped))
}

func TestIntegrityViolationError(t *testing.T) {
	err := &IntegrityViolationError{Kind: "User", ID: 7, ExpectedVersion: 3}

	assert.True(t, IsIntegrityViolation(err))
	assert.True(t, stdErrors.Is(err, ErrIntegrity))
	assert.False(t, IsConflict(err))
	assert.Contains(t, err.Error(), "version wasn't 3")
}

func TestIsErrorCode_LooksThroughOuterCodes(t *testing.T) {
	dup := NewError(ErrCodeDuplicate, "unique constraint failed: users.name")
	outer := WrapError(dup, ErrCodeDatabase, "insert users")

	assert.True(t, IsDuplicate(outer))
	assert.True(t, IsErrorCode(outer, ErrCodeDatabase))
	assert.Equal(t, ErrCodeDatabase, GetErrorCode(outer))
	assert.True(t, stdErrors.Is(outer, ErrDuplicate))
}

func TestWrapError_Nil(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrCodeInternal, "x"))
}

func TestAppError_WithContext(t *testing.T) {
	base := NewError(ErrCodeValidation, "name is required")
	withCtx := base.WithContext("field", "name")

	assert.Equal(t, "name", withCtx.Details()["field"])
	assert.Empty(t, base.Details())
	assert.NotEmpty(t, withCtx.Stack())
}

func TestWrapDatabaseError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantDup  bool
	}{
		{name: "plain driver error", err: stdErrors.New("disk I/O error"), wantCode: ErrCodeDatabase},
		{name: "duplicate signal keeps code", err: NewError(ErrCodeDuplicate, "dup"), wantCode: ErrCodeDuplicate, wantDup: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapDatabaseError(ctx, tt.err, "update users")
			require.Error(t, wrapped)
			assert.Equal(t, tt.wantCode, GetErrorCode(wrapped))
			assert.Equal(t, tt.wantDup, IsDuplicate(wrapped))
			assert.True(t, stdErrors.Is(wrapped, tt.err))
		})
	}

	assert.Nil(t, WrapDatabaseError(ctx, nil, "noop"))
}
