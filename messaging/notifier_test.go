package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/domain/lifecycle"
	"crudkit/domain/lifecycle/lifecycletest"
	cerrors "crudkit/errors"
	"crudkit/logging"
	"crudkit/messaging"
	msync "crudkit/messaging/transport/sync"
	"crudkit/storage/lifecycle/memstore"
)

type capturePublisher struct {
	messages []messaging.IMessage
	err      error
}

func (c *capturePublisher) Publish(_ context.Context, m messaging.IMessage) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, m)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestNotifier_ToMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		prefix     []messaging.NotifierOption
		event      lifecycle.Event
		expectType string
	}{
		{
			name:       "默认前缀-创建事件",
			event:      lifecycle.Event{Kind: "Book", Operation: lifecycle.OperationCreated, ID: int64(7), Version: 0, At: at, Payload: "m"},
			expectType: "crud.Book.created",
		},
		{
			name:       "自定义前缀-删除事件",
			prefix:     []messaging.NotifierOption{messaging.WithTypePrefix("library.")},
			event:      lifecycle.Event{Kind: "Book", Operation: lifecycle.OperationDeleted, ID: int64(7), Version: 3, At: at},
			expectType: "library.Book.deleted",
		},
		{
			name:       "空前缀",
			prefix:     []messaging.NotifierOption{messaging.WithTypePrefix("")},
			event:      lifecycle.Event{Kind: "User", Operation: lifecycle.OperationUpdated, ID: "u1", Version: 1, At: at},
			expectType: "User.updated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]messaging.NotifierOption{messaging.WithMessageIDs(func() string { return "fixed" })}, tt.prefix...)
			n := messaging.NewNotifier(messaging.NopPublisher{}, opts...)

			msg := n.ToMessage(tt.event)
			assert.Equal(t, "fixed", msg.ID)
			assert.Equal(t, tt.expectType, msg.Type)
			assert.Equal(t, at, msg.Timestamp)
			assert.Equal(t, tt.event.Payload, msg.Payload)
			assert.Equal(t, tt.event.Kind, msg.Metadata[messaging.MetadataKind])
			assert.Equal(t, string(tt.event.Operation), msg.Metadata[messaging.MetadataOperation])
			assert.Equal(t, tt.event.Version, msg.Metadata[messaging.MetadataVersion])
		})
	}
}

func TestNotifier_PublishFailureIsQueueError(t *testing.T) {
	boom := errors.New("broker down")
	n := messaging.NewNotifier(&capturePublisher{err: boom}, messaging.WithNotifierLogger(logging.NewNoopLogger()))

	err := n.OnEvent(context.Background(), lifecycle.Event{Kind: "Book", Operation: lifecycle.OperationCreated})
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeQueue, cerrors.GetErrorCode(err))
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_PublishesServiceMutations(t *testing.T) {
	ctx := context.Background()
	bus := msync.NewSyncTransport()
	var seen []messaging.IMessage
	bus.Subscribe(msync.Wildcard, messaging.HandlerFunc(func(_ context.Context, m messaging.IMessage) error {
		seen = append(seen, m)
		return nil
	}))

	repo := memstore.New[uuid.UUID, lifecycletest.User](lifecycletest.SameUserName)
	svc := lifecycletest.NewUserService(repo,
		lifecycle.WithLogger(logging.NewNoopLogger()),
		lifecycle.WithObserver(messaging.NewNotifier(bus)))

	birth := time.Date(1991, 3, 23, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(ctx, lifecycletest.CreateUser{Name: "Alice", BirthDate: birth})
	require.NoError(t, err)
	_, err = svc.Update(ctx, created.ID, lifecycletest.UpdateUser{Name: "Alicia", BirthDate: birth})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	require.Len(t, seen, 3)
	assert.Equal(t, "crud.User.created", seen[0].GetType())
	assert.Equal(t, "crud.User.updated", seen[1].GetType())
	assert.Equal(t, "crud.User.deleted", seen[2].GetType())

	model, ok := seen[0].GetPayload().(lifecycletest.UserModel)
	require.True(t, ok)
	assert.Equal(t, "Alice", model.Name)
	assert.Nil(t, seen[2].GetPayload())
	assert.Equal(t, created.ID.String(), seen[2].GetMetadata()[messaging.MetadataEntityID])
	assert.Equal(t, int64(2), seen[2].GetMetadata()[messaging.MetadataVersion])
}
