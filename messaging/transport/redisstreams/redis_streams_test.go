package redisstreams

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/logging"
	"crudkit/messaging"
)

type fakeClient struct {
	added  []*redis.XAddArgs
	err    error
	closed bool
}

func (f *fakeClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.added = append(f.added, a)
	cmd.SetVal("1-0")
	return cmd
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	fc := &fakeClient{}
	p := newPublisher(Config{MaxLen: 100, Logger: logging.NewNoopLogger()}, fc, true)

	msg := messaging.NewMessage("m1", "crud.Book.created", time.Unix(0, 1700000000000000000), map[string]any{"isbn": "x"})
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, fc.added, 1)
	args := fc.added[0]
	assert.Equal(t, "crudkit:crud.Book.created", args.Stream)
	assert.Equal(t, int64(100), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]any)
	assert.Equal(t, "m1", values["id"])
	assert.Equal(t, `{"isbn":"x"}`, values["payload"])

	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	boom := errors.New("connection refused")
	p := newPublisher(Config{Logger: logging.NewNoopLogger()}, &fakeClient{err: boom}, false)

	err := p.Publish(context.Background(), messaging.NewMessage("m1", "t", time.Now(), nil))
	assert.ErrorIs(t, err, boom)
}

func TestPublisher_BorrowedClientIsNotClosed(t *testing.T) {
	fc := &fakeClient{}
	p := newPublisher(Config{}, fc, false)
	require.NoError(t, p.Close())
	assert.False(t, fc.closed)
}

func TestNewPublisher_RequiresClientOrAddr(t *testing.T) {
	_, err := NewPublisher(Config{})
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ts := time.Unix(0, 1700000000000000000)
	msg := &messaging.Message{
		ID:        "msg-1",
		Type:      "crud.Book.updated",
		Timestamp: ts,
		Payload:   map[string]any{"version": 2},
		Metadata:  map[string]any{"kind": "Book"},
	}

	values, err := encodeMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeMessage(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)

	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, msg.Type, decoded.Type)
	assert.Equal(t, ts.UnixNano(), decoded.Timestamp.UnixNano())
	assert.Equal(t, float64(2), decoded.Payload.(map[string]any)["version"])
	assert.Equal(t, "Book", decoded.Metadata["kind"])
}

func TestDecodeFallbackTimestamp(t *testing.T) {
	entry := redis.XMessage{ID: "2-0", Values: map[string]any{
		"id":        "msg-2",
		"type":      "crud.Book.deleted",
		"timestamp": "1700000000000000000",
		"payload":   "null",
		"metadata":  "{}",
	}}
	decoded, err := DecodeMessage(entry)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000000000), decoded.Timestamp.UnixNano())
	assert.Nil(t, decoded.Payload)
}
