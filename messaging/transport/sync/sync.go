// Package sync 提供一个同步的进程内发布实现
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crudkit/messaging"
)

// SyncTransport 同步的内存发布器。
// Publish 在调用方 goroutine 中依次执行所有匹配的处理器。
type SyncTransport struct {
	handlers map[string][]messaging.IMessageHandler
	mutex    sync.RWMutex
	closed   bool
}

var _ messaging.IPublisher = (*SyncTransport)(nil)

// NewSyncTransport 创建一个新的同步传输实例
func NewSyncTransport() *SyncTransport {
	return &SyncTransport{
		handlers: make(map[string][]messaging.IMessageHandler),
	}
}

// Publish 立即、同步地发布消息
func (t *SyncTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mutex.RLock()
	if t.closed {
		t.mutex.RUnlock()
		return fmt.Errorf("sync transport is closed")
	}
	handlers := append([]messaging.IMessageHandler(nil), t.handlers[message.GetType()]...)
	handlers = append(handlers, t.handlers[Wildcard]...)
	t.mutex.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("message handling completed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Wildcard 订阅所有消息类型
const Wildcard = "*"

// Subscribe 订阅消息处理器；messageType 为 Wildcard 时接收所有消息
func (t *SyncTransport) Subscribe(messageType string, handler messaging.IMessageHandler) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handlers[messageType] = append(t.handlers[messageType], handler)
}

// Unsubscribe 取消订阅
func (t *SyncTransport) Unsubscribe(messageType string, handler messaging.IMessageHandler) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	handlers := t.handlers[messageType]
	for i, h := range handlers {
		if h == handler {
			t.handlers[messageType] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Close 关闭后 Publish 返回错误
func (t *SyncTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.closed = true
	return nil
}
