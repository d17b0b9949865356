package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"crudkit/domain/lifecycle"
	"crudkit/errors"
	"crudkit/logging"
)

// DefaultTypePrefix 消息类型前缀默认值
const DefaultTypePrefix = "crud."

// NotifierOption 配置 Notifier
type NotifierOption func(*Notifier)

// WithTypePrefix 设置消息类型前缀
func WithTypePrefix(prefix string) NotifierOption {
	return func(n *Notifier) { n.prefix = prefix }
}

// WithMessageIDs 自定义消息 id 生成，默认 uuid v4
func WithMessageIDs(next func() string) NotifierOption {
	return func(n *Notifier) {
		if next != nil {
			n.nextID = next
		}
	}
}

// WithNotifierLogger 注入日志器
func WithNotifierLogger(logger logging.Logger) NotifierOption {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// Notifier 把生命周期事件转换为消息并发布。
// 消息类型为 <prefix><kind>.<operation>，例如 crud.Book.created。
type Notifier struct {
	publisher IPublisher
	prefix    string
	nextID    func() string
	logger    logging.Logger
}

var _ lifecycle.IObserver = (*Notifier)(nil)

// NewNotifier 创建事件通知器
func NewNotifier(publisher IPublisher, opts ...NotifierOption) *Notifier {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	n := &Notifier{
		publisher: publisher,
		prefix:    DefaultTypePrefix,
		nextID:    uuid.NewString,
		logger:    logging.GetLogger().WithFields(logging.String("component", "messaging.notifier")),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// MessageType 事件对应的消息类型
func (n *Notifier) MessageType(kind string, op lifecycle.Operation) string {
	return n.prefix + kind + "." + string(op)
}

// ToMessage 构造事件消息
func (n *Notifier) ToMessage(event lifecycle.Event) *Message {
	msg := NewMessage(n.nextID(), n.MessageType(event.Kind, event.Operation), event.At, event.Payload)
	msg.SetMetadata(MetadataKind, event.Kind)
	msg.SetMetadata(MetadataOperation, string(event.Operation))
	msg.SetMetadata(MetadataEntityID, fmt.Sprint(event.ID))
	msg.SetMetadata(MetadataVersion, event.Version)
	return msg
}

func (n *Notifier) OnEvent(ctx context.Context, event lifecycle.Event) error {
	msg := n.ToMessage(event)
	if err := n.publisher.Publish(ctx, msg); err != nil {
		return errors.WrapError(err, errors.ErrCodeQueue, "publish "+msg.Type)
	}
	n.logger.Debug(ctx, "event published",
		logging.String("type", msg.Type),
		logging.String("message_id", msg.ID))
	return nil
}
