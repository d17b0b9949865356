package messaging

import (
	"context"
)

// IPublisher 消息发布接口
type IPublisher interface {
	Publish(ctx context.Context, message IMessage) error
	Close() error
}

// PublishAll 依次发布，遇到第一个错误即返回
func PublishAll(ctx context.Context, p IPublisher, messages []IMessage) error {
	for _, msg := range messages {
		if err := p.Publish(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// NopPublisher 丢弃所有消息
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, IMessage) error { return nil }
func (NopPublisher) Close() error                            { return nil }
