package lifecycle

import (
	"context"
	"time"
)

// Operation 生命周期变更类型
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
	OperationDeleted Operation = "deleted"
)

// Event 一次成功持久化的变更
type Event struct {
	Kind      string
	Operation Operation
	ID        any
	Version   int64
	At        time.Time
	// Payload 变更后的领域模型；删除时为 nil
	Payload any
}

// IObserver 接收生命周期事件。
// 返回的错误只会被记录为警告，不会影响已经完成的变更。
type IObserver interface {
	OnEvent(ctx context.Context, event Event) error
}

// ObserverFunc 函数形式的 IObserver
type ObserverFunc func(ctx context.Context, event Event) error

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) error { return f(ctx, event) }

// Observers 按顺序通知多个观察者，返回第一个错误但不会中断后续通知
type Observers []IObserver

func (obs Observers) OnEvent(ctx context.Context, event Event) error {
	var first error
	for _, o := range obs {
		if o == nil {
			continue
		}
		if err := o.OnEvent(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
