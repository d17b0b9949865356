// Package lifecycletest 提供生命周期编排的测试工具：可调时钟、User 测试实体类型，
// 以及可复用于任意持久化端口实现的契约测试套件。
package lifecycletest

import (
	"sync"
	"time"
)

// AdjustableClock 可手动推进的时钟
type AdjustableClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewAdjustableClock 以 start 为当前时刻创建时钟
func NewAdjustableClock(start time.Time) *AdjustableClock {
	return &AdjustableClock{now: start.UTC()}
}

func (c *AdjustableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set 把当前时刻设置为 t
func (c *AdjustableClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

// Advance 推进 d 并返回新的当前时刻
func (c *AdjustableClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
