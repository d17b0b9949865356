package lifecycle

import "time"

// Clock 提供“当前时刻”，测试中注入可调时钟以获得确定性
type Clock interface {
	Now() time.Time
}

// ClockFunc 函数形式的 Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// UTCClock 系统时钟，统一返回 UTC
type UTCClock struct{}

func (UTCClock) Now() time.Time { return time.Now().UTC() }
