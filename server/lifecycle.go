// Package server 编排应用进程的启动与优雅关闭
package server

import (
	"context"
	"time"

	"crudkit/logging"
)

// State 引擎生命周期状态
type State int32

const (
	StatePending State = iota
	StateInitializing
	// StatePrepared 依赖已就绪，等待启动
	StatePrepared
	StateRunning
	StateStopping
	StateStopped
	// StateError 发生不可恢复的错误
	StateError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInitializing:
		return "Initializing"
	case StatePrepared:
		return "Prepared"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Hook 生命周期回调
type Hook func(ctx context.Context) error

// Options 引擎配置
type Options struct {
	Name            string
	Version         string
	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration
	Logger          logging.Logger

	OnBeforeStart []Hook
	OnAfterStop   []Hook
}

// Option 配置修改函数
type Option func(*Options)

// DefaultOptions 默认配置
func DefaultOptions() *Options {
	return &Options{
		Name:            "crudkit",
		Version:         "0.0.0",
		StartupTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

func WithVersion(version string) Option {
	return func(o *Options) { o.Version = version }
}

func WithStartupTimeout(t time.Duration) Option {
	return func(o *Options) { o.StartupTimeout = t }
}

// WithShutdownTimeout 设置关闭超时时间，<= 0 时忽略
func WithShutdownTimeout(t time.Duration) Option {
	return func(o *Options) {
		if t > 0 {
			o.ShutdownTimeout = t
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithBeforeStart 添加启动前回调，失败时中止启动
func WithBeforeStart(fn Hook) Option {
	return func(o *Options) { o.OnBeforeStart = append(o.OnBeforeStart, fn) }
}

// WithAfterStop 添加停止后回调，失败只记录日志
func WithAfterStop(fn Hook) Option {
	return func(o *Options) { o.OnAfterStop = append(o.OnAfterStop, fn) }
}
