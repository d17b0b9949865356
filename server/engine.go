package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"crudkit/logging"
)

// IServer 应用需要实现的生命周期步骤
type IServer interface {
	Name() string

	// LoadConfig 解析配置文件、环境变量
	LoadConfig() error

	// SetupDependencies 连接存储、构建服务与路由
	SetupDependencies(ctx context.Context) error

	// Run 阻塞运行主服务，ctx 取消时应尽快返回
	Run(ctx context.Context) error

	// Shutdown 释放资源
	Shutdown(ctx context.Context) error
}

// Engine 按 LoadConfig -> Setup -> Run -> 等待信号 -> Shutdown 的顺序驱动 IServer
type Engine struct {
	server  IServer
	options *Options
	logger  logging.Logger
	state   atomic.Int32
	signals []os.Signal
}

// NewEngine 创建启动引擎；server.Name() 非空时作为默认名称
func NewEngine(server IServer, opts ...Option) *Engine {
	options := DefaultOptions()
	if name := server.Name(); name != "" {
		options.Name = name
	}
	for _, o := range opts {
		o(options)
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Engine{
		server:  server,
		options: options,
		logger:  logger.WithFields(logging.String("component", "server"), logging.String("app", options.Name)),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// State 当前状态
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Start 执行完整的生命周期，直到 Run 返回、收到终止信号或 parent 被取消
func (e *Engine) Start(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, e.signals...)
	defer cancel()

	e.logger.Info(ctx, "starting", logging.String("version", e.options.Version))
	e.setState(StateInitializing)

	if err := e.server.LoadConfig(); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to load config: %w", err)
	}

	setupCtx, setupCancel := context.WithTimeout(ctx, e.options.StartupTimeout)
	defer setupCancel()
	if err := e.server.SetupDependencies(setupCtx); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	e.setState(StatePrepared)

	for _, hook := range e.options.OnBeforeStart {
		if err := hook(ctx); err != nil {
			e.setState(StateError)
			return fmt.Errorf("OnBeforeStart hook failed: %w", err)
		}
	}

	e.setState(StateRunning)
	errChan := make(chan error, 1)
	go func() {
		errChan <- e.server.Run(ctx)
	}()

	var runErr error
	select {
	case runErr = <-errChan:
		if runErr != nil {
			e.logger.Error(ctx, "server stopped with error", logging.Error(runErr))
		} else {
			e.logger.Info(ctx, "server stopped")
		}
	case <-ctx.Done():
		e.logger.Info(context.Background(), "shutdown requested", logging.Error(context.Cause(ctx)))
	}
	cancel()

	e.setState(StateStopping)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), e.options.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.server.Shutdown(shutdownCtx); err != nil {
		e.setState(StateError)
		return fmt.Errorf("shutdown: %w", err)
	}

	for _, hook := range e.options.OnAfterStop {
		if err := hook(shutdownCtx); err != nil {
			e.logger.Warn(shutdownCtx, "OnAfterStop hook failed", logging.Error(err))
		}
	}

	if runErr != nil {
		e.setState(StateError)
		return fmt.Errorf("server execution error: %w", runErr)
	}

	e.setState(StateStopped)
	e.logger.Info(shutdownCtx, "shutdown complete")
	return nil
}
