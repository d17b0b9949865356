package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// HTTPRunner 以 Run/Shutdown 形式托管 http.Server
type HTTPRunner struct {
	srv *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPRunner 创建 HTTP 托管器
func NewHTTPRunner(addr string, handler http.Handler) *HTTPRunner {
	return &HTTPRunner{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Addr 实际监听地址；Run 之前返回配置的地址
func (h *HTTPRunner) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.srv.Addr
}

// Listen 绑定端口；Run 未调用 Listen 时会自动绑定
func (h *HTTPRunner) Listen() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	h.listener = ln
	return nil
}

// Run 阻塞提供服务，正常关闭时返回 nil
func (h *HTTPRunner) Run(ctx context.Context) error {
	if err := h.Listen(); err != nil {
		return err
	}
	// 请求上下文继承 ctx 的值，但不随 ctx 取消，交由 Shutdown 控制
	h.srv.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }

	h.mu.Lock()
	ln := h.listener
	h.mu.Unlock()

	if err := h.srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (h *HTTPRunner) Shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
