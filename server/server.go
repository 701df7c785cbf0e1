package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"GoRender/dlna"
	"GoRender/interfaces"
	"GoRender/renderer"
	"GoRender/types"
)

// 常量定义
const (
	httpReadTimeout  = 30 * time.Second
	httpWriteTimeout = 30 * time.Second
	httpIdleTimeout  = 120 * time.Second
	// SOAP 请求体上限
	maxRequestBody = 64 << 10
	xmlContentType = `text/xml; charset="utf-8"`
)

// Options HTTP 服务参数
type Options struct {
	Descriptor types.DeviceDescriptor
	Services   []interfaces.ServiceHandler
	State      *renderer.State
	// ServerToken 响应头 SERVER 的值，与 SSDP 一致
	ServerToken string
	Logger      *slog.Logger
}

// Server 提供设备描述、服务描述和 SOAP 控制的 HTTP 服务器
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New 创建服务器，描述文档在此一次性生成
func New(opts Options) (*Server, error) {
	if opts.State == nil {
		return nil, errors.New("server: 缺少渲染器状态")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	description, err := dlna.BuildDescription(opts.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("生成设备描述失败: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+types.DescriptionPath, document(description))
	for _, svc := range opts.Services {
		desc := svc.Descriptor()
		scpd, err := svc.SCPD()
		if err != nil {
			return nil, fmt.Errorf("生成服务描述 %s 失败: %w", desc.ServiceID, err)
		}
		mux.Handle("GET "+desc.SCPDURL, document(scpd))
		mux.Handle(desc.ControlURL, &dispatcher{
			service: svc,
			state:   opts.State,
			logger:  logger.With("service", desc.ServiceType),
		})
		mux.HandleFunc(desc.EventSubURL, notImplemented)
	}

	handler := withServerHeader(mux, opts.ServerToken)
	return &Server{
		handler: handler,
		logger:  logger,
		httpServer: &http.Server{
			Handler:      handler,
			ReadTimeout:  httpReadTimeout,
			WriteTimeout: httpWriteTimeout,
			IdleTimeout:  httpIdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}, nil
}

// Handler 返回 HTTP 处理器，供测试直接使用
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen 绑定 TCP 地址，绑定失败属于启动期致命错误
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("HTTP监听 %s 失败: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve 在已绑定的监听器上提供服务，直到 Shutdown
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server: 尚未监听")
	}

	s.logger.Info("HTTP服务器已启动", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP服务器错误: %w", err)
	}
	return nil
}

// Shutdown 停止接受新连接并等待进行中的请求完成，受 ctx 截止时间约束
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	// 尚未 Serve 的监听器不受 http.Server 管理
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("HTTP服务器关闭超时，强制关闭连接", "error", err)
		_ = s.httpServer.Close()
		return err
	}
	s.logger.Info("HTTP服务器已停止")
	return nil
}

// document 提供只读 XML 文档
func document(body []byte) http.Handler {
	length := strconv.Itoa(len(body))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", xmlContentType)
		w.Header().Set("Content-Length", length)
		_, _ = w.Write(body)
	})
}

// notImplemented GENA 事件订阅未实现
func notImplemented(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "event subscription not implemented", http.StatusNotImplemented)
}

func withServerHeader(next http.Handler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			w.Header().Set("Server", token)
		}
		next.ServeHTTP(w, r)
	})
}
