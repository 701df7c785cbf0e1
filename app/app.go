package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"GoRender/config"
	"GoRender/discovery"
	"GoRender/interfaces"
	"GoRender/renderer"
	"GoRender/server"
	"GoRender/service"
	"GoRender/transcoder"
	"GoRender/types"
)

// Version 程序版本，构建时可通过 -ldflags 覆盖
var Version = "1.0"

// ssdpResponder SSDP 应答器的生命周期
type ssdpResponder interface {
	Listen() error
	Serve(ctx context.Context) error
}

// Options 协调器的可选依赖
type Options struct {
	// Announcer 默认通过 go-ssdp 发送组播 NOTIFY
	Announcer interfaces.Announcer
}

// App 协调器：持有渲染器状态，启动 HTTP 与 SSDP 并负责关闭顺序
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	state      *renderer.State
	descriptor types.DeviceDescriptor
	prober     *transcoder.Prober
	server     *server.Server
	responder  ssdpResponder
}

// ServerToken 返回 HTTP 与 SSDP 共用的 SERVER 标识
func ServerToken() string {
	return fmt.Sprintf("%s/%s UPnP/1.0 GoRender/%s",
		runtime.GOOS, strings.TrimPrefix(runtime.Version(), "go"), Version)
}

// New 根据已校验的配置创建全部组件，此时不绑定任何端口
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger.With("component", "app")}

	a.state = renderer.New(renderer.Options{Volume: cfg.Volume})

	var prober interfaces.MediaProber
	if cfg.ProbeMedia {
		if transcoder.CheckFFprobe() {
			a.prober = transcoder.NewProber(transcoder.Options{Logger: logger})
			prober = a.prober
		} else {
			a.logger.Warn("未找到ffprobe，媒体探测已关闭")
		}
	}

	handlers := []interfaces.ServiceHandler{
		service.NewAVTransport(service.AVTransportOptions{
			Clock:        a.state.Now,
			Prober:       prober,
			ProbeTimeout: cfg.ProbeTimeout(),
			Logger:       logger,
		}),
		service.NewRenderingControl(service.RenderingControlOptions{
			DefaultVolume: cfg.Volume,
			Logger:        logger,
		}),
		service.NewConnectionManager(logger),
	}
	services := make([]types.ServiceDescriptor, 0, len(handlers))
	for _, h := range handlers {
		services = append(services, h.Descriptor())
	}
	a.descriptor = cfg.Descriptor(services)

	token := ServerToken()
	srv, err := server.New(server.Options{
		Descriptor:  a.descriptor,
		Services:    handlers,
		State:       a.state,
		ServerToken: token,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	a.server = srv

	announcer := opts.Announcer
	if announcer == nil {
		announcer = discovery.NewMulticastAnnouncer(cfg.Location(), token, cfg.MaxAge, cfg.SSDPTTL, cfg.BindAddress)
	}
	responder, err := discovery.NewResponder(discovery.ResponderOptions{
		Descriptor:       a.descriptor,
		Location:         cfg.Location(),
		ServerToken:      token,
		MaxAge:           cfg.MaxAge,
		AnnounceInterval: cfg.AnnounceInterval(),
		MaxMX:            cfg.MaxMX,
		BindIP:           cfg.BindAddress,
		Port:             cfg.SSDPPort,
		TTL:              cfg.SSDPTTL,
		Announcer:        announcer,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	a.responder = responder
	return a, nil
}

// Descriptor 返回设备描述
func (a *App) Descriptor() types.DeviceDescriptor {
	return a.descriptor
}

// Run 先绑定全部端口再并发运行，ctx 结束后依次关闭 HTTP 与 SSDP
// 端口绑定失败时直接返回错误，不启动任何服务
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Listen(a.cfg.HTTPAddr()); err != nil {
		return err
	}
	if err := a.responder.Listen(); err != nil {
		_ = a.server.Shutdown(context.Background())
		return err
	}

	a.logger.Info("渲染器已启动",
		"name", a.descriptor.FriendlyName,
		"udn", a.descriptor.UDN,
		"location", a.cfg.Location())

	// SSDP 使用独立的 ctx，保证 byebye 在 HTTP 停止之后发送
	ssdpCtx, stopSSDP := context.WithCancel(context.Background())
	defer stopSSDP()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Serve)
	g.Go(func() error {
		return a.responder.Serve(ssdpCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("开始关闭渲染器")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("等待进行中的请求超时", "error", err)
		}
		stopSSDP()
		return nil
	})

	err := g.Wait()
	if a.prober != nil {
		a.prober.Cleanup()
	}
	if err != nil {
		return err
	}
	a.logger.Info("渲染器已停止")
	return nil
}
