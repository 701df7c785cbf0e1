package main

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/koron/go-ssdp"
	"github.com/spf13/cobra"

	"GoRender/app"
	"GoRender/config"
	"GoRender/discovery"
	"GoRender/dlna"
	"GoRender/logging"
)

// options 命令行参数，非空时覆盖配置文件
type options struct {
	configPath string
	name       string
	port       int
	bind       string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := opts.rootCommand()
	root.AddCommand(opts.discoverCommand())
	return root
}

func (o *options) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gorender",
		Short:         "UPnP/DLNA 数字媒体渲染器",
		Version:       app.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			a, err := app.New(cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "配置文件路径 (.toml/.yaml/.yml)")
	cmd.PersistentFlags().StringVar(&o.bind, "bind", "", "绑定的本机IPv4地址，默认自动检测")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "日志级别 debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&o.logFormat, "log-format", "", "日志格式 console|json|auto")
	cmd.Flags().StringVar(&o.name, "name", "", "设备名称 (friendlyName)")
	cmd.Flags().IntVar(&o.port, "port", 0, "HTTP端口")
	return cmd
}

// loadConfig 读取配置文件，应用命令行覆盖后再规范化与校验
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(o.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.FriendlyName = o.name
	}
	if flags.Changed("port") {
		cfg.HTTPPort = o.port
	}
	if flags.Changed("bind") {
		cfg.BindAddress = o.bind
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) discoverCommand() *cobra.Command {
	var wait time.Duration
	var all bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "搜索局域网中的媒体渲染器",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := o.logLevel
			if level == "" {
				level = "warn"
			}
			logger, err := logging.New(logging.Options{Level: level, Format: o.logFormat, Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}

			search := discovery.SearchOptions{
				Wait:   wait,
				Client: dlna.NewClient(2*time.Second, logger),
				Logger: logger,
			}
			if all {
				search.Targets = []string{ssdp.All}
			}
			if o.bind != "" {
				search.LocalAddr = net.JoinHostPort(o.bind, "0")
			}

			devices, err := discovery.Search(cmd.Context(), search)
			if err != nil {
				return err
			}
			printDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
	cmd.Flags().DurationVarP(&wait, "timeout", "t", 3*time.Second, "每种设备类型的等待时间")
	cmd.Flags().BoolVar(&all, "all", false, "搜索全部 SSDP 设备 (ssdp:all)")
	return cmd
}

func printDevices(w io.Writer, devices []discovery.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "未发现设备")
		return
	}
	for i, d := range devices {
		udn := d.UDN
		if udn == "" {
			udn = d.USN
		}
		fmt.Fprintf(w, "%d. %s\n   UDN: %s\n   Location: %s\n", i+1, d.FriendlyName, udn, d.Location)
		if d.DeviceType != "" {
			fmt.Fprintf(w, "   Type: %s\n", d.DeviceType)
		}
	}
}
