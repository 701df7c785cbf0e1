package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"GoRender/types"
)

// Config 渲染器进程配置
type Config struct {
	FriendlyName     string `toml:"friendly_name" yaml:"friendly_name"`
	UDN              string `toml:"udn" yaml:"udn"`
	Manufacturer     string `toml:"manufacturer" yaml:"manufacturer"`
	ManufacturerURL  string `toml:"manufacturer_url" yaml:"manufacturer_url"`
	ModelName        string `toml:"model_name" yaml:"model_name"`
	ModelDescription string `toml:"model_description" yaml:"model_description"`
	ModelNumber      string `toml:"model_number" yaml:"model_number"`
	ModelURL         string `toml:"model_url" yaml:"model_url"`
	SerialNumber     string `toml:"serial_number" yaml:"serial_number"`

	BindAddress             string `toml:"bind_address" yaml:"bind_address"`
	HTTPPort                int    `toml:"http_port" yaml:"http_port"`
	SSDPPort                int    `toml:"ssdp_port" yaml:"ssdp_port"`
	SSDPTTL                 int    `toml:"ssdp_ttl" yaml:"ssdp_ttl"`
	MaxAge                  int    `toml:"max_age" yaml:"max_age"`
	AnnounceIntervalSeconds int    `toml:"announce_interval_seconds" yaml:"announce_interval_seconds"`
	MaxMX                   int    `toml:"max_mx" yaml:"max_mx"`
	ShutdownTimeoutSeconds  int    `toml:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`

	Volume              int  `toml:"volume" yaml:"volume"`
	ProbeMedia          bool `toml:"probe_media" yaml:"probe_media"`
	ProbeTimeoutSeconds int  `toml:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`

	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// Error 配置加载或校验失败，启动前即为致命错误
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("配置错误: %v", e.Err)
	}
	return fmt.Sprintf("配置项 %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fieldError(field, format string, args ...any) error {
	return &Error{Field: field, Err: fmt.Errorf(format, args...)}
}

// Load 读取配置文件并完成规范化与校验，path 为空时只使用默认值
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read 在默认值之上解码配置文件，不做规范化，便于命令行参数覆盖
func Read(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("读取配置文件: %w", err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, &Error{Err: fmt.Errorf("解析TOML配置 %s: %w", path, err)}
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, &Error{Err: fmt.Errorf("解析YAML配置 %s: %w", path, err)}
		}
	default:
		return nil, &Error{Err: fmt.Errorf("不支持的配置文件格式: %s", path)}
	}
	return cfg, nil
}

// Finalize 规范化后校验
func (c *Config) Finalize() error {
	c.normalize()
	return c.Validate()
}

// HTTPAddr HTTP 监听地址
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.HTTPPort))
}

// Location 设备描述文档的绝对地址
func (c *Config) Location() string {
	return "http://" + c.HTTPAddr() + types.DescriptionPath
}

// AnnounceInterval 周期性 alive 通告间隔
func (c *Config) AnnounceInterval() time.Duration {
	return time.Duration(c.AnnounceIntervalSeconds) * time.Second
}

// ShutdownTimeout 关闭时等待进行中请求的时长
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// ProbeTimeout 单次媒体探测超时
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// Descriptor 根据配置生成设备描述，服务列表由调用方提供
func (c *Config) Descriptor(services []types.ServiceDescriptor) types.DeviceDescriptor {
	return types.DeviceDescriptor{
		UDN:              c.UDN,
		DeviceType:       types.DeviceTypeMediaRenderer,
		FriendlyName:     c.FriendlyName,
		Manufacturer:     c.Manufacturer,
		ManufacturerURL:  c.ManufacturerURL,
		ModelDescription: c.ModelDescription,
		ModelName:        c.ModelName,
		ModelNumber:      c.ModelNumber,
		ModelURL:         c.ModelURL,
		SerialNumber:     c.SerialNumber,
		ServiceList:      services,
	}
}
