package config

import (
	"net"

	"github.com/google/uuid"
)

// Validate 校验配置是否可用
func (c *Config) Validate() error {
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateIdentity() error {
	if c.FriendlyName == "" {
		return fieldError("friendly_name", "不能为空")
	}
	if len(c.UDN) <= len(udnPrefix) {
		return fieldError("udn", "不能为空")
	}
	if _, err := uuid.Parse(c.UDN[len(udnPrefix):]); err != nil {
		return fieldError("udn", "不是合法的UUID %q: %w", c.UDN, err)
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.BindAddress == "" {
		return fieldError("bind_address", "未设置且无法检测本机IPv4地址")
	}
	if ip := net.ParseIP(c.BindAddress); ip == nil || ip.To4() == nil {
		return fieldError("bind_address", "必须是IPv4地址: %q", c.BindAddress)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fieldError("http_port", "必须在 1-65535 之间: %d", c.HTTPPort)
	}
	if c.SSDPPort < 1 || c.SSDPPort > 65535 {
		return fieldError("ssdp_port", "必须在 1-65535 之间: %d", c.SSDPPort)
	}
	if c.SSDPTTL < 1 || c.SSDPTTL > 255 {
		return fieldError("ssdp_ttl", "必须在 1-255 之间: %d", c.SSDPTTL)
	}
	if c.MaxAge < 60 {
		return fieldError("max_age", "不能小于60秒: %d", c.MaxAge)
	}
	if c.AnnounceIntervalSeconds <= 0 || c.AnnounceIntervalSeconds > c.MaxAge/2 {
		return fieldError("announce_interval_seconds", "必须在 1-%d 之间（不超过 max_age 的一半）: %d",
			c.MaxAge/2, c.AnnounceIntervalSeconds)
	}
	if c.MaxMX < 1 || c.MaxMX > 120 {
		return fieldError("max_mx", "必须在 1-120 之间: %d", c.MaxMX)
	}
	if c.ShutdownTimeoutSeconds < 1 {
		return fieldError("shutdown_timeout_seconds", "必须为正数: %d", c.ShutdownTimeoutSeconds)
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if c.Volume < 0 || c.Volume > 100 {
		return fieldError("volume", "必须在 0-100 之间: %d", c.Volume)
	}
	if c.ProbeMedia && c.ProbeTimeoutSeconds < 1 {
		return fieldError("probe_timeout_seconds", "启用 probe_media 时必须为正数: %d", c.ProbeTimeoutSeconds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fieldError("log_level", "不支持的级别 %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json", "auto":
	default:
		return fieldError("log_format", "不支持的格式 %q", c.LogFormat)
	}
	return nil
}
