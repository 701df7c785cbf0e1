package config

import (
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"
)

const udnPrefix = "uuid:"

// hostname 测试中替换
var hostname = os.Hostname

// localIPv4 测试中替换
var localIPv4 = LocalIPv4

func (c *Config) normalize() {
	c.normalizeIdentity()
	c.normalizeNetwork()
	c.normalizeLogging()
}

func (c *Config) normalizeIdentity() {
	c.FriendlyName = strings.TrimSpace(c.FriendlyName)
	c.UDN = strings.TrimSpace(c.UDN)
	if c.UDN == "" {
		c.UDN = udnPrefix + defaultUUID(c.FriendlyName).String()
	} else if !strings.HasPrefix(strings.ToLower(c.UDN), udnPrefix) {
		c.UDN = udnPrefix + c.UDN
	}
	if strings.TrimSpace(c.SerialNumber) == "" {
		c.SerialNumber = c.UDN[len(udnPrefix):]
	}
}

// defaultUUID 基于主机名和设备名生成，重启后保持不变
func defaultUUID(friendlyName string) uuid.UUID {
	host, err := hostname()
	if err != nil {
		host = "localhost"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host+"/"+friendlyName))
}

func (c *Config) normalizeNetwork() {
	c.BindAddress = strings.TrimSpace(c.BindAddress)
	if c.BindAddress == "" {
		c.BindAddress = localIPv4()
	}
	if c.AnnounceIntervalSeconds == 0 {
		c.AnnounceIntervalSeconds = c.MaxAge / 2
	}
}

func (c *Config) normalizeLogging() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// LocalIPv4 获取第一个非回环的本机IPv4地址，找不到时返回空串
func LocalIPv4() string {
	// 获取所有网络接口
	interfaces, err := net.Interfaces()
	if err != nil {
		slog.Warn("获取网络接口失败", "error", err)
		return ""
	}

	for _, iface := range interfaces {
		// 跳过未启用和回环接口
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addresses, err := iface.Addrs()
		if err != nil {
			slog.Warn("获取接口地址失败", "interface", iface.Name, "error", err)
			continue
		}

		for _, addr := range addresses {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ip := ipNet.IP.To4(); ip != nil {
				return ip.String()
			}
		}
	}

	return ""
}
