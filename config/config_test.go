package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoRender/types"
)

func stubHost(t *testing.T, host, ip string) {
	t.Helper()
	origHost, origIP := hostname, localIPv4
	hostname = func() (string, error) { return host, nil }
	localIPv4 = func() string { return ip }
	t.Cleanup(func() {
		hostname = origHost
		localIPv4 = origIP
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	stubHost(t, "media-box", "192.168.1.20")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFriendlyName, cfg.FriendlyName)
	assert.Equal(t, "192.168.1.20", cfg.BindAddress)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 1900, cfg.SSDPPort)
	assert.Equal(t, 900, cfg.AnnounceIntervalSeconds)
	assert.Equal(t, 15*time.Minute, cfg.AnnounceInterval())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, "http://192.168.1.20:8080/description.xml", cfg.Location())
	assert.True(t, strings.HasPrefix(cfg.UDN, "uuid:"))
	assert.Equal(t, cfg.UDN[len("uuid:"):], cfg.SerialNumber)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.LogFormat)
}

func TestDefaultUDNIsStable(t *testing.T) {
	stubHost(t, "media-box", "192.168.1.20")

	a, err := Load("")
	require.NoError(t, err)
	b, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, a.UDN, b.UDN)

	stubHost(t, "other-box", "192.168.1.20")
	c, err := Load("")
	require.NoError(t, err)
	assert.NotEqual(t, a.UDN, c.UDN)
}

func TestLoadTOML(t *testing.T) {
	stubHost(t, "media-box", "192.168.1.20")

	data, err := toml.Marshal(map[string]any{
		"friendly_name": "Living Room",
		"udn":           "5a1f7b52-2b1e-4c3a-9d7e-000000000001",
		"bind_address":  "10.0.0.5",
		"http_port":     49152,
		"max_age":       600,
		"volume":        30,
		"log_level":     "DEBUG",
	})
	require.NoError(t, err)
	path := writeFile(t, "renderer.toml", string(data))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Living Room", cfg.FriendlyName)
	assert.Equal(t, "uuid:5a1f7b52-2b1e-4c3a-9d7e-000000000001", cfg.UDN)
	assert.Equal(t, "10.0.0.5", cfg.BindAddress)
	assert.Equal(t, 49152, cfg.HTTPPort)
	assert.Equal(t, 300, cfg.AnnounceIntervalSeconds)
	assert.Equal(t, 30, cfg.Volume)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadYAML(t *testing.T) {
	stubHost(t, "media-box", "192.168.1.20")

	path := writeFile(t, "renderer.yaml", `
friendly_name: Bedroom
udn: uuid:5a1f7b52-2b1e-4c3a-9d7e-000000000002
probe_media: true
probe_timeout_seconds: 3
log_format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Bedroom", cfg.FriendlyName)
	assert.Equal(t, "uuid:5a1f7b52-2b1e-4c3a-9d7e-000000000002", cfg.UDN)
	assert.True(t, cfg.ProbeMedia)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, "json", cfg.LogFormat)

	empty := writeFile(t, "empty.yml", "")
	cfg, err = Load(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultFriendlyName, cfg.FriendlyName)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	stubHost(t, "media-box", "192.168.1.20")

	for name, content := range map[string]string{
		"renderer.toml": "friendly_name = \"x\"\nfriendlyname = \"y\"\n",
		"renderer.yaml": "friendly_name: x\nfriendlyname: y\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, name, content))
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	stubHost(t, "media-box", "192.168.1.20")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorAs(t, err, new(*Error))

	_, err = Load(writeFile(t, "renderer.ini", "friendly_name=x"))
	assert.ErrorAs(t, err, new(*Error))

	_, err = Load(writeFile(t, "broken.toml", "friendly_name = "))
	assert.ErrorAs(t, err, new(*Error))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Config)
	}{
		{"friendly_name", func(c *Config) { c.FriendlyName = "  " }},
		{"udn", func(c *Config) { c.UDN = "uuid:not-a-uuid" }},
		{"bind_address", func(c *Config) { c.BindAddress = "::1" }},
		{"bind_address", func(c *Config) { c.BindAddress = "renderer.local" }},
		{"http_port", func(c *Config) { c.HTTPPort = 70000 }},
		{"ssdp_port", func(c *Config) { c.SSDPPort = 0 }},
		{"ssdp_ttl", func(c *Config) { c.SSDPTTL = 256 }},
		{"max_age", func(c *Config) { c.MaxAge = 30 }},
		{"announce_interval_seconds", func(c *Config) { c.AnnounceIntervalSeconds = 1000 }},
		{"announce_interval_seconds", func(c *Config) { c.AnnounceIntervalSeconds = -1 }},
		{"max_mx", func(c *Config) { c.MaxMX = 0 }},
		{"shutdown_timeout_seconds", func(c *Config) { c.ShutdownTimeoutSeconds = 0 }},
		{"volume", func(c *Config) { c.Volume = 101 }},
		{"probe_timeout_seconds", func(c *Config) { c.ProbeMedia = true; c.ProbeTimeoutSeconds = 0 }},
		{"log_level", func(c *Config) { c.LogLevel = "trace" }},
		{"log_format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			stubHost(t, "media-box", "192.168.1.20")
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Finalize()
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestMissingBindAddress(t *testing.T) {
	stubHost(t, "media-box", "")

	_, err := Load("")
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "bind_address", cfgErr.Field)
}

func TestDescriptor(t *testing.T) {
	stubHost(t, "media-box", "192.168.1.20")
	cfg, err := Load("")
	require.NoError(t, err)

	services := []types.ServiceDescriptor{types.NewServiceDescriptor("AVTransport", types.ServiceTypeAVTransport)}
	d := cfg.Descriptor(services)
	assert.Equal(t, cfg.UDN, d.UDN)
	assert.Equal(t, types.DeviceTypeMediaRenderer, d.DeviceType)
	assert.Equal(t, DefaultModelName, d.ModelName)
	assert.Equal(t, services, d.ServiceList)
}
