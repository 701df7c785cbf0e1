package config

// 默认值
const (
	DefaultFriendlyName     = "Dummy Renderer"
	DefaultManufacturer     = "Dummy Manufacturer"
	DefaultManufacturerURL  = "http://example.com/manufacturer"
	DefaultModelName        = "Dummy Model"
	DefaultModelDescription = "A dummy DLNA DMR"
	DefaultModelNumber      = "1"
	DefaultModelURL         = "http://example.com/dummy_model"

	DefaultHTTPPort        = 8080
	DefaultSSDPPort        = 1900
	DefaultSSDPTTL         = 2
	DefaultMaxAge          = 1800
	DefaultMaxMX           = 5
	DefaultShutdownTimeout = 5
	DefaultVolume          = 50
	DefaultProbeTimeout    = 10

	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
)

// Default 返回默认配置，UDN 与绑定地址在规范化时生成
func Default() *Config {
	return &Config{
		FriendlyName:           DefaultFriendlyName,
		Manufacturer:           DefaultManufacturer,
		ManufacturerURL:        DefaultManufacturerURL,
		ModelName:              DefaultModelName,
		ModelDescription:       DefaultModelDescription,
		ModelNumber:            DefaultModelNumber,
		ModelURL:               DefaultModelURL,
		HTTPPort:               DefaultHTTPPort,
		SSDPPort:               DefaultSSDPPort,
		SSDPTTL:                DefaultSSDPTTL,
		MaxAge:                 DefaultMaxAge,
		MaxMX:                  DefaultMaxMX,
		ShutdownTimeoutSeconds: DefaultShutdownTimeout,
		Volume:                 DefaultVolume,
		ProbeTimeoutSeconds:    DefaultProbeTimeout,
		LogLevel:               DefaultLogLevel,
		LogFormat:              DefaultLogFormat,
	}
}
