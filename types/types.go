package types

import "fmt"

// UPnP 设备与服务类型
const (
	// MediaRenderer 设备类型
	DeviceTypeMediaRenderer = "urn:schemas-upnp-org:device:MediaRenderer:1"
	// AVTransport 服务类型
	ServiceTypeAVTransport = "urn:schemas-upnp-org:service:AVTransport:1"
	// RenderingControl 服务类型
	ServiceTypeRenderingControl = "urn:schemas-upnp-org:service:RenderingControl:1"
	// ConnectionManager 服务类型
	ServiceTypeConnectionManager = "urn:schemas-upnp-org:service:ConnectionManager:1"

	// 设备描述文档路径
	DescriptionPath = "/description.xml"
)

// DeviceDescriptor 描述渲染器设备，启动后只读
type DeviceDescriptor struct {
	UDN              string
	DeviceType       string
	FriendlyName     string
	Manufacturer     string
	ManufacturerURL  string
	ModelDescription string
	ModelName        string
	ModelNumber      string
	ModelURL         string
	SerialNumber     string
	ServiceList      []ServiceDescriptor
}

// ServiceDescriptor 描述设备提供的一个服务
type ServiceDescriptor struct {
	ServiceType string
	ServiceID   string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
}

// NewServiceDescriptor 按固定路径规则生成服务描述，name 为服务短名（如 AVTransport）
func NewServiceDescriptor(name, serviceType string) ServiceDescriptor {
	return ServiceDescriptor{
		ServiceType: serviceType,
		ServiceID:   "urn:upnp-org:serviceId:" + name,
		SCPDURL:     fmt.Sprintf("/%s/scpd.xml", name),
		ControlURL:  fmt.Sprintf("/%s/control", name),
		EventSubURL: fmt.Sprintf("/%s/event", name),
	}
}

// ServiceTypes 返回设备所有服务类型，保持 serviceList 顺序
func (d DeviceDescriptor) ServiceTypes() []string {
	out := make([]string, 0, len(d.ServiceList))
	for _, s := range d.ServiceList {
		out = append(out, s.ServiceType)
	}
	return out
}

// MediaInfo 媒体探测结果
type MediaInfo struct {
	Duration   float64 // 秒，未知时为0
	VideoCodec string
	AudioCodec string
}
