package dlna

import (
	"encoding/xml"
	"fmt"

	"GoRender/types"
)

const (
	specMajor   = 1
	specMinor   = 0
	previewSize = 200
)

// SpecVersion UPnP 架构版本
type SpecVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

type serviceEntry struct {
	ServiceType string `xml:"serviceType"`
	ServiceID   string `xml:"serviceId"`
	SCPDURL     string `xml:"SCPDURL"`
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
}

// deviceDescription 设备描述文档
type deviceDescription struct {
	XMLName     xml.Name    `xml:"urn:schemas-upnp-org:device-1-0 root"`
	SpecVersion SpecVersion `xml:"specVersion"`
	Device      struct {
		DeviceType       string         `xml:"deviceType"`
		FriendlyName     string         `xml:"friendlyName"`
		Manufacturer     string         `xml:"manufacturer"`
		ManufacturerURL  string         `xml:"manufacturerURL,omitempty"`
		ModelDescription string         `xml:"modelDescription,omitempty"`
		ModelName        string         `xml:"modelName"`
		ModelNumber      string         `xml:"modelNumber,omitempty"`
		ModelURL         string         `xml:"modelURL,omitempty"`
		SerialNumber     string         `xml:"serialNumber,omitempty"`
		UDN              string         `xml:"UDN"`
		ServiceList      []serviceEntry `xml:"serviceList>service"`
	} `xml:"device"`
}

// BuildDescription 生成设备描述XML
func BuildDescription(d types.DeviceDescriptor) ([]byte, error) {
	var desc deviceDescription
	desc.SpecVersion = SpecVersion{Major: specMajor, Minor: specMinor}
	desc.Device.DeviceType = d.DeviceType
	desc.Device.FriendlyName = d.FriendlyName
	desc.Device.Manufacturer = d.Manufacturer
	desc.Device.ManufacturerURL = d.ManufacturerURL
	desc.Device.ModelDescription = d.ModelDescription
	desc.Device.ModelName = d.ModelName
	desc.Device.ModelNumber = d.ModelNumber
	desc.Device.ModelURL = d.ModelURL
	desc.Device.SerialNumber = d.SerialNumber
	desc.Device.UDN = d.UDN

	desc.Device.ServiceList = make([]serviceEntry, len(d.ServiceList))
	for i, s := range d.ServiceList {
		svc := &desc.Device.ServiceList[i]
		svc.ServiceType = s.ServiceType
		svc.ServiceID = s.ServiceID
		svc.SCPDURL = s.SCPDURL
		svc.ControlURL = s.ControlURL
		svc.EventSubURL = s.EventSubURL
	}

	return marshalDocument(desc)
}

// ParseDescription 解析设备描述XML
func ParseDescription(data []byte) (types.DeviceDescriptor, error) {
	var desc deviceDescription
	if err := xml.Unmarshal(data, &desc); err != nil {
		// 仅记录前200个字符，避免错误信息过长
		preview := string(data[:min(previewSize, len(data))])
		return types.DeviceDescriptor{}, fmt.Errorf("解析设备描述失败: %w\n数据预览: %s...", err, preview)
	}

	d := types.DeviceDescriptor{
		UDN:              desc.Device.UDN,
		DeviceType:       desc.Device.DeviceType,
		FriendlyName:     desc.Device.FriendlyName,
		Manufacturer:     desc.Device.Manufacturer,
		ManufacturerURL:  desc.Device.ManufacturerURL,
		ModelDescription: desc.Device.ModelDescription,
		ModelName:        desc.Device.ModelName,
		ModelNumber:      desc.Device.ModelNumber,
		ModelURL:         desc.Device.ModelURL,
		SerialNumber:     desc.Device.SerialNumber,
	}
	for _, s := range desc.Device.ServiceList {
		d.ServiceList = append(d.ServiceList, types.ServiceDescriptor{
			ServiceType: s.ServiceType,
			ServiceID:   s.ServiceID,
			SCPDURL:     s.SCPDURL,
			ControlURL:  s.ControlURL,
			EventSubURL: s.EventSubURL,
		})
	}
	return d, nil
}

func marshalDocument(v any) ([]byte, error) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化XML失败: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
