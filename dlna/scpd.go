package dlna

import (
	"encoding/xml"
	"fmt"
)

// 参数方向
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// SCPD 服务控制协议描述
type SCPD struct {
	XMLName        xml.Name        `xml:"urn:schemas-upnp-org:service-1-0 scpd"`
	SpecVersion    SpecVersion     `xml:"specVersion"`
	Actions        []SCPDAction    `xml:"actionList>action"`
	StateVariables []StateVariable `xml:"serviceStateTable>stateVariable"`
}

// SCPDAction 动作声明
type SCPDAction struct {
	Name      string
	Arguments []SCPDArgument
}

// SCPDArgument 动作参数声明
type SCPDArgument struct {
	Name                 string `xml:"name"`
	Direction            string `xml:"direction"`
	RelatedStateVariable string `xml:"relatedStateVariable"`
}

// StateVariable 状态变量声明
type StateVariable struct {
	SendEvents        string
	Name              string
	DataType          string
	DefaultValue      string
	AllowedValues     []string
	AllowedValueRange *AllowedValueRange
}

// AllowedValueRange 数值范围约束
type AllowedValueRange struct {
	Minimum int `xml:"minimum"`
	Maximum int `xml:"maximum"`
	Step    int `xml:"step,omitempty"`
}

// 列表元素使用指针包装，空列表时整个父元素省略
// encoding/xml 的 a>b 路径即使带 omitempty 也会写出空父元素
type argumentList struct {
	Arguments []SCPDArgument `xml:"argument"`
}

type allowedValueList struct {
	Values []string `xml:"allowedValue"`
}

type scpdActionElement struct {
	Name      string        `xml:"name"`
	Arguments *argumentList `xml:"argumentList,omitempty"`
}

type stateVariableElement struct {
	SendEvents        string             `xml:"sendEvents,attr"`
	Name              string             `xml:"name"`
	DataType          string             `xml:"dataType"`
	DefaultValue      string             `xml:"defaultValue,omitempty"`
	AllowedValues     *allowedValueList  `xml:"allowedValueList,omitempty"`
	AllowedValueRange *AllowedValueRange `xml:"allowedValueRange,omitempty"`
}

func (a SCPDAction) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	el := scpdActionElement{Name: a.Name}
	if len(a.Arguments) > 0 {
		el.Arguments = &argumentList{Arguments: a.Arguments}
	}
	return e.EncodeElement(el, start)
}

func (a *SCPDAction) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var el scpdActionElement
	if err := d.DecodeElement(&el, &start); err != nil {
		return err
	}
	*a = SCPDAction{Name: el.Name}
	if el.Arguments != nil {
		a.Arguments = el.Arguments.Arguments
	}
	return nil
}

// MarshalXML 数值范围与枚举列表互斥，设置了范围时只输出范围
func (v StateVariable) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	el := stateVariableElement{
		SendEvents:        v.SendEvents,
		Name:              v.Name,
		DataType:          v.DataType,
		DefaultValue:      v.DefaultValue,
		AllowedValueRange: v.AllowedValueRange,
	}
	if len(v.AllowedValues) > 0 && v.AllowedValueRange == nil {
		el.AllowedValues = &allowedValueList{Values: v.AllowedValues}
	}
	return e.EncodeElement(el, start)
}

func (v *StateVariable) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var el stateVariableElement
	if err := d.DecodeElement(&el, &start); err != nil {
		return err
	}
	*v = StateVariable{
		SendEvents:        el.SendEvents,
		Name:              el.Name,
		DataType:          el.DataType,
		DefaultValue:      el.DefaultValue,
		AllowedValueRange: el.AllowedValueRange,
	}
	if el.AllowedValues != nil {
		v.AllowedValues = el.AllowedValues.Values
	}
	return nil
}

// BuildSCPD 生成服务描述XML
func BuildSCPD(actions []SCPDAction, vars []StateVariable) ([]byte, error) {
	doc := SCPD{
		SpecVersion:    SpecVersion{Major: specMajor, Minor: specMinor},
		Actions:        actions,
		StateVariables: vars,
	}
	return marshalDocument(doc)
}

// ParseSCPD 解析服务描述XML
func ParseSCPD(data []byte) (*SCPD, error) {
	var doc SCPD
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析服务描述失败: %w", err)
	}
	return &doc, nil
}

// Action 按名称查找动作声明
func (s *SCPD) Action(name string) (SCPDAction, bool) {
	for _, a := range s.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return SCPDAction{}, false
}
