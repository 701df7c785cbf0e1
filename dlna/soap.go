package dlna

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SOAP 相关命名空间
const (
	soapEnvelopeNS  = "http://schemas.xmlsoap.org/soap/envelope/"
	soapEncodingNS  = "http://schemas.xmlsoap.org/soap/encoding/"
	upnpControlNS   = "urn:schemas-upnp-org:control-1-0"
	responseSuffix  = "Response"
	soapFaultCode   = "s:Client"
	soapFaultString = "UPnPError"
)

// 信封模板，与控制点发送的格式一致
const (
	envelopeHead = `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="` + soapEnvelopeNS + `" s:encodingStyle="` + soapEncodingNS + `">
  <s:Body>
`
	envelopeTail = `  </s:Body>
</s:Envelope>`

	faultTemplate = `    <s:Fault>
      <faultcode>` + soapFaultCode + `</faultcode>
      <faultstring>` + soapFaultString + `</faultstring>
      <detail>
        <UPnPError xmlns="` + upnpControlNS + `">
          <errorCode>%d</errorCode>
          <errorDescription>%s</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
`
)

// ErrMalformedEnvelope SOAP 信封无法解析
var ErrMalformedEnvelope = errors.New("dlna: malformed SOAP envelope")

// Arg 一个有序的动作参数
type Arg struct {
	Name  string
	Value string
}

// Action 解析后的 SOAP 动作
type Action struct {
	ServiceType string
	Name        string
	Args        map[string]string
}

type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Content []actionElement `xml:",any"`
	} `xml:"Body"`
}

type actionElement struct {
	XMLName xml.Name
	Args    []argElement `xml:",any"`
}

type argElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// ParseEnvelope 解析 SOAP 信封，Body 下第一个元素为动作，其子元素为参数
func ParseEnvelope(data []byte) (*Action, error) {
	var env envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.XMLName.Space != "" && env.XMLName.Space != soapEnvelopeNS {
		return nil, fmt.Errorf("%w: 未知的信封命名空间 %q", ErrMalformedEnvelope, env.XMLName.Space)
	}
	if len(env.Body.Content) != 1 {
		return nil, fmt.Errorf("%w: Body 中应有且仅有一个动作元素，实际 %d 个", ErrMalformedEnvelope, len(env.Body.Content))
	}

	el := env.Body.Content[0]
	action := &Action{
		ServiceType: el.XMLName.Space,
		Name:        el.XMLName.Local,
		Args:        make(map[string]string, len(el.Args)),
	}
	for _, a := range el.Args {
		if _, dup := action.Args[a.XMLName.Local]; dup {
			return nil, fmt.Errorf("%w: 参数 %s 重复", ErrMalformedEnvelope, a.XMLName.Local)
		}
		action.Args[a.XMLName.Local] = strings.TrimSpace(a.Value)
	}
	return action, nil
}

// EncodeRequest 序列化动作请求信封
func EncodeRequest(serviceType, action string, args []Arg) []byte {
	return encodeAction(serviceType, action, args)
}

// EncodeResponse 序列化成功响应信封，输出参数按给定顺序排列
func EncodeResponse(serviceType, action string, args []Arg) []byte {
	return encodeAction(serviceType, action+responseSuffix, args)
}

func encodeAction(serviceType, element string, args []Arg) []byte {
	var buf bytes.Buffer
	buf.WriteString(envelopeHead)
	fmt.Fprintf(&buf, "    <u:%s xmlns:u=\"%s\">\n", element, escape(serviceType))
	for _, a := range args {
		fmt.Fprintf(&buf, "      <%s>%s</%s>\n", a.Name, escape(a.Value), a.Name)
	}
	fmt.Fprintf(&buf, "    </u:%s>\n", element)
	buf.WriteString(envelopeTail)
	return buf.Bytes()
}

// EncodeFault 序列化 SOAP Fault 信封
func EncodeFault(e *UPnPError) []byte {
	var buf bytes.Buffer
	buf.WriteString(envelopeHead)
	fmt.Fprintf(&buf, faultTemplate, e.Code, escape(e.Description))
	buf.WriteString(envelopeTail)
	return buf.Bytes()
}

type faultEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Fault   struct {
		FaultCode   string `xml:"faultcode"`
		FaultString string `xml:"faultstring"`
		Detail      struct {
			UPnPError struct {
				ErrorCode        string `xml:"errorCode"`
				ErrorDescription string `xml:"errorDescription"`
			} `xml:"UPnPError"`
		} `xml:"detail"`
	} `xml:"Body>Fault"`
}

// ParseFault 从 SOAP Fault 信封中提取 UPnP 错误
func ParseFault(data []byte) (*UPnPError, error) {
	var env faultEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	detail := env.Fault.Detail.UPnPError
	code, err := strconv.Atoi(strings.TrimSpace(detail.ErrorCode))
	if err != nil {
		return nil, fmt.Errorf("%w: 无效的错误码 %q", ErrMalformedEnvelope, detail.ErrorCode)
	}
	return NewError(code, strings.TrimSpace(detail.ErrorDescription)), nil
}

func escape(s string) string {
	var b strings.Builder
	// 写入 strings.Builder 不会失败
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
