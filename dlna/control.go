package dlna

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"GoRender/types"
)

const (
	// 默认HTTP请求超时
	defaultHTTPTimeout = 5 * time.Second
	// 响应体读取上限
	maxResponseSize = 1 << 20
)

// Client 控制点侧的 UPnP 客户端：获取设备描述并调用 SOAP 动作
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient 创建客户端，timeout 为 0 时使用默认超时
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// FetchDescription 获取并解析 location 指向的设备描述
func (c *Client) FetchDescription(ctx context.Context, location string) (types.DeviceDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return types.DeviceDescriptor{}, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.DeviceDescriptor{}, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.DeviceDescriptor{}, fmt.Errorf("获取设备描述失败，状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return types.DeviceDescriptor{}, fmt.Errorf("读取响应体失败: %w", err)
	}
	return ParseDescription(body)
}

// Invoke 调用一个 SOAP 动作并返回输出参数
// 设备返回 SOAP Fault 时错误为 *UPnPError
func (c *Client) Invoke(ctx context.Context, controlURL, serviceType, action string, args []Arg) (map[string]string, error) {
	body := EncodeRequest(serviceType, action, args)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建SOAP请求失败: %w", err)
	}

	// 设置SOAP请求头
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf(`"%s#%s"`, serviceType, action))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送SOAP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("读取SOAP响应失败: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusInternalServerError:
		upnpErr, err := ParseFault(respBody)
		if err != nil {
			return nil, fmt.Errorf("SOAP请求失败: %s, 状态码: %d: %w", action, resp.StatusCode, err)
		}
		c.logger.Debug("SOAP动作返回错误", "action", action, "code", upnpErr.Code)
		return nil, upnpErr
	default:
		// 仅记录前200个字符，避免日志过长
		preview := string(respBody[:min(previewSize, len(respBody))])
		c.logger.Warn("SOAP请求失败", "action", action, "status", resp.StatusCode, "preview", preview)
		return nil, fmt.Errorf("SOAP请求失败: %s, 状态码: %d", action, resp.StatusCode)
	}

	result, err := ParseEnvelope(respBody)
	if err != nil {
		return nil, err
	}
	if result.Name != action+responseSuffix {
		return nil, fmt.Errorf("%w: 期望 %s%s，实际 %s", ErrMalformedEnvelope, action, responseSuffix, result.Name)
	}
	c.logger.Debug("SOAP请求成功", "action", action)
	return result.Args, nil
}

// ResolveURL 将描述文档中的相对地址解析为绝对地址
func ResolveURL(location, ref string) (string, error) {
	base, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("解析设备地址失败: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("解析服务地址失败: %w", err)
	}
	return base.ResolveReference(r).String(), nil
}
