package service

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"GoRender/dlna"
	"GoRender/renderer"
)

// instanceID 解析 InstanceID，只支持实例 0
// 非数字返回 402，非 0 返回 invalid
func instanceID(args Args, invalid *dlna.UPnPError) error {
	v, err := strconv.ParseUint(args["InstanceID"], 10, 32)
	if err != nil {
		return fmt.Errorf("InstanceID %q: %w", args["InstanceID"], dlna.ErrInvalidArgs)
	}
	if v != 0 {
		return invalid
	}
	return nil
}

// mediaURI 解析媒体地址，必须是带 scheme 的绝对地址
func mediaURI(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("媒体地址为空: %w", dlna.ErrInvalidArgs)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", dlna.ErrResourceNotFound
	}
	return raw, nil
}

// probeable 只探测 http/https 地址，其他协议可能指向本机文件或 ffmpeg 伪协议
func probeable(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

// channel 校验声道名
func channel(args Args, channels []string) (string, error) {
	ch := args["Channel"]
	if !slices.Contains(channels, ch) {
		return "", fmt.Errorf("未知声道 %q: %w", ch, dlna.ErrInvalidArgs)
	}
	return ch, nil
}

// volume 解析 ui2 音量值，无法解析返回 402，超出 [0,100] 返回 601
func volume(raw string) (int, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("音量 %q: %w", raw, dlna.ErrInvalidArgs)
	}
	if v > 100 {
		return 0, dlna.ErrArgumentOutOfRange
	}
	return int(v), nil
}

// boolean 解析 UPnP boolean，接受 0/1/true/false/yes/no
func boolean(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("布尔值 %q: %w", raw, dlna.ErrInvalidArgs)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// formatDuration 格式化为 H+:MM:SS
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}

// parseDuration 解析 H+:MM:SS[.F+] 或 H+:MM:SS[.F0/F1]
func parseDuration(raw string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("时间格式错误: %q", raw)
	}
	h, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("小时无效: %q", raw)
	}
	m, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || len(parts[1]) != 2 || m > 59 {
		return 0, fmt.Errorf("分钟无效: %q", raw)
	}

	sec, frac, _ := strings.Cut(parts[2], ".")
	s, err := strconv.ParseUint(sec, 10, 8)
	if err != nil || len(sec) != 2 || s > 59 {
		return 0, fmt.Errorf("秒无效: %q", raw)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second

	if frac != "" {
		fd, err := fraction(frac)
		if err != nil {
			return 0, fmt.Errorf("小数部分无效: %q", raw)
		}
		d += fd
	}
	return d, nil
}

// fraction 解析秒的小数部分，支持十进制和 F0/F1 分数形式
func fraction(raw string) (time.Duration, error) {
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err := strconv.ParseUint(num, 10, 32)
		if err != nil {
			return 0, err
		}
		q, err := strconv.ParseUint(den, 10, 32)
		if err != nil || q == 0 || n >= q {
			return 0, errors.New("invalid fraction")
		}
		return time.Duration(n) * time.Second / time.Duration(q), nil
	}
	if strings.Trim(raw, "0123456789") != "" {
		return 0, errors.New("invalid fraction")
	}
	f, err := strconv.ParseFloat("0."+raw, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

// mapRendererError 将渲染器错误映射为 UPnP 错误
func mapRendererError(err error) error {
	switch {
	case errors.Is(err, renderer.ErrTransitionNotAvailable):
		return dlna.ErrTransitionNotAvailable
	case errors.Is(err, renderer.ErrIllegalSeekTarget), errors.Is(err, renderer.ErrNoMedia):
		return dlna.ErrIllegalSeekTarget
	case errors.Is(err, renderer.ErrUnknownChannel):
		return dlna.ErrInvalidArgs
	case errors.Is(err, renderer.ErrVolumeOutOfRange):
		return dlna.ErrArgumentOutOfRange
	}
	var ue *dlna.UPnPError
	if errors.As(err, &ue) {
		return err
	}
	return fmt.Errorf("%w: %v", dlna.ErrActionFailed, err)
}
