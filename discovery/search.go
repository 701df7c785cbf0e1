package discovery

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/koron/go-ssdp"

	"GoRender/dlna"
	"GoRender/types"
)

// DeviceInfo 存储发现的设备信息
type DeviceInfo struct {
	USN          string
	Location     string
	Server       string
	FriendlyName string
	UDN          string
	DeviceType   string
}

// SearchOptions 搜索参数
type SearchOptions struct {
	// Targets 依次搜索的 ST，默认搜索两个版本的 MediaRenderer
	Targets []string
	// Wait 每种目标的等待时间
	Wait time.Duration
	// LocalAddr 发送 M-SEARCH 的本地地址，为空时使用所有接口
	LocalAddr string
	Client    *dlna.Client
	Logger    *slog.Logger
}

// 默认搜索的设备类型
var defaultTargets = []string{
	types.DeviceTypeMediaRenderer,
	"urn:schemas-upnp-org:device:MediaRenderer:2",
}

// searchFunc 测试中替换
var searchFunc = ssdp.Search

// Search 搜索局域网中的设备，按 UDN 去重；描述获取失败的设备以基本信息返回
func Search(ctx context.Context, opts SearchOptions) ([]DeviceInfo, error) {
	targets := opts.Targets
	if len(targets) == 0 {
		targets = defaultTargets
	}
	wait := opts.Wait
	if wait < time.Second {
		wait = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = dlna.NewClient(2*time.Second, logger)
	}

	// 使用UDN作为键进行去重
	allDevices := make(map[string]DeviceInfo)
	// 每个Location只获取一次描述
	processedLocations := make(map[string]bool)

	for _, st := range targets {
		if err := ctx.Err(); err != nil {
			logger.Info("搜索已取消，返回已找到的设备", "reason", err)
			break
		}

		logger.Debug("开始搜索", "st", st, "wait", wait)
		results, err := searchFunc(st, int(wait.Seconds()), opts.LocalAddr)
		if err != nil {
			// 继续搜索下一种类型
			logger.Warn("搜索失败", "st", st, "error", err)
			continue
		}
		logger.Debug("搜索完成", "st", st, "responses", len(results))

		for _, r := range results {
			if processedLocations[r.Location] {
				continue
			}
			processedLocations[r.Location] = true

			device := DeviceInfo{
				USN:          r.USN,
				Location:     r.Location,
				Server:       r.Server,
				FriendlyName: r.Server,
			}
			key := r.USN

			desc, err := client.FetchDescription(ctx, r.Location)
			if err != nil {
				logger.Warn("无法获取设备详情，使用基本信息", "location", r.Location, "error", err)
			} else {
				device.UDN = desc.UDN
				device.DeviceType = desc.DeviceType
				if desc.FriendlyName != "" {
					device.FriendlyName = desc.FriendlyName
				}
				if desc.UDN != "" {
					key = desc.UDN
				}
			}

			if _, exists := allDevices[key]; exists {
				continue
			}
			allDevices[key] = device
			logger.Info("发现设备", "name", device.FriendlyName, "udn", device.UDN, "location", device.Location)
		}
	}

	devices := make([]DeviceInfo, 0, len(allDevices))
	for _, d := range allDevices {
		devices = append(devices, d)
	}
	slices.SortFunc(devices, func(a, b DeviceInfo) int {
		return cmp.Or(cmp.Compare(a.FriendlyName, b.FriendlyName), cmp.Compare(a.Location, b.Location))
	})
	return devices, nil
}
