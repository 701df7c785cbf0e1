package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"GoRender/interfaces"
	"GoRender/types"
)

const (
	ffprobeBinary   = "ffprobe"
	defaultCacheTTL = 24 * time.Hour
)

// ErrFFprobeNotFound 系统未安装 ffprobe
var ErrFFprobeNotFound = errors.New("未找到ffprobe，请先安装FFmpeg")

// Runner 执行外部命令并返回标准输出，测试中可替换
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options 探测器参数
type Options struct {
	// CacheTTL 探测结果缓存时间，默认24小时
	CacheTTL time.Duration
	// MaxConcurrent 同时运行的 ffprobe 数量，默认 CPU 核心数的一半
	MaxConcurrent int
	Runner        Runner
	Logger        *slog.Logger
}

type cacheEntry struct {
	info   types.MediaInfo
	expiry time.Time
}

// Prober 使用 ffprobe 获取媒体时长与编码信息
type Prober struct {
	run    Runner
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	// 缓存探测结果以避免重复启动进程
	cache      map[string]cacheEntry
	cacheMutex sync.Mutex
	// 限制并发探测数量
	semaphore chan struct{}
}

// CheckFFprobe 检查系统是否安装了 ffprobe
func CheckFFprobe() bool {
	_, err := exec.LookPath(ffprobeBinary)
	return err == nil
}

// NewProber 创建探测器
func NewProber(opts Options) *Prober {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = runtime.NumCPU() / 2
		if maxConcurrent < 1 {
			maxConcurrent = 1
		}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	run := opts.Runner
	if run == nil {
		run = execRunner
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		run:       run,
		ttl:       ttl,
		logger:    logger.With("component", "prober"),
		now:       time.Now,
		cache:     make(map[string]cacheEntry),
		semaphore: make(chan struct{}, maxConcurrent),
	}
}

// Probe 探测媒体地址，ctx 控制超时与取消
func (p *Prober) Probe(ctx context.Context, uri string) (types.MediaInfo, error) {
	if info, ok := p.cached(uri); ok {
		return info, nil
	}

	// 获取信号量
	select {
	case p.semaphore <- struct{}{}:
	case <-ctx.Done():
		return types.MediaInfo{}, ctx.Err()
	}
	defer func() { <-p.semaphore }()

	out, err := p.run(ctx, ffprobeBinary,
		"-v", "error",
		"-protocol_whitelist", "http,https,tcp,tls",
		"-show_entries", "format=duration:stream=codec_type,codec_name",
		"-of", "default=noprint_wrappers=1",
		uri)
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("获取媒体信息失败: %w", err)
	}

	info := parseProbeOutput(out)
	p.store(uri, info)
	p.logger.Debug("媒体探测完成", "uri", uri, "duration", info.Duration,
		"video_codec", info.VideoCodec, "audio_codec", info.AudioCodec)
	return info, nil
}

// Cleanup 清空缓存
func (p *Prober) Cleanup() {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache = make(map[string]cacheEntry)
}

func (p *Prober) cached(uri string) (types.MediaInfo, bool) {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()

	// 先清理过期缓存
	p.cleanupExpiredCache()

	e, ok := p.cache[uri]
	return e.info, ok
}

func (p *Prober) store(uri string, info types.MediaInfo) {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache[uri] = cacheEntry{info: info, expiry: p.now().Add(p.ttl)}
}

// 调用方持有 cacheMutex
func (p *Prober) cleanupExpiredCache() {
	now := p.now()
	for key, e := range p.cache {
		if now.After(e.expiry) {
			delete(p.cache, key)
		}
	}
}

// parseProbeOutput 解析 key=value 形式的 ffprobe 输出
// 每个流依次输出 codec_name 和 codec_type，format 段输出 duration
func parseProbeOutput(out []byte) types.MediaInfo {
	var info types.MediaInfo
	var codec string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "codec_name":
			codec = value
		case "codec_type":
			switch {
			case value == "video" && info.VideoCodec == "":
				info.VideoCodec = codec
			case value == "audio" && info.AudioCodec == "":
				info.AudioCodec = codec
			}
			codec = ""
		case "duration":
			if d, err := strconv.ParseFloat(value, 64); err == nil && d > 0 {
				info.Duration = d
			}
		}
	}
	return info
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrFFprobeNotFound
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w, 输出: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

var _ interfaces.MediaProber = (*Prober)(nil)
