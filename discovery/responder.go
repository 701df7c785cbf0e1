package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/koron/go-ssdp"
	"golang.org/x/net/ipv4"

	"GoRender/interfaces"
	"GoRender/types"
)

// SSDP 组播地址
const (
	MulticastAddress = "239.255.255.250"
	DefaultPort      = 1900

	defaultMX      = 1
	defaultMaxMX   = 5
	defaultMaxAge  = 1800
	maxDatagram    = 8192
	manDiscover    = `"ssdp:discover"`
	methodMSearch  = "M-SEARCH"
	readErrBackoff = 100 * time.Millisecond
)

// ResponderOptions SSDP 应答器参数
type ResponderOptions struct {
	Descriptor types.DeviceDescriptor
	// Location 设备描述文档的绝对地址
	Location    string
	ServerToken string
	// MaxAge CACHE-CONTROL 中的 max-age，秒
	MaxAge int
	// AnnounceInterval 周期性 alive 间隔，默认 MaxAge/2
	AnnounceInterval time.Duration
	// MaxMX M-SEARCH 中 MX 的上限
	MaxMX int
	// BindIP 组播接口所在的本机地址，为空时由系统选择
	BindIP string
	Port   int
	TTL    int

	Announcer interfaces.Announcer
	Logger    *slog.Logger
	// Delay 根据 MX 选择应答延迟，默认 [0, mx] 均匀分布
	Delay func(mx time.Duration) time.Duration
}

// target 一个通告目标
type target struct {
	nt  string
	usn string
}

// Responder 监听 M-SEARCH 并发送 NOTIFY 的 SSDP 应答器
type Responder struct {
	opts     ResponderOptions
	targets  []target
	logger   *slog.Logger
	interval time.Duration
	delay    func(time.Duration) time.Duration

	conn net.PacketConn

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	closed  bool
}

// NewResponder 创建应答器，通告目标在此一次性生成
func NewResponder(opts ResponderOptions) (*Responder, error) {
	if opts.Descriptor.UDN == "" {
		return nil, errors.New("discovery: 缺少设备UDN")
	}
	if opts.Location == "" {
		return nil, errors.New("discovery: 缺少描述文档地址")
	}
	if opts.Announcer == nil {
		return nil, errors.New("discovery: 缺少通知发送器")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultMaxAge
	}
	if opts.MaxMX <= 0 {
		opts.MaxMX = defaultMaxMX
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	interval := opts.AnnounceInterval
	if half := time.Duration(opts.MaxAge) * time.Second / 2; interval <= 0 || interval > half {
		interval = half
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.Delay
	if delay == nil {
		delay = randomDelay
	}

	return &Responder{
		opts:     opts,
		targets:  buildTargets(opts.Descriptor),
		logger:   logger.With("component", "ssdp"),
		interval: interval,
		delay:    delay,
		pending:  make(map[*time.Timer]struct{}),
	}, nil
}

// buildTargets 根设备、设备UDN、设备类型以及每个服务各一条
func buildTargets(d types.DeviceDescriptor) []target {
	out := []target{
		{nt: ssdp.RootDevice, usn: d.UDN + "::" + ssdp.RootDevice},
		{nt: d.UDN, usn: d.UDN},
		{nt: d.DeviceType, usn: d.UDN + "::" + d.DeviceType},
	}
	for _, st := range d.ServiceTypes() {
		out = append(out, target{nt: st, usn: d.UDN + "::" + st})
	}
	return out
}

// Listen 绑定组播端口并加入 SSDP 组，失败属于启动期致命错误
func (r *Responder) Listen() error {
	lc := net.ListenConfig{Control: reuseControl}
	addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(r.opts.Port))
	pc, err := lc.ListenPacket(context.Background(), "udp4", addr)
	if err != nil {
		return fmt.Errorf("SSDP监听 %s 失败: %w", addr, err)
	}

	ifi := interfaceByIP(r.opts.BindIP)
	p := ipv4.NewPacketConn(pc)
	group := &net.UDPAddr{IP: net.ParseIP(MulticastAddress)}
	if err := p.JoinGroup(ifi, group); err != nil {
		pc.Close()
		return fmt.Errorf("加入SSDP组播组失败: %w", err)
	}
	if ifi != nil {
		if err := p.SetMulticastInterface(ifi); err != nil {
			r.logger.Warn("设置组播接口失败", "interface", ifi.Name, "error", err)
		}
	}
	if err := p.SetMulticastLoopback(false); err != nil {
		r.logger.Warn("关闭组播回环失败", "error", err)
	}
	if r.opts.TTL > 0 {
		if err := p.SetMulticastTTL(r.opts.TTL); err != nil {
			r.logger.Warn("设置组播TTL失败", "ttl", r.opts.TTL, "error", err)
		}
	}

	r.conn = pc
	r.logger.Info("SSDP监听已建立", "addr", pc.LocalAddr().String(), "group", MulticastAddress)
	return nil
}

// Serve 发送初始 alive，处理 M-SEARCH 并周期性重新通告，ctx 结束时发送 byebye 后返回
func (r *Responder) Serve(ctx context.Context) error {
	if r.conn == nil {
		return errors.New("discovery: 尚未监听")
	}
	return r.serve(ctx, r.conn)
}

func (r *Responder) serve(ctx context.Context, conn net.PacketConn) error {
	r.announce(r.opts.Announcer.Alive, "ssdp:alive")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		r.readLoop(conn)
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			r.announce(r.opts.Announcer.Alive, "ssdp:alive")
		}
	}

	r.stopPending()
	conn.Close()
	<-readDone
	r.announce(r.opts.Announcer.Bye, "ssdp:byebye")
	r.logger.Info("SSDP应答器已停止")
	return nil
}

// announce 对全部目标发送一种 NOTIFY，单条失败只记录日志
func (r *Responder) announce(send func(nt, usn string) error, nts string) {
	failed := 0
	for _, t := range r.targets {
		if err := send(t.nt, t.usn); err != nil {
			failed++
			r.logger.Warn("发送NOTIFY失败", "nts", nts, "nt", t.nt, "error", err)
		}
	}
	r.logger.Debug("NOTIFY已发送", "nts", nts, "targets", len(r.targets), "failed", failed)
}

func (r *Responder) readLoop(conn net.PacketConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warn("读取SSDP数据报失败", "error", err)
			time.Sleep(readErrBackoff)
			continue
		}
		r.handleDatagram(conn, from, buf[:n])
	}
}

// handleDatagram 解析 M-SEARCH，不符合的数据报直接丢弃
func (r *Responder) handleDatagram(conn net.PacketConn, from net.Addr, data []byte) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		r.logger.Debug("丢弃无法解析的数据报", "from", from.String(), "error", err)
		return
	}
	if req.Method != methodMSearch {
		return
	}
	if req.Header.Get("MAN") != manDiscover {
		r.logger.Debug("丢弃MAN不正确的M-SEARCH", "from", from.String(), "man", req.Header.Get("MAN"))
		return
	}
	st := strings.TrimSpace(req.Header.Get("ST"))
	usn, ok := r.match(st)
	if !ok {
		return
	}
	mx, ok := r.parseMX(req.Header.Get("MX"))
	if !ok {
		r.logger.Debug("丢弃MX无效的M-SEARCH", "from", from.String(), "mx", req.Header.Get("MX"))
		return
	}

	resp := r.buildResponse(st, usn)
	r.schedule(r.delay(time.Duration(mx)*time.Second), func() {
		if _, err := conn.WriteTo(resp, from); err != nil && !errors.Is(err, net.ErrClosed) {
			r.logger.Warn("发送M-SEARCH应答失败", "to", from.String(), "error", err)
			return
		}
		r.logger.Debug("已应答M-SEARCH", "to", from.String(), "st", st)
	})
}

// match 返回搜索目标对应的 USN，ssdp:all 只应答一次
func (r *Responder) match(st string) (string, bool) {
	if st == ssdp.All {
		return r.targets[0].usn, true
	}
	for _, t := range r.targets {
		if t.nt == st {
			return t.usn, true
		}
	}
	return "", false
}

// parseMX 缺省为1，超过上限时截断
func (r *Responder) parseMX(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultMX, true
	}
	mx, err := strconv.Atoi(v)
	if err != nil || mx < 0 {
		return 0, false
	}
	return min(mx, r.opts.MaxMX), true
}

func (r *Responder) buildResponse(st, usn string) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&b, "CACHE-CONTROL: max-age=%d\r\n", r.opts.MaxAge)
	fmt.Fprintf(&b, "DATE: %s\r\n", time.Now().UTC().Format(http.TimeFormat))
	b.WriteString("EXT:\r\n")
	fmt.Fprintf(&b, "LOCATION: %s\r\n", r.opts.Location)
	fmt.Fprintf(&b, "SERVER: %s\r\n", r.opts.ServerToken)
	fmt.Fprintf(&b, "ST: %s\r\n", st)
	fmt.Fprintf(&b, "USN: %s\r\n", usn)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// schedule 延迟执行应答，停止后不再安排新的应答
func (r *Responder) schedule(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		delete(r.pending, t)
		r.mu.Unlock()
		fn()
	})
	r.pending[t] = struct{}{}
}

func (r *Responder) stopPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for t := range r.pending {
		t.Stop()
	}
	clear(r.pending)
}

func randomDelay(mx time.Duration) time.Duration {
	if mx <= 0 {
		return 0
	}
	return rand.N(mx + 1)
}

// interfaceByIP 查找持有该地址的网卡，找不到时返回 nil
func interfaceByIP(bindIP string) *net.Interface {
	ip := net.ParseIP(bindIP)
	if ip == nil || ip.IsUnspecified() {
		return nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
				return &ifaces[i]
			}
		}
	}
	return nil
}
