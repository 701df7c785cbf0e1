package discovery

import (
	"fmt"
	"net"
	"strconv"

	"github.com/koron/go-ssdp"

	"GoRender/interfaces"
)

// MulticastAnnouncer 通过 go-ssdp 向组播地址发送 NOTIFY
type MulticastAnnouncer struct {
	location  string
	server    string
	maxAge    int
	localAddr string
	ttl       int
}

// NewMulticastAnnouncer 创建通知发送器，bindIP 为空时由系统选择所有组播接口
func NewMulticastAnnouncer(location, server string, maxAge, ttl int, bindIP string) *MulticastAnnouncer {
	localAddr := ""
	if bindIP != "" {
		localAddr = net.JoinHostPort(bindIP, strconv.Itoa(0))
	}
	return &MulticastAnnouncer{
		location:  location,
		server:    server,
		maxAge:    maxAge,
		localAddr: localAddr,
		ttl:       ttl,
	}
}

// Alive 发送 ssdp:alive
func (a *MulticastAnnouncer) Alive(nt, usn string) error {
	if err := ssdp.AnnounceAlive(nt, usn, a.location, a.server, a.maxAge, a.localAddr, a.options()...); err != nil {
		return fmt.Errorf("发送alive通知失败 %s: %w", nt, err)
	}
	return nil
}

// Bye 发送 ssdp:byebye
func (a *MulticastAnnouncer) Bye(nt, usn string) error {
	if err := ssdp.AnnounceBye(nt, usn, a.localAddr, a.options()...); err != nil {
		return fmt.Errorf("发送byebye通知失败 %s: %w", nt, err)
	}
	return nil
}

func (a *MulticastAnnouncer) options() []ssdp.Option {
	if a.ttl <= 0 {
		return nil
	}
	return []ssdp.Option{ssdp.TTL(a.ttl)}
}

var _ interfaces.Announcer = (*MulticastAnnouncer)(nil)
