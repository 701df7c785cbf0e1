package interfaces

import (
	"context"

	"GoRender/renderer"
	"GoRender/types"
)

// Announcer SSDP 通知发送接口
type Announcer interface {
	// Alive 发送 ssdp:alive 通知
	Alive(nt, usn string) error
	// Bye 发送 ssdp:byebye 通知
	Bye(nt, usn string) error
}

// MediaProber 媒体探测接口
type MediaProber interface {
	// Probe 探测媒体URI，返回时长等信息
	Probe(ctx context.Context, uri string) (types.MediaInfo, error)
}

// Invocation 在渲染器状态锁内执行的提交函数
// 返回新快照和输出参数；返回错误时状态保持不变
type Invocation func(current renderer.Snapshot) (next renderer.Snapshot, out map[string]string, err error)

// ServiceHandler 服务处理接口，每个 UPnP 服务实现一个
type ServiceHandler interface {
	// Descriptor 返回服务描述
	Descriptor() types.ServiceDescriptor
	// Prepare 在锁外解码并校验参数，返回锁内执行的提交函数
	Prepare(ctx context.Context, action string, args map[string]string) (Invocation, error)
	// Outputs 返回动作输出参数的声明顺序
	Outputs(action string) []string
	// SCPD 返回服务控制协议描述文档
	SCPD() ([]byte, error)
}
