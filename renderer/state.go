package renderer

import (
	"fmt"
	"sync"
	"time"
)

// DefaultChannels 支持的声道
var DefaultChannels = []string{Master, "LF", "RF"}

// Options 渲染器状态初始化参数
type Options struct {
	Volume   int
	Channels []string
	// Clock 用于测试注入，默认 time.Now
	Clock func() time.Time
}

// State 渲染器状态，所有读写经由互斥锁串行化
type State struct {
	mu    sync.Mutex
	cur   Snapshot
	clock func() time.Time
}

// New 创建初始状态：NO_MEDIA_PRESENT，默认音量，不静音
func New(opts Options) *State {
	channels := opts.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	snap := Snapshot{
		Transport: NoMediaPresent,
		Speed:     "1",
		Volume:    make(map[string]int, len(channels)),
		Mute:      make(map[string]bool, len(channels)),
	}
	for _, ch := range channels {
		snap.Volume[ch] = opts.Volume
		snap.Mute[ch] = false
	}
	return &State{cur: snap, clock: clock}
}

// Now 返回状态机使用的当前时间
func (s *State) Now() time.Time {
	return s.clock()
}

// Snapshot 返回当前状态的只读副本
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// Apply 在锁内对当前快照执行 fn，仅在成功时提交新快照
// fn 内不得进行任何 I/O
func (s *State) Apply(action string, fn func(Snapshot) (Snapshot, error)) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cur.Clone())
	if err != nil {
		return s.cur.Clone(), err
	}
	if next.Transport == Transitioning {
		return s.cur.Clone(), fmt.Errorf("%s: %w", action, ErrPendingTransition)
	}
	s.cur = next
	return next.Clone(), nil
}
