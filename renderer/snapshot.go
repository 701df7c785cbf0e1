package renderer

import (
	"maps"
	"time"
)

// Master 主声道
const Master = "Master"

// Media 一个媒体条目
type Media struct {
	URI      string
	MetaData string
	Duration time.Duration // 0表示未知
}

// Empty 是否为空
func (m Media) Empty() bool {
	return m.URI == ""
}

// Snapshot 渲染器状态快照（实例0）
// 通过 State.Snapshot 取得的值与内部状态不共享任何可变数据
type Snapshot struct {
	Transport TransportState
	Speed     string
	Current   Media
	Next      Media
	Previous  Media

	Volume map[string]int
	Mute   map[string]bool

	// 已累计的播放位置，PLAYING 时再加上 playingSince 起的时长
	position     time.Duration
	playingSince time.Time
}

// Clone 深拷贝
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Volume = maps.Clone(s.Volume)
	c.Mute = maps.Clone(s.Mute)
	return c
}

// Position 返回 now 时刻的播放位置，已知时长时不超过时长
func (s Snapshot) Position(now time.Time) time.Duration {
	p := s.position
	if s.Transport == Playing && !s.playingSince.IsZero() {
		p += now.Sub(s.playingSince)
	}
	if s.Current.Duration > 0 && p > s.Current.Duration {
		p = s.Current.Duration
	}
	if p < 0 {
		p = 0
	}
	return p
}

// move 执行一次迁移；Play 经过 TRANSITIONING 并在同一次调用内完成
func (s Snapshot) move(action string, now time.Time) (Snapshot, error) {
	to, err := Target(s.Transport, action)
	if err != nil {
		return s, err
	}
	next := s.Clone()
	if next.Transport == Playing && to != Playing {
		next.position = s.Position(now)
		next.playingSince = time.Time{}
	}
	if viaTransitioning[action] {
		next.Transport = Transitioning
	}
	if to == Playing && s.Transport != Playing {
		next.playingSince = now
	}
	next.Transport = to
	return next, nil
}

// SetURI 替换当前媒体并停止播放
func (s Snapshot) SetURI(m Media, now time.Time) (Snapshot, error) {
	next, err := s.move(ActionSetURI, now)
	if err != nil {
		return s, err
	}
	if !s.Current.Empty() && s.Current.URI != m.URI {
		next.Previous = s.Current
	}
	next.Current = m
	next.position = 0
	next.playingSince = time.Time{}
	return next, nil
}

// SetNextURI 记录下一个媒体
func (s Snapshot) SetNextURI(m Media, now time.Time) (Snapshot, error) {
	next, err := s.move(ActionSetNextURI, now)
	if err != nil {
		return s, err
	}
	next.Next = m
	return next, nil
}

// Play 开始或恢复播放
func (s Snapshot) Play(speed string, now time.Time) (Snapshot, error) {
	next, err := s.move(ActionPlay, now)
	if err != nil {
		return s, err
	}
	next.Speed = speed
	return next, nil
}

// Pause 暂停播放
func (s Snapshot) Pause(now time.Time) (Snapshot, error) {
	return s.move(ActionPause, now)
}

// Stop 停止播放，位置归零
func (s Snapshot) Stop(now time.Time) (Snapshot, error) {
	next, err := s.move(ActionStop, now)
	if err != nil {
		return s, err
	}
	next.position = 0
	return next, nil
}

// Seek 跳转到指定位置
func (s Snapshot) Seek(target time.Duration, now time.Time) (Snapshot, error) {
	next, err := s.move(ActionSeek, now)
	if err != nil {
		return s, err
	}
	if target < 0 || (s.Current.Duration > 0 && target > s.Current.Duration) {
		return s, ErrIllegalSeekTarget
	}
	next.position = target
	if next.Transport == Playing {
		next.playingSince = now
	}
	return next, nil
}

// SkipNext 切换到已记录的下一个媒体
func (s Snapshot) SkipNext(now time.Time) (Snapshot, error) {
	next, err := s.move(ActionNext, now)
	if err != nil {
		return s, err
	}
	if s.Next.Empty() {
		return s, ErrNoMedia
	}
	next.Previous = s.Current
	next.Current = s.Next
	next.Next = Media{}
	next.restart(now)
	return next, nil
}

// SkipPrevious 切换回被替换的上一个媒体
func (s Snapshot) SkipPrevious(now time.Time) (Snapshot, error) {
	next, err := s.move(ActionPrevious, now)
	if err != nil {
		return s, err
	}
	if s.Previous.Empty() {
		return s, ErrNoMedia
	}
	next.Next = s.Current
	next.Current = s.Previous
	next.Previous = Media{}
	next.restart(now)
	return next, nil
}

// AvailableActions 返回当前允许的传输动作，没有可切换的媒体时不列出 Next/Previous
func (s Snapshot) AvailableActions() []string {
	var out []string
	for _, a := range currentActionOrder {
		if _, ok := transitions[s.Transport][a]; !ok {
			continue
		}
		if (a == ActionNext && s.Next.Empty()) || (a == ActionPrevious && s.Previous.Empty()) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Snapshot) restart(now time.Time) {
	s.position = 0
	if s.Transport == Playing {
		s.playingSince = now
	}
}

// SetVolume 设置声道音量
func (s Snapshot) SetVolume(channel string, volume int) (Snapshot, error) {
	if _, ok := s.Volume[channel]; !ok {
		return s, ErrUnknownChannel
	}
	if volume < 0 || volume > 100 {
		return s, ErrVolumeOutOfRange
	}
	next := s.Clone()
	next.Volume[channel] = volume
	return next, nil
}

// SetMute 设置声道静音
func (s Snapshot) SetMute(channel string, mute bool) (Snapshot, error) {
	if _, ok := s.Mute[channel]; !ok {
		return s, ErrUnknownChannel
	}
	next := s.Clone()
	next.Mute[channel] = mute
	return next, nil
}

// ResetRendering 恢复出厂音量并取消所有静音
func (s Snapshot) ResetRendering(volume int) Snapshot {
	next := s.Clone()
	for ch := range next.Volume {
		next.Volume[ch] = volume
	}
	for ch := range next.Mute {
		next.Mute[ch] = false
	}
	return next
}
