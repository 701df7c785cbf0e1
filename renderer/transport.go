package renderer

import "errors"

// TransportState AVTransport 传输状态
type TransportState string

const (
	NoMediaPresent TransportState = "NO_MEDIA_PRESENT"
	Stopped        TransportState = "STOPPED"
	Playing        TransportState = "PLAYING"
	PausedPlayback TransportState = "PAUSED_PLAYBACK"
	Transitioning  TransportState = "TRANSITIONING"
)

// 驱动状态迁移的动作名
const (
	ActionSetURI     = "SetAVTransportURI"
	ActionSetNextURI = "SetNextAVTransportURI"
	ActionPlay       = "Play"
	ActionPause      = "Pause"
	ActionStop       = "Stop"
	ActionSeek       = "Seek"
	ActionNext       = "Next"
	ActionPrevious   = "Previous"
)

// 状态机错误
var (
	ErrTransitionNotAvailable = errors.New("renderer: transition not available")
	ErrPendingTransition      = errors.New("renderer: transition left pending")
	ErrUnknownChannel         = errors.New("renderer: unknown channel")
	ErrVolumeOutOfRange       = errors.New("renderer: volume out of range")
	ErrNoMedia                = errors.New("renderer: no media to switch to")
	ErrIllegalSeekTarget      = errors.New("renderer: illegal seek target")
)

// transitions 迁移表：当前状态 -> 动作 -> 目标状态
var transitions = map[TransportState]map[string]TransportState{
	NoMediaPresent: {
		ActionSetURI: Stopped,
	},
	Stopped: {
		ActionSetURI:     Stopped,
		ActionSetNextURI: Stopped,
		ActionPlay:       Playing,
		ActionStop:       Stopped,
		ActionSeek:       Stopped,
		ActionNext:       Stopped,
		ActionPrevious:   Stopped,
	},
	Playing: {
		ActionSetURI:     Stopped,
		ActionSetNextURI: Playing,
		ActionPlay:       Playing,
		ActionPause:      PausedPlayback,
		ActionStop:       Stopped,
		ActionSeek:       Playing,
		ActionNext:       Playing,
		ActionPrevious:   Playing,
	},
	PausedPlayback: {
		ActionSetURI:     Stopped,
		ActionSetNextURI: PausedPlayback,
		ActionPlay:       Playing,
		ActionStop:       Stopped,
		ActionSeek:       PausedPlayback,
		ActionNext:       PausedPlayback,
		ActionPrevious:   PausedPlayback,
	},
}

// viaTransitioning 需要经过 TRANSITIONING 的迁移
var viaTransitioning = map[string]bool{
	ActionPlay: true,
}

// Target 校验迁移并返回目标状态
func Target(from TransportState, action string) (TransportState, error) {
	to, ok := transitions[from][action]
	if !ok {
		return from, ErrTransitionNotAvailable
	}
	return to, nil
}

// currentActionOrder GetCurrentTransportActions 的输出顺序
var currentActionOrder = []string{ActionPlay, ActionStop, ActionPause, ActionSeek, ActionNext, ActionPrevious}
