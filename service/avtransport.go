package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"GoRender/dlna"
	"GoRender/interfaces"
	"GoRender/renderer"
	"GoRender/types"
)

const (
	playMediumNetwork = "NETWORK"
	notImplemented    = "NOT_IMPLEMENTED"
	maxCounter        = "2147483647"
	defaultProbeWait  = 10 * time.Second
)

// AVTransportOptions AVTransport 服务参数
type AVTransportOptions struct {
	// Clock 与渲染器状态共用的时钟
	Clock func() time.Time
	// Prober 可选，设置 URI 时探测媒体时长
	Prober       interfaces.MediaProber
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// AVTransport 传输控制服务
type AVTransport struct {
	*table
	clock        func() time.Time
	prober       interfaces.MediaProber
	probeTimeout time.Duration
}

// NewAVTransport 创建 AVTransport 服务并注册动作表
func NewAVTransport(opts AVTransportOptions) *AVTransport {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaultProbeWait
	}
	s := &AVTransport{
		table:        newTable(types.NewServiceDescriptor("AVTransport", types.ServiceTypeAVTransport), opts.Logger),
		clock:        opts.Clock,
		prober:       opts.Prober,
		probeTimeout: opts.ProbeTimeout,
	}

	s.addVariable(dlna.StateVariable{Name: "TransportState", DataType: "string", AllowedValues: []string{
		string(renderer.Stopped), string(renderer.Playing), string(renderer.PausedPlayback),
		string(renderer.Transitioning), string(renderer.NoMediaPresent),
	}})
	s.addVariable(dlna.StateVariable{Name: "TransportStatus", DataType: "string", AllowedValues: []string{"OK", "ERROR_OCCURRED"}})
	s.addVariable(dlna.StateVariable{Name: "PlaybackStorageMedium", DataType: "string", AllowedValues: []string{playMediumNetwork, "NONE"}})
	s.addVariable(dlna.StateVariable{Name: "RecordStorageMedium", DataType: "string", AllowedValues: []string{notImplemented}})
	s.addVariable(dlna.StateVariable{Name: "PossiblePlaybackStorageMedia", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "PossibleRecordStorageMedia", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "CurrentPlayMode", DataType: "string", DefaultValue: "NORMAL", AllowedValues: []string{"NORMAL"}})
	s.addVariable(dlna.StateVariable{Name: "TransportPlaySpeed", DataType: "string", AllowedValues: []string{"1"}})
	s.addVariable(dlna.StateVariable{Name: "RecordMediumWriteStatus", DataType: "string", AllowedValues: []string{notImplemented}})
	s.addVariable(dlna.StateVariable{Name: "CurrentRecordQualityMode", DataType: "string", AllowedValues: []string{notImplemented}})
	s.addVariable(dlna.StateVariable{Name: "PossibleRecordQualityModes", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "NumberOfTracks", DataType: "ui4", AllowedValueRange: &dlna.AllowedValueRange{Minimum: 0, Maximum: 1}})
	s.addVariable(dlna.StateVariable{Name: "CurrentTrack", DataType: "ui4", AllowedValueRange: &dlna.AllowedValueRange{Minimum: 0, Maximum: 1, Step: 1}})
	s.addVariable(dlna.StateVariable{Name: "CurrentTrackDuration", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "CurrentMediaDuration", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "CurrentTrackMetaData", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "CurrentTrackURI", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "AVTransportURI", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "AVTransportURIMetaData", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "NextAVTransportURI", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "NextAVTransportURIMetaData", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "RelativeTimePosition", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "AbsoluteTimePosition", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "RelativeCounterPosition", DataType: "i4"})
	s.addVariable(dlna.StateVariable{Name: "AbsoluteCounterPosition", DataType: "i4"})
	s.addVariable(dlna.StateVariable{Name: "CurrentTransportActions", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "LastChange", DataType: "string", SendEvents: "yes"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_SeekMode", DataType: "string", AllowedValues: []string{"REL_TIME", "ABS_TIME"}})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_SeekTarget", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_InstanceID", DataType: "ui4"})

	instance := in("InstanceID", "A_ARG_TYPE_InstanceID")
	s.addAction(renderer.ActionSetURI, s.setURI, instance,
		in("CurrentURI", "AVTransportURI"),
		in("CurrentURIMetaData", "AVTransportURIMetaData"))
	s.addAction(renderer.ActionSetNextURI, s.setNextURI, instance,
		in("NextURI", "NextAVTransportURI"),
		in("NextURIMetaData", "NextAVTransportURIMetaData"))
	s.addAction("GetMediaInfo", s.getMediaInfo, instance,
		out("NrTracks", "NumberOfTracks"),
		out("MediaDuration", "CurrentMediaDuration"),
		out("CurrentURI", "AVTransportURI"),
		out("CurrentURIMetaData", "AVTransportURIMetaData"),
		out("NextURI", "NextAVTransportURI"),
		out("NextURIMetaData", "NextAVTransportURIMetaData"),
		out("PlayMedium", "PlaybackStorageMedium"),
		out("RecordMedium", "RecordStorageMedium"),
		out("WriteStatus", "RecordMediumWriteStatus"))
	s.addAction("GetTransportInfo", s.getTransportInfo, instance,
		out("CurrentTransportState", "TransportState"),
		out("CurrentTransportStatus", "TransportStatus"),
		out("CurrentSpeed", "TransportPlaySpeed"))
	s.addAction("GetPositionInfo", s.getPositionInfo, instance,
		out("Track", "CurrentTrack"),
		out("TrackDuration", "CurrentTrackDuration"),
		out("TrackMetaData", "CurrentTrackMetaData"),
		out("TrackURI", "CurrentTrackURI"),
		out("RelTime", "RelativeTimePosition"),
		out("AbsTime", "AbsoluteTimePosition"),
		out("RelCount", "RelativeCounterPosition"),
		out("AbsCount", "AbsoluteCounterPosition"))
	s.addAction("GetDeviceCapabilities", s.getDeviceCapabilities, instance,
		out("PlayMedia", "PossiblePlaybackStorageMedia"),
		out("RecMedia", "PossibleRecordStorageMedia"),
		out("RecQualityModes", "PossibleRecordQualityModes"))
	s.addAction("GetTransportSettings", s.getTransportSettings, instance,
		out("PlayMode", "CurrentPlayMode"),
		out("RecQualityMode", "CurrentRecordQualityMode"))
	s.addAction(renderer.ActionStop, s.stop, instance)
	s.addAction(renderer.ActionPlay, s.play, instance, in("Speed", "TransportPlaySpeed"))
	s.addAction(renderer.ActionPause, s.pause, instance)
	s.addAction(renderer.ActionSeek, s.seek, instance,
		in("Unit", "A_ARG_TYPE_SeekMode"),
		in("Target", "A_ARG_TYPE_SeekTarget"))
	s.addAction(renderer.ActionNext, s.next, instance)
	s.addAction(renderer.ActionPrevious, s.previous, instance)
	s.addAction("GetCurrentTransportActions", s.getCurrentTransportActions, instance,
		out("Actions", "CurrentTransportActions"))

	return s
}

// media 解析媒体地址并在可用时探测时长
func (s *AVTransport) media(ctx context.Context, rawURI, metaData string) (renderer.Media, error) {
	uri, err := mediaURI(rawURI)
	if err != nil {
		return renderer.Media{}, err
	}
	m := renderer.Media{URI: uri, MetaData: metaData}
	if s.prober == nil {
		return m, nil
	}
	if !probeable(uri) {
		s.logger.Debug("非HTTP媒体地址，跳过探测", "uri", uri)
		return m, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	info, err := s.prober.Probe(probeCtx, uri)
	if err != nil {
		s.logger.Warn("媒体探测失败，时长未知", "uri", uri, "error", err)
		return m, nil
	}
	m.Duration = time.Duration(info.Duration * float64(time.Second))
	return m, nil
}

func (s *AVTransport) setURI(ctx context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	m, err := s.media(ctx, args["CurrentURI"], args["CurrentURIMetaData"])
	if err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.SetURI(m, s.clock())
	}, mapRendererError), nil
}

func (s *AVTransport) setNextURI(ctx context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	m, err := s.media(ctx, args["NextURI"], args["NextURIMetaData"])
	if err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.SetNextURI(m, s.clock())
	}, mapRendererError), nil
}

func (s *AVTransport) getMediaInfo(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return query(func(cur renderer.Snapshot) Args {
		tracks := "0"
		if !cur.Current.Empty() {
			tracks = "1"
		}
		return Args{
			"NrTracks":           tracks,
			"MediaDuration":      formatDuration(cur.Current.Duration),
			"CurrentURI":         cur.Current.URI,
			"CurrentURIMetaData": cur.Current.MetaData,
			"NextURI":            cur.Next.URI,
			"NextURIMetaData":    cur.Next.MetaData,
			"PlayMedium":         playMediumNetwork,
			"RecordMedium":       notImplemented,
			"WriteStatus":        notImplemented,
		}
	}), nil
}

func (s *AVTransport) getTransportInfo(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return query(func(cur renderer.Snapshot) Args {
		return Args{
			"CurrentTransportState":  string(cur.Transport),
			"CurrentTransportStatus": "OK",
			"CurrentSpeed":           cur.Speed,
		}
	}), nil
}

func (s *AVTransport) getPositionInfo(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return query(func(cur renderer.Snapshot) Args {
		track := "0"
		if !cur.Current.Empty() {
			track = "1"
		}
		pos := formatDuration(cur.Position(s.clock()))
		return Args{
			"Track":         track,
			"TrackDuration": formatDuration(cur.Current.Duration),
			"TrackMetaData": cur.Current.MetaData,
			"TrackURI":      cur.Current.URI,
			"RelTime":       pos,
			"AbsTime":       pos,
			"RelCount":      maxCounter,
			"AbsCount":      maxCounter,
		}
	}), nil
}

func (s *AVTransport) getDeviceCapabilities(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return query(func(renderer.Snapshot) Args {
		return Args{
			"PlayMedia":       playMediumNetwork,
			"RecMedia":        notImplemented,
			"RecQualityModes": notImplemented,
		}
	}), nil
}

func (s *AVTransport) getTransportSettings(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return query(func(renderer.Snapshot) Args {
		return Args{"PlayMode": "NORMAL", "RecQualityMode": notImplemented}
	}), nil
}

func (s *AVTransport) getCurrentTransportActions(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return query(func(cur renderer.Snapshot) Args {
		return Args{"Actions": strings.Join(cur.AvailableActions(), ",")}
	}), nil
}

func (s *AVTransport) play(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	speed := strings.TrimSpace(args["Speed"])
	if speed != "1" {
		return nil, dlna.ErrPlaySpeedNotSupported
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.Play(speed, s.clock())
	}, mapRendererError), nil
}

func (s *AVTransport) pause(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.Pause(s.clock())
	}, mapRendererError), nil
}

func (s *AVTransport) stop(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.Stop(s.clock())
	}, mapRendererError), nil
}

func (s *AVTransport) seek(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	switch args["Unit"] {
	case "REL_TIME", "ABS_TIME":
	default:
		return nil, dlna.ErrSeekModeNotSupported
	}
	target, err := parseDuration(args["Target"])
	if err != nil {
		s.logger.Debug("跳转目标无效", "target", args["Target"], "error", err)
		return nil, dlna.ErrIllegalSeekTarget
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.Seek(target, s.clock())
	}, mapRendererError), nil
}

func (s *AVTransport) next(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.SkipNext(s.clock())
	}, mapRendererError), nil
}

func (s *AVTransport) previous(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrInvalidInstanceID); err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.SkipPrevious(s.clock())
	}, mapRendererError), nil
}

// 编译期检查
var _ interfaces.ServiceHandler = (*AVTransport)(nil)
