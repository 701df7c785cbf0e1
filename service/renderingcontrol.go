package service

import (
	"context"
	"log/slog"
	"slices"
	"strconv"

	"GoRender/dlna"
	"GoRender/interfaces"
	"GoRender/renderer"
	"GoRender/types"
)

// FactoryDefaults 唯一支持的预设
const FactoryDefaults = "FactoryDefaults"

// RenderingControlOptions RenderingControl 服务参数
type RenderingControlOptions struct {
	Channels      []string
	DefaultVolume int
	Logger        *slog.Logger
}

// RenderingControl 音量与静音控制服务
type RenderingControl struct {
	*table
	channels      []string
	defaultVolume int
}

// NewRenderingControl 创建 RenderingControl 服务并注册动作表
func NewRenderingControl(opts RenderingControlOptions) *RenderingControl {
	if len(opts.Channels) == 0 {
		opts.Channels = renderer.DefaultChannels
	}
	s := &RenderingControl{
		table:         newTable(types.NewServiceDescriptor("RenderingControl", types.ServiceTypeRenderingControl), opts.Logger),
		channels:      slices.Clone(opts.Channels),
		defaultVolume: opts.DefaultVolume,
	}

	s.addVariable(dlna.StateVariable{Name: "PresetNameList", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "Mute", DataType: "boolean"})
	s.addVariable(dlna.StateVariable{Name: "Volume", DataType: "ui2", AllowedValueRange: &dlna.AllowedValueRange{Minimum: 0, Maximum: 100, Step: 1}})
	s.addVariable(dlna.StateVariable{Name: "LastChange", DataType: "string", SendEvents: "yes"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_Channel", DataType: "string", AllowedValues: s.channels})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_InstanceID", DataType: "ui4"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_PresetName", DataType: "string", AllowedValues: []string{FactoryDefaults}})

	instance := in("InstanceID", "A_ARG_TYPE_InstanceID")
	ch := in("Channel", "A_ARG_TYPE_Channel")
	s.addAction("ListPresets", s.listPresets, instance, out("CurrentPresetNameList", "PresetNameList"))
	s.addAction("SelectPreset", s.selectPreset, instance, in("PresetName", "A_ARG_TYPE_PresetName"))
	s.addAction("GetMute", s.getMute, instance, ch, out("CurrentMute", "Mute"))
	s.addAction("SetMute", s.setMute, instance, ch, in("DesiredMute", "Mute"))
	s.addAction("GetVolume", s.getVolume, instance, ch, out("CurrentVolume", "Volume"))
	s.addAction("SetVolume", s.setVolume, instance, ch, in("DesiredVolume", "Volume"))

	return s
}

func (s *RenderingControl) listPresets(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrRenderingInvalidInstance); err != nil {
		return nil, err
	}
	return query(func(renderer.Snapshot) Args {
		return Args{"CurrentPresetNameList": FactoryDefaults}
	}), nil
}

func (s *RenderingControl) selectPreset(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrRenderingInvalidInstance); err != nil {
		return nil, err
	}
	if args["PresetName"] != FactoryDefaults {
		return nil, dlna.ErrInvalidPresetName
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.ResetRendering(s.defaultVolume), nil
	}, mapRendererError), nil
}

func (s *RenderingControl) getMute(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrRenderingInvalidInstance); err != nil {
		return nil, err
	}
	name, err := channel(args, s.channels)
	if err != nil {
		return nil, err
	}
	return query(func(cur renderer.Snapshot) Args {
		return Args{"CurrentMute": formatBool(cur.Mute[name])}
	}), nil
}

func (s *RenderingControl) setMute(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrRenderingInvalidInstance); err != nil {
		return nil, err
	}
	name, err := channel(args, s.channels)
	if err != nil {
		return nil, err
	}
	mute, err := boolean(args["DesiredMute"])
	if err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.SetMute(name, mute)
	}, mapRendererError), nil
}

func (s *RenderingControl) getVolume(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrRenderingInvalidInstance); err != nil {
		return nil, err
	}
	name, err := channel(args, s.channels)
	if err != nil {
		return nil, err
	}
	return query(func(cur renderer.Snapshot) Args {
		return Args{"CurrentVolume": strconv.Itoa(cur.Volume[name])}
	}), nil
}

func (s *RenderingControl) setVolume(_ context.Context, args Args) (interfaces.Invocation, error) {
	if err := instanceID(args, dlna.ErrRenderingInvalidInstance); err != nil {
		return nil, err
	}
	name, err := channel(args, s.channels)
	if err != nil {
		return nil, err
	}
	v, err := volume(args["DesiredVolume"])
	if err != nil {
		return nil, err
	}
	return mutate(func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		return cur.SetVolume(name, v)
	}, mapRendererError), nil
}

var _ interfaces.ServiceHandler = (*RenderingControl)(nil)
