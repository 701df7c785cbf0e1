package service

import (
	"context"
	"fmt"
	"log/slog"

	"GoRender/dlna"
	"GoRender/interfaces"
	"GoRender/renderer"
	"GoRender/types"
)

// Args 动作的原始参数
type Args map[string]string

// prepareFunc 在锁外解码参数，返回锁内执行的提交函数
type prepareFunc func(ctx context.Context, args Args) (interfaces.Invocation, error)

// action 动作表中的一项
type action struct {
	name    string
	in      []dlna.SCPDArgument
	out     []dlna.SCPDArgument
	prepare prepareFunc
}

// table 服务的动作表与状态变量表，同时用于分发和生成 SCPD
type table struct {
	desc    types.ServiceDescriptor
	actions []*action
	index   map[string]*action
	vars    []dlna.StateVariable
	logger  *slog.Logger
}

func newTable(desc types.ServiceDescriptor, logger *slog.Logger) *table {
	if logger == nil {
		logger = slog.Default()
	}
	return &table{
		desc:   desc,
		index:  make(map[string]*action),
		logger: logger.With("service", desc.ServiceID),
	}
}

// addVariable 注册状态变量
func (t *table) addVariable(v dlna.StateVariable) {
	if v.SendEvents == "" {
		v.SendEvents = "no"
	}
	t.vars = append(t.vars, v)
}

// addAction 注册动作
func (t *table) addAction(name string, prepare prepareFunc, args ...dlna.SCPDArgument) {
	a := &action{name: name, prepare: prepare}
	for _, arg := range args {
		if arg.Direction == dlna.DirectionOut {
			a.out = append(a.out, arg)
		} else {
			a.in = append(a.in, arg)
		}
	}
	t.actions = append(t.actions, a)
	t.index[name] = a
}

func in(name, variable string) dlna.SCPDArgument {
	return dlna.SCPDArgument{Name: name, Direction: dlna.DirectionIn, RelatedStateVariable: variable}
}

func out(name, variable string) dlna.SCPDArgument {
	return dlna.SCPDArgument{Name: name, Direction: dlna.DirectionOut, RelatedStateVariable: variable}
}

// Descriptor 返回服务描述
func (t *table) Descriptor() types.ServiceDescriptor {
	return t.desc
}

// Outputs 返回动作输出参数的声明顺序
func (t *table) Outputs(name string) []string {
	a, ok := t.index[name]
	if !ok {
		return nil
	}
	var names []string
	for _, arg := range a.out {
		names = append(names, arg.Name)
	}
	return names
}

// Prepare 查找动作并检查必需的输入参数
func (t *table) Prepare(ctx context.Context, name string, args map[string]string) (interfaces.Invocation, error) {
	a, ok := t.index[name]
	if !ok {
		return nil, dlna.ErrInvalidAction
	}
	for _, arg := range a.in {
		if _, ok := args[arg.Name]; !ok {
			return nil, fmt.Errorf("缺少参数 %s: %w", arg.Name, dlna.ErrInvalidArgs)
		}
	}
	inv, err := a.prepare(ctx, args)
	if err != nil {
		t.logger.Debug("参数校验失败", "action", name, "error", err)
		return nil, err
	}
	return inv, nil
}

// SCPD 由动作表生成服务描述
func (t *table) SCPD() ([]byte, error) {
	actions := make([]dlna.SCPDAction, 0, len(t.actions))
	for _, a := range t.actions {
		sa := dlna.SCPDAction{Name: a.name}
		sa.Arguments = append(sa.Arguments, a.in...)
		sa.Arguments = append(sa.Arguments, a.out...)
		actions = append(actions, sa)
	}
	return dlna.BuildSCPD(actions, t.vars)
}

// query 只读动作：不修改状态，仅生成输出参数
func query(fn func(s renderer.Snapshot) Args) interfaces.Invocation {
	return func(cur renderer.Snapshot) (renderer.Snapshot, map[string]string, error) {
		return cur, fn(cur), nil
	}
}

// mutate 修改状态的动作：无输出参数，错误经 mapErr 转为 UPnP 错误
func mutate(fn func(s renderer.Snapshot) (renderer.Snapshot, error), mapErr func(error) error) interfaces.Invocation {
	return func(cur renderer.Snapshot) (renderer.Snapshot, map[string]string, error) {
		next, err := fn(cur)
		if err != nil {
			return cur, nil, mapErr(err)
		}
		return next, nil, nil
	}
}
