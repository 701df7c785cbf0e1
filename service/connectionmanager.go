package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"GoRender/dlna"
	"GoRender/interfaces"
	"GoRender/renderer"
	"GoRender/types"
)

// SinkProtocols 渲染器可接收的协议信息
// 格式: protocol:network:contentFormat:additionalInfo
var SinkProtocols = []string{
	"http-get:*:audio/mpeg:*",
	"http-get:*:audio/mp4:*",
	"http-get:*:audio/flac:*",
	"http-get:*:audio/wav:*",
	"http-get:*:audio/L16:*",
	"http-get:*:audio/aac:*",
	"http-get:*:audio/ogg:*",
	"http-get:*:video/mp4:*",
	"http-get:*:video/mpeg:*",
	"http-get:*:video/x-matroska:*",
	"http-get:*:video/webm:*",
	"http-get:*:image/jpeg:*",
	"http-get:*:image/png:*",
	"http-get:*:*:*",
}

// ConnectionManager 连接管理服务，只有一个固定连接 0
type ConnectionManager struct {
	*table
	sink string
}

// NewConnectionManager 创建 ConnectionManager 服务
func NewConnectionManager(logger *slog.Logger) *ConnectionManager {
	s := &ConnectionManager{
		table: newTable(types.NewServiceDescriptor("ConnectionManager", types.ServiceTypeConnectionManager), logger),
		sink:  strings.Join(SinkProtocols, ","),
	}

	s.addVariable(dlna.StateVariable{Name: "SourceProtocolInfo", DataType: "string", SendEvents: "yes"})
	s.addVariable(dlna.StateVariable{Name: "SinkProtocolInfo", DataType: "string", SendEvents: "yes"})
	s.addVariable(dlna.StateVariable{Name: "CurrentConnectionIDs", DataType: "string", SendEvents: "yes"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_ConnectionStatus", DataType: "string", AllowedValues: []string{
		"OK", "ContentFormatMismatch", "InsufficientBandwidth", "UnreliableChannel", "Unknown",
	}})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_ConnectionManager", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_Direction", DataType: "string", AllowedValues: []string{"Input", "Output"}})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_ProtocolInfo", DataType: "string"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_ConnectionID", DataType: "i4"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_AVTransportID", DataType: "i4"})
	s.addVariable(dlna.StateVariable{Name: "A_ARG_TYPE_RcsID", DataType: "i4"})

	s.addAction("GetProtocolInfo", s.getProtocolInfo,
		out("Source", "SourceProtocolInfo"),
		out("Sink", "SinkProtocolInfo"))
	s.addAction("GetCurrentConnectionIDs", s.getCurrentConnectionIDs,
		out("ConnectionIDs", "CurrentConnectionIDs"))
	s.addAction("GetCurrentConnectionInfo", s.getCurrentConnectionInfo,
		in("ConnectionID", "A_ARG_TYPE_ConnectionID"),
		out("RcsID", "A_ARG_TYPE_RcsID"),
		out("AVTransportID", "A_ARG_TYPE_AVTransportID"),
		out("ProtocolInfo", "A_ARG_TYPE_ProtocolInfo"),
		out("PeerConnectionManager", "A_ARG_TYPE_ConnectionManager"),
		out("PeerConnectionID", "A_ARG_TYPE_ConnectionID"),
		out("Direction", "A_ARG_TYPE_Direction"),
		out("Status", "A_ARG_TYPE_ConnectionStatus"))

	return s
}

func (s *ConnectionManager) getProtocolInfo(context.Context, Args) (interfaces.Invocation, error) {
	return query(func(renderer.Snapshot) Args {
		return Args{"Source": "", "Sink": s.sink}
	}), nil
}

func (s *ConnectionManager) getCurrentConnectionIDs(context.Context, Args) (interfaces.Invocation, error) {
	return query(func(renderer.Snapshot) Args {
		return Args{"ConnectionIDs": "0"}
	}), nil
}

func (s *ConnectionManager) getCurrentConnectionInfo(_ context.Context, args Args) (interfaces.Invocation, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(args["ConnectionID"]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("ConnectionID %q: %w", args["ConnectionID"], dlna.ErrInvalidArgs)
	}
	if id != 0 {
		return nil, dlna.ErrInvalidConnectionReference
	}
	return query(func(renderer.Snapshot) Args {
		return Args{
			"RcsID":                 "0",
			"AVTransportID":         "0",
			"ProtocolInfo":          "",
			"PeerConnectionManager": "",
			"PeerConnectionID":      "-1",
			"Direction":             "Input",
			"Status":                "OK",
		}
	}), nil
}

var _ interfaces.ServiceHandler = (*ConnectionManager)(nil)
