package server

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"GoRender/dlna"
	"GoRender/interfaces"
	"GoRender/renderer"
)

// 允许的 SOAP 请求媒体类型
var soapMediaTypes = map[string]bool{
	"text/xml":             true,
	"application/xml":      true,
	"application/soap+xml": true,
}

// dispatcher 单个服务控制地址上的 SOAP 分发器
type dispatcher struct {
	service interfaces.ServiceHandler
	state   *renderer.State
	logger  *slog.Logger
}

func (d *dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !soapMediaTypes[mediaType] {
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	serviceType, actionName, ok := parseSOAPAction(r.Header.Get("SOAPAction"))
	if !ok || serviceType != d.service.Descriptor().ServiceType {
		d.logger.Debug("SOAPAction 不匹配", "soapaction", r.Header.Get("SOAPAction"))
		http.Error(w, "invalid SOAPAction", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		d.logger.Warn("读取请求体失败", "action", actionName, "error", err)
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	action, err := dlna.ParseEnvelope(body)
	if err != nil {
		d.logger.Warn("SOAP信封解析失败", "action", actionName, "error", err)
		d.writeFault(w, dlna.ErrInvalidArgs)
		return
	}
	if action.Name != actionName || (action.ServiceType != "" && action.ServiceType != serviceType) {
		d.logger.Debug("信封动作与 SOAPAction 不一致", "header", actionName, "body", action.Name)
		http.Error(w, "SOAPAction does not match envelope", http.StatusUnauthorized)
		return
	}

	inv, err := d.service.Prepare(r.Context(), action.Name, action.Args)
	if err != nil {
		d.fail(w, action.Name, err)
		return
	}

	var out map[string]string
	_, err = d.state.Apply(action.Name, func(cur renderer.Snapshot) (renderer.Snapshot, error) {
		next, o, err := inv(cur)
		out = o
		return next, err
	})
	if err != nil {
		d.fail(w, action.Name, err)
		return
	}

	names := d.service.Outputs(action.Name)
	args := make([]dlna.Arg, 0, len(names))
	for _, name := range names {
		args = append(args, dlna.Arg{Name: name, Value: out[name]})
	}
	d.logger.Info("SOAP动作完成", "action", action.Name, "outcome", "ok")
	writeXML(w, http.StatusOK, dlna.EncodeResponse(serviceType, action.Name, args))
}

func (d *dispatcher) fail(w http.ResponseWriter, action string, err error) {
	upnpErr := dlna.AsUPnPError(err)
	d.logger.Info("SOAP动作失败", "action", action, "outcome", "fault", "code", upnpErr.Code, "error", err)
	d.writeFault(w, upnpErr)
}

func (d *dispatcher) writeFault(w http.ResponseWriter, e *dlna.UPnPError) {
	writeXML(w, http.StatusInternalServerError, dlna.EncodeFault(e))
}

func writeXML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", xmlContentType)
	w.Header().Set("EXT", "")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// parseSOAPAction 解析 "serviceType#actionName"
func parseSOAPAction(header string) (serviceType, action string, ok bool) {
	h := strings.Trim(strings.TrimSpace(header), `"`)
	i := strings.LastIndex(h, "#")
	if i <= 0 || i == len(h)-1 {
		return "", "", false
	}
	return h[:i], h[i+1:], true
}
