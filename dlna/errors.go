package dlna

import (
	"errors"
	"fmt"
)

// UPnPError UPnP 控制错误，以 SOAP Fault 形式返回给控制点
type UPnPError struct {
	Code        int
	Description string
}

func (e *UPnPError) Error() string {
	return fmt.Sprintf("UPnP错误 %d: %s", e.Code, e.Description)
}

// NewError 创建一个 UPnP 错误
func NewError(code int, description string) *UPnPError {
	return &UPnPError{Code: code, Description: description}
}

// UPnP Device Architecture 通用错误码
var (
	ErrInvalidAction        = NewError(401, "Invalid Action")
	ErrInvalidArgs          = NewError(402, "Invalid Args")
	ErrActionFailed         = NewError(501, "Action Failed")
	ErrArgumentValueInvalid = NewError(600, "Argument Value Invalid")
	ErrArgumentOutOfRange   = NewError(601, "Argument Value Out of Range")
)

// AVTransport 服务错误码
var (
	ErrTransitionNotAvailable = NewError(701, "Transition not available")
	ErrNoContents             = NewError(702, "No contents")
	ErrSeekModeNotSupported   = NewError(710, "Seek mode not supported")
	ErrIllegalSeekTarget      = NewError(711, "Illegal seek target")
	ErrResourceNotFound       = NewError(716, "Resource not found")
	ErrPlaySpeedNotSupported  = NewError(717, "Play speed not supported")
	ErrInvalidInstanceID      = NewError(718, "Invalid InstanceID")
)

// RenderingControl 服务错误码
var (
	ErrInvalidPresetName        = NewError(701, "Invalid Name")
	ErrRenderingInvalidInstance = NewError(702, "Invalid InstanceID")
)

// ConnectionManager 服务错误码
var ErrInvalidConnectionReference = NewError(706, "Invalid connection reference")

// AsUPnPError 从错误链中提取 UPnP 错误，其余错误视为 501 Action Failed
func AsUPnPError(err error) *UPnPError {
	if err == nil {
		return nil
	}
	var ue *UPnPError
	if errors.As(err, &ue) {
		return ue
	}
	return ErrActionFailed
}
