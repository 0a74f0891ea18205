package xerr

import "net/http"

const (
	SERVER_COMMON_ERROR = 100001
	REQUEST_PARAM_ERROR = 100002
	STORAGE_ERROR       = 100004

	ErrInvalidInput     = 1001 // HTTP 400
	ErrMissingParameter = 1002 // HTTP 400
	ErrUnknownFlow      = 1004 // HTTP 400

	ErrCodeMismatch = 1104 // HTTP 401

	ErrNotFound = 1300 // HTTP 404

	ErrNotReady       = 1500 // HTTP 503
	ErrResendThrottle = 1501 // HTTP 429
	ErrResendLocked   = 1502 // HTTP 423
	ErrSendFailed     = 1503 // HTTP 502
)

// HTTPStatus 错误码对应的 HTTP 状态
func HTTPStatus(code int) int {
	switch code {
	case REQUEST_PARAM_ERROR, ErrInvalidInput, ErrMissingParameter, ErrUnknownFlow:
		return http.StatusBadRequest
	case ErrCodeMismatch:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrNotReady:
		return http.StatusServiceUnavailable
	case ErrResendThrottle:
		return http.StatusTooManyRequests
	case ErrResendLocked:
		return http.StatusLocked
	case ErrSendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
