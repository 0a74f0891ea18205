package errors

import (
	"errors"
	"fmt"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/xerr"
)

type CodeMsg struct {
	Code int    // 错误码
	Msg  string // 错误消息
	Err  error  // 原始错误
}

// 实现 error 接口
func (e *CodeMsg) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code=%d, msg=%s, err=%v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("code=%d, msg=%s", e.Code, e.Msg)
}

func (e *CodeMsg) Unwrap() error {
	return e.Err
}

// HTTPStatus 对应的 HTTP 状态码
func (e *CodeMsg) HTTPStatus() int {
	return xerr.HTTPStatus(e.Code)
}

// New 构造函数
func New(code int, msg string) error {
	return &CodeMsg{Code: code, Msg: msg}
}

// Wrap 携带原始错误
func Wrap(code int, msg string, err error) error {
	return &CodeMsg{Code: code, Msg: msg, Err: err}
}

// FromError 提取 CodeMsg，非 CodeMsg 统一视为服务端错误
func FromError(err error) *CodeMsg {
	var cm *CodeMsg
	if errors.As(err, &cm) {
		return cm
	}
	return &CodeMsg{Code: xerr.SERVER_COMMON_ERROR, Msg: "internal error", Err: err}
}
