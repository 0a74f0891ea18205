package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/message/verification"
)

// Flow 验证流程，决定验证码投递渠道
type Flow string

const (
	FlowConfirmEmail         Flow = "CONFIRM_EMAIL"
	FlowConfirmPhone         Flow = "CONFIRM_PHONE"
	FlowConfirmPasswordReset Flow = "CONFIRM_PASSWORD_RESET"
)

// ErrUnknownFlow 未知流程
var ErrUnknownFlow = errors.New("unknown flow")

// ParseFlow 大小写不敏感
func ParseFlow(s string) (Flow, error) {
	switch f := Flow(strings.ToUpper(strings.TrimSpace(s))); f {
	case FlowConfirmEmail, FlowConfirmPhone, FlowConfirmPasswordReset:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFlow, s)
	}
}

// CodeType 手机流程走短信，其余走邮件
func (f Flow) CodeType() verification.CodeType {
	if f == FlowConfirmPhone {
		return verification.CodeTypeSMS
	}
	return verification.CodeTypeEmail
}

// InstanceKey 控制器实例键，格式 <FLOW>:<target>
func InstanceKey(flow Flow, target string) string {
	return string(flow) + ":" + target
}
