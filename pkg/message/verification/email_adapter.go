package verification

import (
	"context"

	mailer "github.com/boclar/booking-app-business-demo-sub000/pkg/message/email"
)

// EmailCodeSender 邮件验证码发送器适配器
// 将 mailer.EmailSender 适配为 CodeSender 接口
type EmailCodeSender struct {
	redisCodes
	mailer mailer.EmailSender
}

// NewEmailCodeSender 创建邮件验证码发送器
func NewEmailCodeSender(emailSender mailer.EmailSender) *EmailCodeSender {
	return &EmailCodeSender{mailer: emailSender}
}

// SendCode 发送验证码邮件
func (e *EmailCodeSender) SendCode(ctx context.Context, email, code string) error {
	return e.mailer.SendVerificationEmail(ctx, email, code)
}

// GetCodeType 获取验证码类型
func (e *EmailCodeSender) GetCodeType() CodeType {
	return CodeTypeEmail
}
