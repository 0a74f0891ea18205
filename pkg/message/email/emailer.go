package mailer

import "context"

// EmailSender 邮件发送接口
// 通过实现此接口，可以切换不同的邮件发送服务（SMTP、SES 等）
type EmailSender interface {
	// SendVerificationEmail 发送验证邮件
	SendVerificationEmail(ctx context.Context, to, code string) error
}
