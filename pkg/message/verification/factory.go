package verification

import (
	"fmt"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/config"
	mailer "github.com/boclar/booking-app-business-demo-sub000/pkg/message/email"
)

var (
	_ CodeSender = (*ConsoleSender)(nil)
	_ CodeSender = (*EmailCodeSender)(nil)
)

// CodeSenderFactory 验证码发送器工厂
// 根据配置创建对应的验证码发送器实现
type CodeSenderFactory struct {
	cfg config.VerificationConfig
}

// NewCodeSenderFactory 创建验证码发送器工厂
func NewCodeSenderFactory(cfg config.VerificationConfig) *CodeSenderFactory {
	return &CodeSenderFactory{cfg: cfg}
}

// GetCodeSender 根据验证码类型获取对应的发送器
func (f *CodeSenderFactory) GetCodeSender(codeType CodeType) (CodeSender, error) {
	switch codeType {
	case CodeTypeSMS:
		return f.createSMSSender()
	case CodeTypeEmail:
		return f.createEmailSender()
	default:
		return nil, fmt.Errorf("unsupported code type: %s", codeType)
	}
}

func (f *CodeSenderFactory) createSMSSender() (CodeSender, error) {
	provider := f.cfg.SMS.Provider
	if provider == "" {
		provider = "console"
	}

	switch provider {
	case "console":
		return NewConsoleSender(CodeTypeSMS), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider: %s", provider)
	}
}

func (f *CodeSenderFactory) createEmailSender() (CodeSender, error) {
	provider := f.cfg.Email.Provider
	if provider == "" {
		provider = "console"
	}

	switch provider {
	case "console":
		return NewConsoleSender(CodeTypeEmail), nil
	case "smtp":
		smtp := f.cfg.Email.SMTP
		if smtp.Host == "" {
			return nil, fmt.Errorf("smtp provider requires verification.email.smtp.host")
		}
		return NewEmailCodeSender(mailer.NewMailer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", provider)
	}
}
