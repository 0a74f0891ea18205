package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

const (
	maxRetries    = 2
	retryInterval = time.Second
)

// Mailer SMTP 邮件发送器
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string

	// send 默认为 smtp.SendMail，测试时替换
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ EmailSender = (*Mailer)(nil)

func NewMailer(host, port, username, password string) *Mailer {
	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		send:     smtp.SendMail,
	}
}

// SendVerificationEmail 发送验证码邮件
func (m *Mailer) SendVerificationEmail(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(`<html>
<body>
	<h2>Verify your email</h2>
	<p>Your verification code is: <strong>%s</strong></p>
	<p>The code expires in 5 minutes. If you did not request it, ignore this email.</p>
</body>
</html>`, code)

	return m.sendEmail(ctx, to, "Your verification code", body)
}

func (m *Mailer) buildMessage(to, subject, body string) []byte {
	var b strings.Builder
	headers := [][2]string{
		{"From", m.Username},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// sendEmail 发送邮件，失败时重试
func (m *Mailer) sendEmail(ctx context.Context, to, subject, body string) error {
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	msg := m.buildMessage(to, subject, body)

	var err error
	for i := 0; i <= maxRetries; i++ {
		err = m.send(m.Host+":"+m.Port, auth, m.Username, []string{to}, msg)
		if err == nil {
			return nil
		}
		if i == maxRetries {
			break
		}

		logger.Warn("send email failed, retrying", zap.Int("attempt", i+1), zap.String("to", to), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return fmt.Errorf("send email: %w", err)
}
