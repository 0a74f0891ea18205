package verification

import (
	"context"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

// ConsoleSender 只把验证码写进日志，用于本地开发和测试
type ConsoleSender struct {
	redisCodes
	codeType CodeType
}

func NewConsoleSender(codeType CodeType) *ConsoleSender {
	return &ConsoleSender{codeType: codeType}
}

func (c *ConsoleSender) SendCode(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("send verification code",
		zap.String("type", string(c.codeType)),
		zap.String("to", to),
		zap.String("code", code))
	return nil
}

func (c *ConsoleSender) GetCodeType() CodeType {
	return c.codeType
}
