package verification

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// CodeType 验证码类型
type CodeType string

const (
	CodeTypeSMS   CodeType = "sms"   // 手机验证码
	CodeTypeEmail CodeType = "email" // 邮箱验证码
)

const (
	DefaultCodeLength = 6
	DefaultCodeTTL    = 5 * time.Minute
)

// CodeSender 验证码发送接口
// 通过实现此接口，可以切换不同的验证码发送服务（短信、邮件等）
type CodeSender interface {
	// SendCode 发送验证码
	// to: 接收方（手机号或邮箱）
	SendCode(ctx context.Context, to, code string) error

	// GenerateCode 生成验证码，length <= 0 时使用默认长度
	GenerateCode(length int) string

	// SaveCode 保存验证码，ttl <= 0 时使用默认有效期
	SaveCode(ctx context.Context, rdb redis.Cmdable, key, code string, ttl time.Duration) error

	// VerifyCode 校验验证码，成功后删除
	VerifyCode(ctx context.Context, rdb redis.Cmdable, key, code string) (bool, error)

	// GetCodeType 获取验证码类型
	GetCodeType() CodeType
}
