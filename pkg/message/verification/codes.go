package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisKey 验证码存储键，格式：verify:<type>:<target>
func RedisKey(codeType CodeType, target string) string {
	return fmt.Sprintf("verify:%s:%s", codeType, target)
}

// redisCodes 验证码的生成、保存与校验，各发送器共用
type redisCodes struct{}

func (redisCodes) GenerateCode(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand 不可用时无法安全生成
			panic(fmt.Sprintf("generate code: %v", err))
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits)
}

func (redisCodes) SaveCode(ctx context.Context, rdb redis.Cmdable, key, code string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	if err := rdb.Set(ctx, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

func (redisCodes) VerifyCode(ctx context.Context, rdb redis.Cmdable, key, code string) (bool, error) {
	stored, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}
	if err := rdb.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("delete code: %w", err)
	}
	return true, nil
}
