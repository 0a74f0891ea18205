package verification

import (
	"context"
	"testing"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	to, code string
}

func (r *recordingMailer) SendVerificationEmail(_ context.Context, to, code string) error {
	r.to, r.code = to, code
	return nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestGenerateCode(t *testing.T) {
	s := NewConsoleSender(CodeTypeSMS)

	code := s.GenerateCode(0)
	assert.Len(t, code, DefaultCodeLength)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9')
	}
	assert.Len(t, s.GenerateCode(4), 4)
}

func TestSaveAndVerifyCode(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	s := NewConsoleSender(CodeTypeSMS)
	key := RedisKey(CodeTypeSMS, "+15550100")
	assert.Equal(t, "verify:sms:+15550100", key)

	require.NoError(t, s.SaveCode(ctx, rdb, key, "123456", 0))
	assert.Equal(t, DefaultCodeTTL, mr.TTL(key))

	ok, err := s.VerifyCode(ctx, rdb, key, "654321")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists(key))

	ok, err = s.VerifyCode(ctx, rdb, key, "123456")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(key))

	// 验证码只能使用一次
	ok, err = s.VerifyCode(ctx, rdb, key, "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCodeExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	s := NewConsoleSender(CodeTypeEmail)
	key := RedisKey(CodeTypeEmail, "owner@example.com")

	require.NoError(t, s.SaveCode(ctx, rdb, key, "111111", 30*time.Second))
	mr.FastForward(31 * time.Second)

	ok, err := s.VerifyCode(ctx, rdb, key, "111111")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmailCodeSenderDelegates(t *testing.T) {
	m := &recordingMailer{}
	s := NewEmailCodeSender(m)

	require.NoError(t, s.SendCode(context.Background(), "owner@example.com", "777777"))
	assert.Equal(t, "owner@example.com", m.to)
	assert.Equal(t, "777777", m.code)
	assert.Equal(t, CodeTypeEmail, s.GetCodeType())
}

func TestFactory(t *testing.T) {
	f := NewCodeSenderFactory(config.VerificationConfig{})

	sms, err := f.GetCodeSender(CodeTypeSMS)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleSender{}, sms)
	assert.Equal(t, CodeTypeSMS, sms.GetCodeType())

	email, err := f.GetCodeSender(CodeTypeEmail)
	require.NoError(t, err)
	assert.Equal(t, CodeTypeEmail, email.GetCodeType())

	_, err = f.GetCodeSender("fax")
	assert.Error(t, err)

	f = NewCodeSenderFactory(config.VerificationConfig{
		Email: config.EmailVerificationConfig{Provider: "smtp"},
	})
	_, err = f.GetCodeSender(CodeTypeEmail)
	assert.Error(t, err)

	f = NewCodeSenderFactory(config.VerificationConfig{
		Email: config.EmailVerificationConfig{
			Provider: "smtp",
			SMTP:     config.Email{Host: "smtp.example.com", Port: "587"},
		},
	})
	email, err = f.GetCodeSender(CodeTypeEmail)
	require.NoError(t, err)
	assert.IsType(t, &EmailCodeSender{}, email)

	f = NewCodeSenderFactory(config.VerificationConfig{
		SMS: config.SMSVerificationConfig{Provider: "aliyun"},
	})
	_, err = f.GetCodeSender(CodeTypeSMS)
	assert.Error(t, err)
}
