package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/internal/registry"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/clock"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/cooldown"
	apperr "github.com/boclar/booking-app-business-demo-sub000/pkg/errors"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/kvstore"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/message/verification"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/xerr"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type sent struct {
	to, code string
}

// recordingSender 记录发出的验证码，其余行为同控制台发送器
type recordingSender struct {
	*verification.ConsoleSender
	mu   sync.Mutex
	sent []sent
	fail error
}

func (s *recordingSender) SendCode(_ context.Context, to, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, sent{to: to, code: code})
	return nil
}

func (s *recordingSender) last() sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type senders map[verification.CodeType]*recordingSender

func (m senders) GetCodeSender(t verification.CodeType) (verification.CodeSender, error) {
	s, ok := m[t]
	if !ok {
		return nil, errors.New("no sender")
	}
	return s, nil
}

type fixture struct {
	svc   *Resender
	hub   *registry.Hub
	fake  *clock.Fake
	store *kvstore.MemoryStore
	mr    *miniredis.Miniredis
	email *recordingSender
	sms   *recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := kvstore.NewMemoryStore()
	fake := clock.NewFake(epoch)
	hub, err := registry.NewHub(registry.Options{Store: store, Clock: fake})
	require.NoError(t, err)
	t.Cleanup(hub.Close)

	f := &fixture{
		hub:   hub,
		fake:  fake,
		store: store,
		mr:    mr,
		email: &recordingSender{ConsoleSender: verification.NewConsoleSender(verification.CodeTypeEmail)},
		sms:   &recordingSender{ConsoleSender: verification.NewConsoleSender(verification.CodeTypeSMS)},
	}
	f.svc = NewResender(hub, senders{
		verification.CodeTypeEmail: f.email,
		verification.CodeTypeSMS:   f.sms,
	}, rdb, Options{CodeLength: 6, CodeTTL: 5 * time.Minute})
	return f
}

func codeOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	return apperr.FromError(err).Code
}

func TestStartSendsFirstCodeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Start(ctx, "CONFIRM_EMAIL", "owner@example.com")
	require.NoError(t, err)
	assert.True(t, res.CodeSent)
	assert.Equal(t, 60.0, res.State.Timer)
	require.Equal(t, 1, f.email.count())
	assert.Equal(t, "owner@example.com", f.email.last().to)
	assert.Len(t, f.email.last().code, 6)

	key := verification.RedisKey(verification.CodeTypeEmail, "CONFIRM_EMAIL:owner@example.com")
	stored, err := f.mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, f.email.last().code, stored)

	res, err = f.svc.Start(ctx, "CONFIRM_EMAIL", "owner@example.com")
	require.NoError(t, err)
	assert.False(t, res.CodeSent)
	assert.Equal(t, 1, f.email.count())
}

func TestResendOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "confirm_phone", "+15550100")
	require.NoError(t, err)
	require.Equal(t, 1, f.sms.count())

	res, err := f.svc.Resend(ctx, "CONFIRM_PHONE", "+15550100")
	assert.Equal(t, xerr.ErrResendThrottle, codeOf(t, err))
	assert.Equal(t, cooldown.OutcomeThrottled, res.Outcome)
	assert.Equal(t, 1, f.sms.count())

	f.fake.Advance(60 * time.Second)
	res, err = f.svc.Resend(ctx, "CONFIRM_PHONE", "+15550100")
	require.NoError(t, err)
	assert.Equal(t, cooldown.OutcomeResent, res.Outcome)
	assert.True(t, res.CodeSent)
	assert.Equal(t, 2, res.State.Attempts)
	assert.Equal(t, 2, f.sms.count())

	f.fake.Advance(120 * time.Second)
	_, err = f.svc.Resend(ctx, "CONFIRM_PHONE", "+15550100")
	require.NoError(t, err)

	f.fake.Advance(300 * time.Second)
	res, err = f.svc.Resend(ctx, "CONFIRM_PHONE", "+15550100")
	assert.Equal(t, xerr.ErrResendLocked, codeOf(t, err))
	assert.Equal(t, cooldown.OutcomeCooldownStarted, res.Outcome)
	assert.Equal(t, 3600.0, res.State.Cooldown)
	assert.Equal(t, 3, f.sms.count())

	res, err = f.svc.Resend(ctx, "CONFIRM_PHONE", "+15550100")
	assert.Equal(t, xerr.ErrResendLocked, codeOf(t, err))
	assert.Equal(t, cooldown.OutcomeLocked, res.Outcome)
}

func TestVerifyFinishesFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "CONFIRM_PASSWORD_RESET", "owner@example.com")
	require.NoError(t, err)
	code := f.email.last().code

	err = f.svc.Verify(ctx, "CONFIRM_PASSWORD_RESET", "owner@example.com", "not-it")
	assert.Equal(t, xerr.ErrCodeMismatch, codeOf(t, err))
	assert.Equal(t, 1, f.hub.Len())

	require.NoError(t, f.svc.Verify(ctx, "CONFIRM_PASSWORD_RESET", "owner@example.com", code))
	assert.Equal(t, 0, f.hub.Len())
	assert.Equal(t, 0, f.store.Len())

	err = f.svc.Verify(ctx, "CONFIRM_PASSWORD_RESET", "owner@example.com", code)
	assert.Equal(t, xerr.ErrCodeMismatch, codeOf(t, err))
}

func TestFirstSendFailureIsRetriedByStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.email.fail = errors.New("smtp down")

	res, err := f.svc.Start(ctx, "CONFIRM_EMAIL", "owner@example.com")
	assert.Equal(t, xerr.ErrSendFailed, codeOf(t, err))
	assert.False(t, res.CodeSent)
	assert.Equal(t, 0, f.hub.Len())
	assert.Equal(t, 0, f.store.Len())

	f.email.mu.Lock()
	f.email.fail = nil
	f.email.mu.Unlock()

	res, err = f.svc.Start(ctx, "CONFIRM_EMAIL", "owner@example.com")
	require.NoError(t, err)
	assert.True(t, res.CodeSent)
	assert.Equal(t, 1, f.email.count())
	assert.Equal(t, 1, res.State.Attempts)
}

func TestStatusBeforeStartDoesNotSwallowFirstCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Status(ctx, "CONFIRM_EMAIL", "owner@example.com")
	assert.Equal(t, xerr.ErrNotFound, codeOf(t, err))
	_, err = f.svc.Resend(ctx, "CONFIRM_EMAIL", "owner@example.com")
	assert.Equal(t, xerr.ErrNotFound, codeOf(t, err))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.hub.Len())

	res, err := f.svc.Start(ctx, "CONFIRM_EMAIL", "owner@example.com")
	require.NoError(t, err)
	assert.True(t, res.CodeSent)
	assert.Equal(t, 1, f.email.count())

	res, err = f.svc.Status(ctx, "CONFIRM_EMAIL", "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, 60.0, res.State.Timer)
	assert.Equal(t, 1, f.email.count())
}

func TestStatusRestoresEvictedInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "CONFIRM_PHONE", "+15550100")
	require.NoError(t, err)
	f.fake.Advance(20 * time.Second)
	require.Equal(t, 1, f.hub.EvictIdle(time.Second))

	res, err := f.svc.Status(ctx, "CONFIRM_PHONE", "+15550100")
	require.NoError(t, err)
	assert.Equal(t, 40.0, res.State.Timer)

	res, err = f.svc.Start(ctx, "CONFIRM_PHONE", "+15550100")
	require.NoError(t, err)
	assert.False(t, res.CodeSent)
	assert.Equal(t, 1, f.sms.count())
}

func TestSetAppState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAppState(ctx, "CONFIRM_EMAIL", "owner@example.com", "background")
	assert.Equal(t, xerr.ErrNotFound, codeOf(t, err))

	_, err = f.svc.Start(ctx, "CONFIRM_EMAIL", "owner@example.com")
	require.NoError(t, err)

	_, err = f.svc.SetAppState(ctx, "CONFIRM_EMAIL", "owner@example.com", "sleeping")
	assert.Equal(t, xerr.ErrInvalidInput, codeOf(t, err))

	_, err = f.svc.SetAppState(ctx, "CONFIRM_EMAIL", "owner@example.com", "background")
	require.NoError(t, err)
	f.fake.Set(epoch.Add(40 * time.Second))

	res, err := f.svc.SetAppState(ctx, "CONFIRM_EMAIL", "owner@example.com", "active")
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.State.Timer)
}

func TestInputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "CONFIRM_NOTHING", "owner@example.com")
	assert.Equal(t, xerr.ErrUnknownFlow, codeOf(t, err))

	_, err = f.svc.Start(ctx, "CONFIRM_EMAIL", "  ")
	assert.Equal(t, xerr.ErrMissingParameter, codeOf(t, err))

	_, err = f.svc.Start(ctx, "CONFIRM_EMAIL", "+15550100")
	assert.Equal(t, xerr.ErrInvalidInput, codeOf(t, err))

	err = f.svc.Verify(ctx, "CONFIRM_EMAIL", "owner@example.com", "")
	assert.Equal(t, xerr.ErrMissingParameter, codeOf(t, err))
}

func TestClosedHubReportsNotReady(t *testing.T) {
	f := newFixture(t)
	f.hub.Close()

	_, err := f.svc.Status(context.Background(), "CONFIRM_EMAIL", "owner@example.com")
	assert.Equal(t, xerr.ErrNotReady, codeOf(t, err))
}
