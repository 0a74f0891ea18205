package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/internal/registry"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/cooldown"
	apperr "github.com/boclar/booking-app-business-demo-sub000/pkg/errors"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/lifecycle"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/message/verification"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/xerr"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const maxTargetLen = 254

// SenderProvider 按类型提供验证码发送器，verification.CodeSenderFactory 实现了它
type SenderProvider interface {
	GetCodeSender(codeType verification.CodeType) (verification.CodeSender, error)
}

type Options struct {
	CodeLength int
	CodeTTL    time.Duration
}

// Result 接口返回的控制器视图
type Result struct {
	Flow     registry.Flow    `json:"flow"`
	Target   string           `json:"target"`
	Outcome  cooldown.Outcome `json:"outcome,omitempty"`
	CodeSent bool             `json:"code_sent"`
	State    cooldown.State   `json:"state"`
}

// Resender 把冷却控制器和验证码投递串起来
// 只有 OutcomeResent 和首次打开会真正发出验证码
type Resender struct {
	hub     *registry.Hub
	senders SenderProvider
	codes   redis.Cmdable
	opts    Options
	log     *zap.Logger
}

func NewResender(hub *registry.Hub, senders SenderProvider, codes redis.Cmdable, opts Options) *Resender {
	if opts.CodeLength <= 0 {
		opts.CodeLength = verification.DefaultCodeLength
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = verification.DefaultCodeTTL
	}
	return &Resender{
		hub:     hub,
		senders: senders,
		codes:   codes,
		opts:    opts,
		log:     logger.Logger.Named("resend"),
	}
}

// Start 打开控制器；从未持久化过的实例会发出第一条验证码
// 发送失败时清除本次创建的状态，重试 Start 会再发一次
func (r *Resender) Start(ctx context.Context, flowRaw, target string) (Result, error) {
	flow, target, err := parseTarget(flowRaw, target)
	if err != nil {
		return Result{}, err
	}
	ctrl, created, err := r.open(ctx, flow, target)
	if err != nil {
		return Result{}, err
	}

	res := Result{Flow: flow, Target: target, State: ctrl.State()}
	if !created || ctrl.Restored() {
		return res, nil
	}

	if err := r.deliver(ctx, flow, target); err != nil {
		// 第一条没发出去就撤销本次打开，下次 Start 重新发送
		if ferr := r.hub.Finish(ctx, flow, target); ferr != nil {
			r.log.Error("discard cooldown after send failure", zap.String("flow", string(flow)), zap.String("target", target), zap.Error(ferr))
		}
		return res, err
	}
	res.CodeSent = true
	return res, nil
}

// Status 当前状态，必要时从存储加载；未开始过的实例返回 ErrNotFound
func (r *Resender) Status(ctx context.Context, flowRaw, target string) (Result, error) {
	flow, target, err := parseTarget(flowRaw, target)
	if err != nil {
		return Result{}, err
	}
	ctrl, err := r.openExisting(ctx, flow, target)
	if err != nil {
		return Result{}, err
	}
	return Result{Flow: flow, Target: target, State: ctrl.State()}, nil
}

// Resend 请求重发，节流和冷却时返回带状态的错误
func (r *Resender) Resend(ctx context.Context, flowRaw, target string) (Result, error) {
	flow, target, err := parseTarget(flowRaw, target)
	if err != nil {
		return Result{}, err
	}
	ctrl, err := r.openExisting(ctx, flow, target)
	if err != nil {
		return Result{}, err
	}

	outcome, err := ctrl.TriggerResendCode(ctx)
	res := Result{Flow: flow, Target: target, Outcome: outcome, State: ctrl.State()}
	if err != nil {
		return res, apperr.Wrap(xerr.STORAGE_ERROR, "persist cooldown state failed", err)
	}

	switch outcome {
	case cooldown.OutcomeResent:
		if err := r.deliver(ctx, flow, target); err != nil {
			return res, err
		}
		res.CodeSent = true
		return res, nil
	case cooldown.OutcomeThrottled:
		return res, apperr.New(xerr.ErrResendThrottle, "resend not available yet")
	case cooldown.OutcomeLocked, cooldown.OutcomeCooldownStarted:
		return res, apperr.New(xerr.ErrResendLocked, "too many attempts, try again later")
	default:
		return res, apperr.New(xerr.ErrNotReady, "cooldown state not loaded")
	}
}

// Verify 校验验证码，成功后清除该实例的冷却状态
func (r *Resender) Verify(ctx context.Context, flowRaw, target, code string) error {
	flow, target, err := parseTarget(flowRaw, target)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return apperr.New(xerr.ErrMissingParameter, "code is required")
	}

	sender, err := r.senders.GetCodeSender(flow.CodeType())
	if err != nil {
		return apperr.Wrap(xerr.SERVER_COMMON_ERROR, "code sender unavailable", err)
	}
	key := verification.RedisKey(flow.CodeType(), registry.InstanceKey(flow, target))
	ok, err := sender.VerifyCode(ctx, r.codes, key, code)
	if err != nil {
		return apperr.Wrap(xerr.STORAGE_ERROR, "verify code failed", err)
	}
	if !ok {
		return apperr.New(xerr.ErrCodeMismatch, "invalid or expired code")
	}

	if err := r.hub.Finish(ctx, flow, target); err != nil {
		return apperr.Wrap(xerr.STORAGE_ERROR, "reset cooldown state failed", err)
	}
	r.log.Info("verification finished", zap.String("flow", string(flow)), zap.String("target", target))
	return nil
}

// SetAppState 转发客户端前后台状态
func (r *Resender) SetAppState(ctx context.Context, flowRaw, target, stateRaw string) (Result, error) {
	flow, target, err := parseTarget(flowRaw, target)
	if err != nil {
		return Result{}, err
	}
	state, err := lifecycle.ParseAppState(stateRaw)
	if err != nil {
		return Result{}, apperr.Wrap(xerr.ErrInvalidInput, "invalid app state", err)
	}
	if !r.hub.Publish(flow, target, state) {
		return Result{}, apperr.New(xerr.ErrNotFound, "no active cooldown for target")
	}
	ctrl, ok := r.hub.Get(flow, target)
	if !ok {
		return Result{}, apperr.New(xerr.ErrNotFound, "no active cooldown for target")
	}
	return Result{Flow: flow, Target: target, State: ctrl.State()}, nil
}

func (r *Resender) Snapshot() []registry.ControllerStats {
	return r.hub.Snapshot()
}

func (r *Resender) open(ctx context.Context, flow registry.Flow, target string) (*cooldown.Controller, bool, error) {
	ctrl, created, err := r.hub.Open(ctx, flow, target)
	if err != nil {
		if errors.Is(err, cooldown.ErrClosed) {
			return nil, false, apperr.Wrap(xerr.ErrNotReady, "service shutting down", err)
		}
		return nil, false, apperr.Wrap(xerr.STORAGE_ERROR, "load cooldown state failed", err)
	}
	return ctrl, created, nil
}

func (r *Resender) openExisting(ctx context.Context, flow registry.Flow, target string) (*cooldown.Controller, error) {
	ctrl, err := r.hub.OpenExisting(ctx, flow, target)
	switch {
	case err == nil:
		return ctrl, nil
	case errors.Is(err, registry.ErrNotStarted):
		return nil, apperr.New(xerr.ErrNotFound, "no active cooldown for target, call start first")
	case errors.Is(err, cooldown.ErrClosed):
		return nil, apperr.Wrap(xerr.ErrNotReady, "service shutting down", err)
	default:
		return nil, apperr.Wrap(xerr.STORAGE_ERROR, "load cooldown state failed", err)
	}
}

// deliver 生成、保存并发送新验证码，旧验证码被覆盖
func (r *Resender) deliver(ctx context.Context, flow registry.Flow, target string) error {
	codeType := flow.CodeType()
	sender, err := r.senders.GetCodeSender(codeType)
	if err != nil {
		return apperr.Wrap(xerr.SERVER_COMMON_ERROR, "code sender unavailable", err)
	}

	code := sender.GenerateCode(r.opts.CodeLength)
	key := verification.RedisKey(codeType, registry.InstanceKey(flow, target))
	if err := sender.SaveCode(ctx, r.codes, key, code, r.opts.CodeTTL); err != nil {
		return apperr.Wrap(xerr.STORAGE_ERROR, "save code failed", err)
	}
	if err := sender.SendCode(ctx, target, code); err != nil {
		r.log.Error("send code failed", zap.String("flow", string(flow)), zap.String("target", target), zap.Error(err))
		return apperr.Wrap(xerr.ErrSendFailed, "send code failed", err)
	}
	return nil
}

func parseTarget(flowRaw, target string) (registry.Flow, string, error) {
	flow, err := registry.ParseFlow(flowRaw)
	if err != nil {
		return "", "", apperr.Wrap(xerr.ErrUnknownFlow, "unknown flow", err)
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", apperr.New(xerr.ErrMissingParameter, "target is required")
	}
	if len(target) > maxTargetLen {
		return "", "", apperr.New(xerr.ErrInvalidInput, "target too long")
	}
	if flow.CodeType() == verification.CodeTypeEmail && !strings.Contains(target, "@") {
		return "", "", apperr.New(xerr.ErrInvalidInput, "target must be an email address")
	}
	return flow, target, nil
}
