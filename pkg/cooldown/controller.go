package cooldown

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/clock"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/lifecycle"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

// TickInterval 倒计时步长
const TickInterval = time.Second

// Outcome TriggerResendCode 的处理结果
type Outcome string

const (
	// OutcomeNotReady 尚未完成加载，忽略
	OutcomeNotReady Outcome = "not_ready"
	// OutcomeThrottled 间隔未到，忽略
	OutcomeThrottled Outcome = "throttled"
	// OutcomeLocked 冷却中，忽略
	OutcomeLocked Outcome = "locked"
	// OutcomeResent 允许重发，调用方应发送新验证码
	OutcomeResent Outcome = "resent"
	// OutcomeCooldownStarted 次数用完，进入冷却
	OutcomeCooldownStarted Outcome = "cooldown_started"
)

// Controller 验证码重发冷却控制器
//
// 状态变更都会整体写回 Store；倒计时由 Scheduler 每秒驱动，
// 应用进入后台时暂停，回到前台时按 lastUpdate 扣除流逝时间。
type Controller struct {
	cfg       Config
	keys      Keys
	store     Store
	clock     clock.Clock
	scheduler clock.Scheduler
	heartbeat HeartbeatPolicy
	source    lifecycle.Source
	log       *zap.Logger
	bg        context.Context

	mu          sync.Mutex
	state       State
	ready       bool
	restored    bool
	closed      bool
	appState    lifecycle.AppState
	cancelTick  func()
	tickGen     uint64
	unsubscribe func()
}

type Option func(*Controller)

// WithClock 同时作为 Scheduler 使用（如果实现了）
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
		if s, ok := c.(clock.Scheduler); ok {
			ctrl.scheduler = s
		}
	}
}

func WithScheduler(s clock.Scheduler) Option {
	return func(ctrl *Controller) { ctrl.scheduler = s }
}

func WithHeartbeat(h HeartbeatPolicy) Option {
	return func(ctrl *Controller) { ctrl.heartbeat = h }
}

// WithLifecycle 订阅前后台信号，Load 完成后生效
func WithLifecycle(src lifecycle.Source) Option {
	return func(ctrl *Controller) { ctrl.source = src }
}

func NewController(cfg Config, store Store, opts ...Option) (*Controller, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is nil", ErrInvalidConfig)
	}

	c := &Controller{
		cfg:       cfg,
		keys:      KeysFor(cfg.InstanceKey),
		store:     store,
		clock:     clock.System,
		scheduler: clock.System,
		heartbeat: NativeHeartbeat{},
		bg:        context.Background(),
		state:     DefaultState(cfg),
		appState:  lifecycle.Active,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.Logger.With(
		zap.String("instance", cfg.InstanceKey),
		zap.String("heartbeat", c.heartbeat.Name()),
	)
	return c, nil
}

func (c *Controller) InstanceKey() string { return c.cfg.InstanceKey }

func (c *Controller) Config() Config { return c.cfg }

// State 当前状态快照
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready 是否已完成加载
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Restored 加载时是否读到了已有数据
func (c *Controller) Restored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restored
}

// Load 从 Store 恢复状态，扣除距 lastUpdate 的流逝时间，然后开始倒计时并订阅前后台信号
// 缺失的键按默认值处理；重复调用无副作用
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.ready {
		return nil
	}

	values, err := c.store.MultiGet(ctx, c.keys.All())
	if err != nil {
		return fmt.Errorf("load cooldown state %s: %w", c.cfg.InstanceKey, err)
	}

	st := c.decode(values)
	adjusted := false
	if st.LastUpdate > 0 {
		elapsed := elapsedSeconds(c.nowMs(), st.LastUpdate)
		st.elapse(elapsed, c.cfg)
		adjusted = true
		c.log.Debug("cooldown elapsed on load", zap.Float64("elapsed", elapsed))
	}

	c.state = st
	c.restored = len(values) > 0

	// 扣除过流逝时间后重新锚定 lastUpdate，避免下次加载重复扣除
	if err := c.saveLocked(ctx, adjusted || c.heartbeat.StampOnSave()); err != nil {
		return err
	}
	c.ready = true

	if c.source != nil {
		c.unsubscribe = c.source.Subscribe(c.handleAppState)
	}
	c.restartTickerLocked()

	c.log.Info("cooldown loaded",
		zap.Bool("restored", c.restored),
		zap.Int("attempts", st.Attempts),
		zap.Float64("timer", st.Timer),
		zap.Float64("cooldown", st.Cooldown),
	)
	return nil
}

// Tick 执行一秒倒计时，通常由 Scheduler 调用
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickLocked(ctx)
}

func (c *Controller) tickLocked(ctx context.Context) error {
	if !c.ready || c.closed {
		return nil
	}

	before := c.state
	c.state.tick(c.cfg)
	if c.state == before {
		c.syncTickerLocked()
		return nil
	}

	if before.CooldownEnabled && !c.state.CooldownEnabled {
		c.log.Info("cooldown finished", zap.Int("attempts", c.state.Attempts))
	}

	err := c.saveLocked(ctx, c.heartbeat.StampOnSave())
	c.syncTickerLocked()
	return err
}

// TriggerResendCode 用户请求重发
// 只有返回 OutcomeResent 时调用方才应真正发送验证码
func (c *Controller) TriggerResendCode(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready || c.closed {
		return OutcomeNotReady, nil
	}

	s := &c.state
	if !s.ResendCodeEnabled {
		if s.CooldownEnabled {
			return OutcomeLocked, nil
		}
		return OutcomeThrottled, nil
	}

	var outcome Outcome
	if s.Attempts < c.cfg.MaxAttempts {
		s.Attempts++
		s.Timer = c.cfg.timerAt(s.ResendCodeIndex)
		if s.ResendCodeIndex < len(c.cfg.InitialTimers)-1 {
			s.ResendCodeIndex++
		}
		s.ResendCodeEnabled = false
		outcome = OutcomeResent
	} else {
		s.ResendCodeEnabled = false
		s.Cooldown = c.cfg.CooldownPeriod
		s.CooldownEnabled = true
		outcome = OutcomeCooldownStarted
	}

	c.log.Info("resend code triggered",
		zap.String("outcome", string(outcome)),
		zap.Int("attempts", s.Attempts),
		zap.Float64("timer", s.Timer),
		zap.Float64("cooldown", s.Cooldown),
	)

	err := c.saveLocked(ctx, c.heartbeat.StampOnSave())
	c.restartTickerLocked()
	return outcome, err
}

// ResetStorage 删除该实例的全部持久化数据，不修改内存状态
// 验证成功后调用，避免后续流程继承旧的冷却状态
func (c *Controller) ResetStorage(ctx context.Context) error {
	if err := c.store.MultiRemove(ctx, c.keys.All()); err != nil {
		return fmt.Errorf("reset cooldown storage %s: %w", c.cfg.InstanceKey, err)
	}
	return nil
}

// OnAppStateChange 处理前后台切换
//
// 挂起 -> active：读取已持久化的 lastUpdate，扣除流逝秒数后恢复倒计时；
// 没有 lastUpdate 时不做任何扣除。
// active -> 挂起：停止倒计时并写入 lastUpdate。
func (c *Controller) OnAppStateChange(ctx context.Context, prev, next lifecycle.AppState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appStateChangeLocked(ctx, prev, next)
}

func (c *Controller) handleAppState(next lifecycle.AppState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.appStateChangeLocked(c.bg, c.appState, next); err != nil {
		c.log.Error("app state change", zap.String("next", string(next)), zap.Error(err))
	}
}

func (c *Controller) appStateChangeLocked(ctx context.Context, prev, next lifecycle.AppState) error {
	c.appState = next
	if !c.ready || c.closed {
		return nil
	}

	switch {
	case prev.Suspended() && next == lifecycle.Active:
		defer c.restartTickerLocked()

		raw, ok, err := c.store.Get(ctx, c.keys.LastUpdate)
		if err != nil {
			return fmt.Errorf("read last update %s: %w", c.cfg.InstanceKey, err)
		}
		if !ok {
			return nil
		}
		lastUpdate, err := decodeNumber(raw)
		if err != nil {
			c.log.Warn("ignore malformed last update", zap.String("raw", raw), zap.Error(err))
			return nil
		}

		elapsed := elapsedSeconds(c.nowMs(), int64(lastUpdate))
		c.state.elapse(elapsed, c.cfg)
		c.log.Debug("cooldown resumed", zap.Float64("elapsed", elapsed),
			zap.Float64("timer", c.state.Timer), zap.Float64("cooldown", c.state.Cooldown))
		return c.saveLocked(ctx, true)

	case next.Suspended():
		c.stopTickerLocked()
		if prev.Suspended() {
			return nil
		}
		return c.saveLocked(ctx, true)
	}
	return nil
}

// Close 取消订阅和倒计时，已发出的存储请求不受影响
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTickerLocked()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) saveLocked(ctx context.Context, stamp bool) error {
	entries := c.state.encode(c.keys)
	if stamp {
		c.state.LastUpdate = c.nowMs()
		entries[c.keys.LastUpdate] = fmt.Sprint(c.state.LastUpdate)
	}
	if err := c.store.MultiSet(ctx, entries); err != nil {
		return fmt.Errorf("save cooldown state %s: %w", c.cfg.InstanceKey, err)
	}
	return nil
}

func (c *Controller) restartTickerLocked() {
	c.stopTickerLocked()
	c.syncTickerLocked()
}

// syncTickerLocked 有倒计时且处于前台时保持一个 1s 周期任务，否则取消
func (c *Controller) syncTickerLocked() {
	run := c.ready && !c.closed && !c.appState.Suspended() && c.state.counting()
	switch {
	case run && c.cancelTick == nil:
		c.tickGen++
		gen := c.tickGen
		c.cancelTick = c.scheduler.Schedule(TickInterval, func() { c.onTick(gen) })
	case !run && c.cancelTick != nil:
		c.stopTickerLocked()
	}
}

func (c *Controller) stopTickerLocked() {
	if c.cancelTick != nil {
		c.cancelTick()
		c.cancelTick = nil
	}
	c.tickGen++
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// 已取消的周期任务可能还有一次在途回调
	if gen != c.tickGen {
		return
	}
	if err := c.tickLocked(c.bg); err != nil {
		c.log.Error("cooldown tick", zap.Error(err))
	}
}

func (c *Controller) decode(values map[string]string) State {
	st := DefaultState(c.cfg)

	number := func(key string, dst *float64) {
		raw, ok := values[key]
		if !ok {
			return
		}
		v, err := decodeNumber(raw)
		if err != nil {
			c.log.Warn("ignore malformed value", zap.String("key", key), zap.String("raw", raw))
			return
		}
		*dst = v
	}
	integer := func(key string, dst *int) {
		f := float64(*dst)
		number(key, &f)
		*dst = int(math.Round(f))
	}
	boolean := func(key string, dst *bool) {
		raw, ok := values[key]
		if !ok {
			return
		}
		v, err := decodeBool(raw)
		if err != nil {
			c.log.Warn("ignore malformed value", zap.String("key", key), zap.String("raw", raw))
			return
		}
		*dst = v
	}

	integer(c.keys.Attempts, &st.Attempts)
	integer(c.keys.ResendCodeIndex, &st.ResendCodeIndex)
	number(c.keys.Timer, &st.Timer)
	number(c.keys.Cooldown, &st.Cooldown)
	boolean(c.keys.CooldownEnabled, &st.CooldownEnabled)
	boolean(c.keys.ResendCodeEnabled, &st.ResendCodeEnabled)

	var lastUpdate float64
	number(c.keys.LastUpdate, &lastUpdate)
	st.LastUpdate = int64(lastUpdate)

	if st.Attempts < 1 {
		st.Attempts = 1
	}
	if st.ResendCodeIndex < 1 {
		st.ResendCodeIndex = 1
	}
	return st
}

func (c *Controller) nowMs() int64 {
	return c.clock.Now().UnixMilli()
}
