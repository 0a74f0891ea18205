package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/clock"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/cooldown"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/lifecycle"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

// Options 创建控制器时共用的依赖
type Options struct {
	Store     cooldown.Store
	Clock     clock.Clock
	Scheduler clock.Scheduler
	Heartbeat cooldown.HeartbeatPolicy
	// Defaults 中的 InstanceKey 会被忽略
	Defaults cooldown.Config
}

type entry struct {
	flow       Flow
	target     string
	ctrl       *cooldown.Controller
	emitter    *lifecycle.Emitter
	appState   lifecycle.AppState
	createdAt  time.Time
	lastAccess time.Time
}

// ControllerStats 单个控制器的快照
type ControllerStats struct {
	Key        string         `json:"key"`
	Flow       Flow           `json:"flow"`
	Target     string         `json:"target"`
	AppState   string         `json:"app_state"`
	State      cooldown.State `json:"state"`
	CreatedAt  string         `json:"created_at"`
	LastAccess string         `json:"last_access"`
}

// Hub 按 <FLOW>:<target> 持有控制器，首次使用时创建并加载
//
// 每个控制器有独立的 lifecycle.Emitter，客户端上报的前后台状态只影响自己的倒计时。
type Hub struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

func NewHub(opts Options) (*Hub, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is nil", cooldown.ErrInvalidConfig)
	}
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Scheduler == nil {
		if s, ok := opts.Clock.(clock.Scheduler); ok {
			opts.Scheduler = s
		} else {
			opts.Scheduler = clock.System
		}
	}
	if opts.Heartbeat == nil {
		opts.Heartbeat = cooldown.NativeHeartbeat{}
	}
	return &Hub{
		opts:    opts,
		log:     logger.Logger.Named("hub"),
		entries: make(map[string]*entry),
	}, nil
}

// ErrNotStarted 实例既未加载，也没有持久化状态
var ErrNotStarted = errors.New("cooldown not started")

// Open 返回已加载的控制器，created 表示本次新建
func (h *Hub) Open(ctx context.Context, flow Flow, target string) (ctrl *cooldown.Controller, created bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openLocked(ctx, flow, target, false)
}

// OpenExisting 只打开已加载或已持久化的实例，从未开始过的返回 ErrNotStarted
// 查询类操作走这里，不会为陌生 target 写入默认状态
func (h *Hub) OpenExisting(ctx context.Context, flow Flow, target string) (*cooldown.Controller, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctrl, _, err := h.openLocked(ctx, flow, target, true)
	return ctrl, err
}

func (h *Hub) openLocked(ctx context.Context, flow Flow, target string, mustExist bool) (*cooldown.Controller, bool, error) {
	if h.closed {
		return nil, false, cooldown.ErrClosed
	}

	key := InstanceKey(flow, target)
	now := h.opts.Clock.Now()
	if e, ok := h.entries[key]; ok {
		e.lastAccess = now
		return e.ctrl, false, nil
	}

	if mustExist {
		values, err := h.opts.Store.MultiGet(ctx, cooldown.KeysFor(key).All())
		if err != nil {
			return nil, false, fmt.Errorf("open %s: %w", key, err)
		}
		if len(values) == 0 {
			return nil, false, ErrNotStarted
		}
	}

	cfg := h.opts.Defaults
	cfg.InstanceKey = key
	emitter := lifecycle.NewEmitter()
	ctrl, err := cooldown.NewController(cfg, h.opts.Store,
		cooldown.WithClock(h.opts.Clock),
		cooldown.WithScheduler(h.opts.Scheduler),
		cooldown.WithHeartbeat(h.opts.Heartbeat),
		cooldown.WithLifecycle(emitter),
	)
	if err != nil {
		return nil, false, err
	}
	if err := ctrl.Load(ctx); err != nil {
		ctrl.Close()
		return nil, false, err
	}

	h.entries[key] = &entry{
		flow:       flow,
		target:     target,
		ctrl:       ctrl,
		emitter:    emitter,
		appState:   lifecycle.Active,
		createdAt:  now,
		lastAccess: now,
	}
	h.log.Debug("controller opened", zap.String("key", key), zap.Bool("restored", ctrl.Restored()))
	return ctrl, true, nil
}

// Get 只查找，不创建
func (h *Hub) Get(flow Flow, target string) (*cooldown.Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[InstanceKey(flow, target)]
	if !ok {
		return nil, false
	}
	e.lastAccess = h.opts.Clock.Now()
	return e.ctrl, true
}

// Publish 转发客户端的前后台状态，控制器不存在时返回 false
func (h *Hub) Publish(flow Flow, target string, state lifecycle.AppState) bool {
	h.mu.Lock()
	e, ok := h.entries[InstanceKey(flow, target)]
	if ok {
		e.lastAccess = h.opts.Clock.Now()
		e.appState = state
	}
	h.mu.Unlock()

	if !ok {
		return false
	}
	e.emitter.Publish(state)
	return true
}

// Finish 验证完成：停止控制器并清除持久化状态
// 清除完成前持有锁，同一实例的并发 Open 只能读到清空后的存储
func (h *Hub) Finish(ctx context.Context, flow Flow, target string) error {
	key := InstanceKey(flow, target)

	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.entries[key]; ok {
		delete(h.entries, key)
		e.ctrl.Close()
		if err := e.ctrl.ResetStorage(ctx); err != nil {
			return fmt.Errorf("finish %s: %w", key, err)
		}
		return nil
	}

	// 未加载的实例也要清掉残留数据
	if err := h.opts.Store.MultiRemove(ctx, cooldown.KeysFor(key).All()); err != nil {
		return fmt.Errorf("finish %s: %w", key, err)
	}
	return nil
}

// EvictIdle 关闭超过 maxIdle 未访问的控制器，返回关闭数量
// 关闭前按进入后台处理，下次加载时扣除期间流逝的时间
func (h *Hub) EvictIdle(maxIdle time.Duration) int {
	now := h.opts.Clock.Now()

	h.mu.Lock()
	var idle []*entry
	for key, e := range h.entries {
		if now.Sub(e.lastAccess) >= maxIdle {
			idle = append(idle, e)
			delete(h.entries, key)
		}
	}
	h.mu.Unlock()

	for _, e := range idle {
		h.release(e)
	}
	if len(idle) > 0 {
		h.log.Info("idle controllers evicted", zap.Int("count", len(idle)), zap.Duration("max_idle", maxIdle))
	}
	return len(idle)
}

// Close 关闭全部控制器，之后 Open 返回 cooldown.ErrClosed
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	entries := h.entries
	h.entries = make(map[string]*entry)
	h.mu.Unlock()

	for _, e := range entries {
		h.release(e)
	}
}

func (h *Hub) release(e *entry) {
	e.emitter.Publish(lifecycle.Background)
	e.ctrl.Close()
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Snapshot 全部控制器状态，按 key 排序
func (h *Hub) Snapshot() []ControllerStats {
	h.mu.Lock()
	entries := make([]entry, 0, len(h.entries))
	for _, e := range h.entries {
		entries = append(entries, *e)
	}
	h.mu.Unlock()

	list := make([]ControllerStats, 0, len(entries))
	for _, e := range entries {
		list = append(list, ControllerStats{
			Key:        e.ctrl.InstanceKey(),
			Flow:       e.flow,
			Target:     e.target,
			AppState:   string(e.appState),
			State:      e.ctrl.State(),
			CreatedAt:  e.createdAt.Format(time.RFC3339),
			LastAccess: e.lastAccess.Format(time.RFC3339),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}
