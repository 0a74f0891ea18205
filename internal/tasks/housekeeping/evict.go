package housekeeping

import (
	"context"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/internal/core"
	"github.com/boclar/booking-app-business-demo-sub000/internal/tasks"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

const (
	// EvictTaskName 关闭空闲控制器的任务名
	EvictTaskName = "sys:evict_idle_cooldowns"
	EvictCron     = "@every 1m"

	DefaultIdle = 10 * time.Minute
)

// Evicter 由 registry.Hub 实现
type Evicter interface {
	EvictIdle(maxIdle time.Duration) int
}

type EvictTask struct {
	hub Evicter
}

// Register 注册为自动任务，params.idle_seconds 控制空闲阈值
func Register(hub Evicter) {
	tasks.RegisterAuto(EvictTaskName, EvictCron, func() core.Task {
		return &EvictTask{hub: hub}
	}, map[string]any{
		"idle_seconds": int(DefaultIdle / time.Second),
	})
}

func (t *EvictTask) Identifier() string {
	return EvictTaskName
}

func (t *EvictTask) Run(ctx context.Context, params map[string]any) error {
	idle, err := core.SecondsParam(params, "idle_seconds", DefaultIdle)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n := t.hub.EvictIdle(idle)
	logger.Debug("evict idle cooldowns", zap.Duration("idle", idle), zap.Int("evicted", n))
	return nil
}
