package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/internal/core"
	"github.com/boclar/booking-app-business-demo-sub000/internal/tasks"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/cooldown"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

const (
	// ProbeTaskName 存储探活任务
	ProbeTaskName = "sys:probe_store"
	ProbeCron     = "@every 1m"

	probeKey = "resend:probe"
)

// ProbeTask 写入、读取、删除一个探活键，失败时任务状态变为 Error
type ProbeTask struct {
	store cooldown.Store
}

func RegisterProbe(store cooldown.Store) {
	tasks.RegisterAuto(ProbeTaskName, ProbeCron, func() core.Task {
		return &ProbeTask{store: store}
	}, map[string]any{
		"timeout_seconds": 5,
	})
}

func (t *ProbeTask) Identifier() string {
	return ProbeTaskName
}

func (t *ProbeTask) Run(ctx context.Context, params map[string]any) error {
	timeout, err := core.SecondsParam(params, "timeout_seconds", 5*time.Second)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	value := start.UTC().Format(time.RFC3339Nano)
	if err := t.store.MultiSet(ctx, map[string]string{probeKey: value}); err != nil {
		return fmt.Errorf("probe write: %w", err)
	}
	got, ok, err := t.store.Get(ctx, probeKey)
	if err != nil {
		return fmt.Errorf("probe read: %w", err)
	}
	if !ok || got != value {
		return fmt.Errorf("probe read back %q, want %q", got, value)
	}
	if err := t.store.MultiRemove(ctx, []string{probeKey}); err != nil {
		return fmt.Errorf("probe cleanup: %w", err)
	}

	logger.Debug("store probe ok", zap.Duration("latency", time.Since(start)))
	return nil
}
