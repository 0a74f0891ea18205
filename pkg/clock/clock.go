package clock

import (
	"sync"
	"time"
)

// Clock 时间源
type Clock interface {
	Now() time.Time
}

// Scheduler 周期任务调度器
// Schedule 按 interval 周期执行 fn，返回的 cancel 用于取消（可重复调用）
type Scheduler interface {
	Schedule(interval time.Duration, fn func()) (cancel func())
}

// System 使用系统时间和 time.Ticker 的默认实现
var System = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Schedule(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
