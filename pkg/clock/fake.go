package clock

import (
	"sync"
	"time"
)

// Fake 虚拟时钟，测试中通过 Advance 推进时间并同步触发到期的周期任务
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks map[int]*fakeTask
}

type fakeTask struct {
	id       int
	next     time.Time
	interval time.Duration
	fn       func()
}

var (
	_ Clock     = (*Fake)(nil)
	_ Scheduler = (*Fake)(nil)
)

// NewFake 创建从 start 开始的虚拟时钟
func NewFake(start time.Time) *Fake {
	return &Fake{
		now:   start,
		tasks: make(map[int]*fakeTask),
	}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Schedule(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		interval = time.Second
	}

	f.mu.Lock()
	f.seq++
	id := f.seq
	f.tasks[id] = &fakeTask{
		id:       id,
		next:     f.now.Add(interval),
		interval: interval,
		fn:       fn,
	}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.tasks, id)
		f.mu.Unlock()
	}
}

// Advance 推进 d，按到期时间顺序执行任务
// 回调执行时不持有锁，回调内可以再次 Schedule 或 cancel
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	end := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		var due *fakeTask
		for _, t := range f.tasks {
			if t.next.After(end) {
				continue
			}
			if due == nil || t.next.Before(due.next) || (t.next.Equal(due.next) && t.id < due.id) {
				due = t
			}
		}
		if due == nil {
			f.now = end
			f.mu.Unlock()
			return
		}
		f.now = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn
		f.mu.Unlock()

		fn()
	}
}

// Set 直接跳到指定时间，不触发任何任务（模拟进程挂起）
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
	for _, task := range f.tasks {
		if task.next.Before(t) {
			task.next = t.Add(task.interval)
		}
	}
}

// Pending 当前未取消的任务数
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}
