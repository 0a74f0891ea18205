package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/internal/core"
	"github.com/boclar/booking-app-business-demo-sub000/internal/tasks"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/clock"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobTimeout 单次任务执行超时
const JobTimeout = 5 * time.Minute

var _ clock.Scheduler = (*Scheduler)(nil)

// RunRecorder 持久化每次任务执行，repo.JobLogRepo 实现了它
type RunRecorder interface {
	RecordStart(ctx context.Context, jobName, taskName string, start time.Time) (uint, error)
	RecordFinish(ctx context.Context, id uint, end time.Time, runErr error) error
}

type registeredJob struct {
	task    core.Task
	params  map[string]any
	entryID cron.EntryID
}

// Scheduler 基于 cron 的调度器
// 既运行定时任务，也为冷却控制器提供每秒倒计时（clock.Scheduler）
type Scheduler struct {
	cron     *cron.Cron
	Stats    *StatManager
	log      *zap.Logger
	recorder RunRecorder

	mu         sync.RWMutex
	registered map[string]registeredJob
}

func NewScheduler() *Scheduler {
	l := logger.Logger.Named("scheduler")
	cl := cronLogger{l.Sugar()}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		Stats:      NewStatManager(),
		log:        l,
		registered: make(map[string]registeredJob),
	}
}

// SetRecorder 需在 Start 之前调用
func (s *Scheduler) SetRecorder(r RunRecorder) {
	s.recorder = r
}

func (s *Scheduler) Recorder() RunRecorder {
	return s.recorder
}

// fixedDelay 第一次触发在加入后整整一个间隔
// cron.Every 会把起点截到整秒，重启倒计时时首个 tick 可能提前最多一秒
type fixedDelay time.Duration

func (d fixedDelay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// Schedule 按固定间隔执行 fn，间隔不足一秒按一秒处理
func (s *Scheduler) Schedule(interval time.Duration, fn func()) func() {
	if interval < time.Second {
		interval = time.Second
	}
	id := s.cron.Schedule(fixedDelay(interval), cron.FuncJob(fn))

	var once sync.Once
	return func() {
		once.Do(func() { s.cron.Remove(id) })
	}
}

// AddJob 添加任务
func (s *Scheduler) AddJob(cronExpr, taskName, uniqueJobName string, params map[string]any, source string) error {
	// 1. 获取任务实现
	taskInstance, err := tasks.GetTask(taskName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.registered[uniqueJobName]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %s already scheduled", uniqueJobName)
	}
	s.registered[uniqueJobName] = registeredJob{task: taskInstance, params: params}
	s.mu.Unlock()

	// 2. 初始化状态
	s.Stats.Set(uniqueJobName, &JobStats{
		Name:       uniqueJobName,
		CronExpr:   cronExpr,
		Status:     StatusIdle,
		LastResult: "Pending",
		Source:     source,
	})

	// 3. 加入 Cron
	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.runTaskWithStats(uniqueJobName, taskInstance, params)
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		delete(s.registered, uniqueJobName)
		s.Stats.Delete(uniqueJobName)
		return fmt.Errorf("add job %s: %w", uniqueJobName, err)
	}
	reg := s.registered[uniqueJobName]
	reg.entryID = entryID
	s.registered[uniqueJobName] = reg

	s.refreshNext(uniqueJobName, entryID)
	return nil
}

// refreshNext 更新下次执行时间
func (s *Scheduler) refreshNext(name string, id cron.EntryID) {
	entry := s.cron.Entry(id)
	if entry.ID == 0 {
		return
	}
	next := entry.Next
	if next.IsZero() {
		// cron 未启动前 Next 为空，按表达式推算
		next = entry.Schedule.Next(time.Now())
	}
	s.Stats.Update(name, func(stat *JobStats) {
		stat.rawNext = next
		stat.NextRunTime = next.Format(timeLayout)
	})
}

// runTaskWithStats 执行并记录状态
func (s *Scheduler) runTaskWithStats(name string, task core.Task, params map[string]any) {
	s.Stats.Update(name, func(stat *JobStats) {
		stat.Status = StatusRunning
		stat.LastRunTime = time.Now().Format(timeLayout)
		stat.RunCount++
	})

	s.log.Debug("job started", zap.String("job", name), zap.String("task", task.Identifier()))

	ctx, cancel := context.WithTimeout(context.Background(), JobTimeout)
	defer cancel()

	var runID uint
	if s.recorder != nil {
		id, err := s.recorder.RecordStart(ctx, name, task.Identifier(), time.Now())
		if err != nil {
			s.log.Warn("record job start", zap.String("job", name), zap.Error(err))
		}
		runID = id
	}

	err := task.Run(ctx, params)

	if s.recorder != nil && runID != 0 {
		if rerr := s.recorder.RecordFinish(context.Background(), runID, time.Now(), err); rerr != nil {
			s.log.Warn("record job finish", zap.String("job", name), zap.Error(rerr))
		}
	}

	s.Stats.Update(name, func(stat *JobStats) {
		if err != nil {
			stat.LastResult = fmt.Sprintf("Error: %v", err)
			stat.Status = StatusError
		} else {
			stat.LastResult = "Success"
			stat.Status = StatusIdle
		}
	})

	s.mu.RLock()
	id := s.registered[name].entryID
	s.mu.RUnlock()
	s.refreshNext(name, id)

	if err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Debug("job finished", zap.String("job", name))
}

// ManualRun 手动触发
func (s *Scheduler) ManualRun(uniqueJobName string) error {
	s.mu.RLock()
	reg, ok := s.registered[uniqueJobName]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", uniqueJobName)
	}
	go s.runTaskWithStats(uniqueJobName, reg.task, reg.params)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 将 cron 日志转到 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
