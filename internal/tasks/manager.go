package tasks

import (
	"fmt"
	"sync"

	"github.com/boclar/booking-app-business-demo-sub000/internal/core"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"

	"go.uber.org/zap"
)

// SourceSystem 自动任务的来源标记
const SourceSystem = "SYSTEM"

type Scheduler interface {
	AddJob(cronExpr, taskName, uniqueJobName string, params map[string]any, source string) error
}

// ApplyAutoJobs 把自动任务加入调度器，返回成功数量
func ApplyAutoJobs(sched Scheduler) int {
	mu.RLock()
	jobs := make([]*AutoJob, len(autoJobs))
	copy(jobs, autoJobs)
	mu.RUnlock()

	loaded := 0
	for _, job := range jobs {
		err := sched.AddJob(job.Cron, job.Name, job.Name, job.Params, SourceSystem)
		if err != nil {
			logger.Error("load auto job failed", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		loaded++
		logger.Info("auto job loaded", zap.String("job", job.Name), zap.String("cron", job.Cron))
	}
	return loaded
}

// AutoJob 定义一个“自启动任务”的结构
type AutoJob struct {
	Name    string           // 任务唯一标识
	Cron    string           // Cron 表达式
	Creator core.TaskCreator // 构造函数
	Params  map[string]any   // 默认参数
}

var (
	registry = make(map[string]core.TaskCreator) // 普通任务注册（供 Config 调用）
	autoJobs = make([]*AutoJob, 0)               // 自动任务列表
	mu       sync.RWMutex
)

// Register 注册任务实现，供配置文件中的 jobs 引用
func Register(name string, creator core.TaskCreator) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = creator
}

// RegisterAuto 注册并自动启动，同名任务重复注册时替换之前的定义
func RegisterAuto(name string, cron string, creator core.TaskCreator, defaultParams map[string]any) {
	mu.Lock()
	defer mu.Unlock()

	registry[name] = creator

	job := &AutoJob{
		Name:    name,
		Cron:    cron,
		Creator: creator,
		Params:  defaultParams,
	}
	for i, existing := range autoJobs {
		if existing.Name == name {
			autoJobs[i] = job
			return
		}
	}
	autoJobs = append(autoJobs, job)
}

func GetTask(name string) (core.Task, error) {
	mu.RLock()
	defer mu.RUnlock()
	creator, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("task implementation '%s' not found", name)
	}
	return creator(), nil
}
