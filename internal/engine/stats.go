package engine

import (
	"sort"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// SourceYAML 配置文件中声明的任务，自动任务见 tasks.SourceSystem
const SourceYAML = "YAML"

// 任务状态
const (
	StatusIdle    = "Idle"
	StatusRunning = "Running"
	StatusError   = "Error"
)

// JobStats 任务运行时状态
type JobStats struct {
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	Status      string    `json:"status"`      // Idle, Running, Error
	LastRunTime string    `json:"last_run"`    // 格式化后的时间
	NextRunTime string    `json:"next_run"`    // 格式化后的时间
	LastResult  string    `json:"last_result"` // 成功或错误信息
	RunCount    int64     `json:"run_count"`
	Source      string    `json:"source"` // 任务来源 (SYSTEM, YAML)
	rawNext     time.Time
}

type StatManager struct {
	stats map[string]*JobStats
	mu    sync.RWMutex
}

func NewStatManager() *StatManager {
	return &StatManager{
		stats: make(map[string]*JobStats),
	}
}

func (m *StatManager) Set(name string, stat *JobStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[name] = stat
}

func (m *StatManager) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stats, name)
}

// Update 在锁内修改状态，任务不存在时返回 false
func (m *StatManager) Update(name string, fn func(*JobStats)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	stat, ok := m.stats[name]
	if !ok {
		return false
	}
	fn(stat)
	return true
}

// Get 返回副本
func (m *StatManager) Get(name string) (JobStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stat, ok := m.stats[name]
	if !ok {
		return JobStats{}, false
	}
	return *stat, true
}

func (m *StatManager) GetAll() []JobStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]JobStats, 0, len(m.stats))
	for _, s := range m.stats {
		list = append(list, *s)
	}
	// 按名称排序
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
