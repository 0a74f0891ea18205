package objects

import "time"

// 任务执行状态
const (
	JobRunRunning = 0
	JobRunSuccess = 1
	JobRunFailed  = 2
)

// JobRunLog 对应 job_run_logs 表，每次执行一行
type JobRunLog struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	JobName    string     `gorm:"index;size:128" json:"job_name"`
	TaskName   string     `gorm:"size:128" json:"task_name"`
	Status     int        `json:"status"` // 0 Running, 1 Success, 2 Failed
	ErrorMsg   string     `gorm:"type:text" json:"error_msg,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
}

func (JobRunLog) TableName() string {
	return "job_run_logs"
}
