package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/db/objects"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/transaction"

	"gorm.io/gorm"
)

// DefaultKeep 每个任务保留的执行记录数
const DefaultKeep = 100

// JobLogRepo 任务执行记录，实现 engine.RunRecorder
type JobLogRepo struct {
	db   *gorm.DB
	tx   *transaction.Manager
	keep int
}

func NewJobLogRepo(db *gorm.DB, keep int) *JobLogRepo {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &JobLogRepo{db: db, tx: transaction.NewManager(db), keep: keep}
}

func (r *JobLogRepo) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&objects.JobRunLog{})
}

// RecordStart 开始记录日志
func (r *JobLogRepo) RecordStart(ctx context.Context, jobName, taskName string, start time.Time) (uint, error) {
	log := &objects.JobRunLog{
		JobName:   jobName,
		TaskName:  taskName,
		Status:    objects.JobRunRunning,
		StartTime: start,
	}
	if err := transaction.GetTransactionOrDB(ctx, r.db).Create(log).Error; err != nil {
		return 0, fmt.Errorf("create job log: %w", err)
	}
	return log.ID, nil
}

// RecordFinish 任务结束更新日志，并清理超出保留数的旧记录
func (r *JobLogRepo) RecordFinish(ctx context.Context, id uint, end time.Time, runErr error) error {
	return r.tx.Execute(ctx, nil, func(ctx context.Context) error {
		conn := transaction.GetTransactionOrDB(ctx, r.db)

		var log objects.JobRunLog
		if err := conn.Take(&log, id).Error; err != nil {
			return fmt.Errorf("load job log %d: %w", id, err)
		}

		log.Status = objects.JobRunSuccess
		if runErr != nil {
			log.Status = objects.JobRunFailed
			log.ErrorMsg = runErr.Error()
		}
		log.EndTime = &end
		log.DurationMs = end.Sub(log.StartTime).Milliseconds()
		if err := conn.Save(&log).Error; err != nil {
			return fmt.Errorf("update job log %d: %w", id, err)
		}

		return r.prune(conn, log.JobName)
	})
}

func (r *JobLogRepo) prune(conn *gorm.DB, jobName string) error {
	var ids []uint
	err := conn.Model(&objects.JobRunLog{}).
		Where("job_name = ?", jobName).
		Order("id desc").
		Offset(r.keep).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("find prunable job logs: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	err = conn.Where("job_name = ? AND id <= ?", jobName, ids[0]).Delete(&objects.JobRunLog{}).Error
	if err != nil {
		return fmt.Errorf("prune job logs: %w", err)
	}
	return nil
}

// ListLogs 最近的执行记录，新的在前
func (r *JobLogRepo) ListLogs(ctx context.Context, jobName string, limit int) ([]objects.JobRunLog, error) {
	if limit <= 0 || limit > r.keep {
		limit = r.keep
	}
	var list []objects.JobRunLog
	err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("id desc").
		Limit(limit).
		Find(&list).Error
	return list, err
}
