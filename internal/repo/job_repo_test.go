package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/pkg/db"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/db/objects"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T, keep int) *JobLogRepo {
	t.Helper()
	conn, err := db.OpenGorm(sqlite.Open("file::memory:"), "silent")
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := NewJobLogRepo(conn, keep)
	require.NoError(t, r.AutoMigrate(context.Background()))
	return r
}

func TestRecordRun(t *testing.T) {
	r := newRepo(t, 10)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id, err := r.RecordStart(ctx, "evict", "sys:evict_idle_cooldowns", start)
	require.NoError(t, err)

	logs, err := r.ListLogs(ctx, "evict", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, objects.JobRunRunning, logs[0].Status)

	require.NoError(t, r.RecordFinish(ctx, id, start.Add(1500*time.Millisecond), errors.New("boom")))

	logs, err = r.ListLogs(ctx, "evict", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, objects.JobRunFailed, logs[0].Status)
	assert.Equal(t, "boom", logs[0].ErrorMsg)
	assert.Equal(t, int64(1500), logs[0].DurationMs)
	require.NotNil(t, logs[0].EndTime)
}

func TestRecordFinishPrunesOldLogs(t *testing.T) {
	r := newRepo(t, 3)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var last uint
	for i := 0; i < 5; i++ {
		id, err := r.RecordStart(ctx, "evict", "sys:evict_idle_cooldowns", start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, r.RecordFinish(ctx, id, start.Add(time.Duration(i)*time.Minute+time.Second), nil))
		last = id
	}
	other, err := r.RecordStart(ctx, "other", "x", start)
	require.NoError(t, err)
	require.NoError(t, r.RecordFinish(ctx, other, start, nil))

	logs, err := r.ListLogs(ctx, "evict", 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, last, logs[0].ID)
	assert.Equal(t, objects.JobRunSuccess, logs[0].Status)

	logs, err = r.ListLogs(ctx, "other", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRecordFinishUnknownID(t *testing.T) {
	r := newRepo(t, 3)
	assert.Error(t, r.RecordFinish(context.Background(), 42, time.Now(), nil))
}
