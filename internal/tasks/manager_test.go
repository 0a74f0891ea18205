package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/boclar/booking-app-business-demo-sub000/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopTask struct{ id string }

func (t nopTask) Run(context.Context, map[string]any) error { return nil }
func (t nopTask) Identifier() string                        { return t.id }

type recordingScheduler struct {
	added []string
	fail  map[string]bool
}

func (s *recordingScheduler) AddJob(cronExpr, taskName, uniqueJobName string, params map[string]any, source string) error {
	if s.fail[taskName] {
		return errors.New("rejected")
	}
	s.added = append(s.added, uniqueJobName+"|"+cronExpr+"|"+source)
	return nil
}

func TestRegisterAndGetTask(t *testing.T) {
	Register("test:nop", func() core.Task { return nopTask{id: "test:nop"} })

	task, err := GetTask("test:nop")
	require.NoError(t, err)
	assert.Equal(t, "test:nop", task.Identifier())

	_, err = GetTask("test:missing")
	assert.Error(t, err)
}

func TestRegisterAutoReplacesSameName(t *testing.T) {
	RegisterAuto("test:auto", "@every 1m", func() core.Task { return nopTask{id: "a"} }, nil)
	RegisterAuto("test:auto", "@every 5m", func() core.Task { return nopTask{id: "b"} }, nil)
	RegisterAuto("test:auto_broken", "@every 1m", func() core.Task { return nopTask{} }, nil)

	sched := &recordingScheduler{fail: map[string]bool{"test:auto_broken": true}}
	loaded := ApplyAutoJobs(sched)

	assert.Contains(t, sched.added, "test:auto|@every 5m|SYSTEM")
	assert.NotContains(t, sched.added, "test:auto|@every 1m|SYSTEM")
	assert.Equal(t, len(sched.added), loaded)

	task, err := GetTask("test:auto")
	require.NoError(t, err)
	assert.Equal(t, "b", task.Identifier())
}
