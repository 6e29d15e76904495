package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.True(t, config.Enabled)
	assert.Equal(t, time.Minute, config.Tick)
	assert.Len(t, config.TaskConfigs, 2)

	repair := config.GetTaskConfig(TaskIDRepair)
	assert.True(t, repair.Enabled)
	assert.Equal(t, time.Hour, repair.Interval)

	purge := config.GetTaskConfig(TaskIDCachePurge)
	assert.True(t, purge.Enabled)
	assert.Equal(t, DefaultCacheTTL, purge.Interval)
}

func TestSchedulerConfig_GetTaskConfig_Missing(t *testing.T) {
	var config SchedulerConfig
	assert.Equal(t, TaskConfig{}, config.GetTaskConfig(TaskIDRepair))
}

func TestScheduledTask_IsDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{"never scheduled", ScheduledTask{Enabled: true}, true},
		{"past", ScheduledTask{Enabled: true, NextRun: now.Add(-time.Second)}, true},
		{"exactly now", ScheduledTask{Enabled: true, NextRun: now}, true},
		{"future", ScheduledTask{Enabled: true, NextRun: now.Add(time.Second)}, false},
		{"disabled", ScheduledTask{NextRun: now.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsDue(now))
		})
	}
}
