package domain

import "time"

// Maintenance task IDs.
const (
	// TaskIDRepair re-embeds points stored with a zero vector.
	TaskIDRepair = "repair-zero-filled"

	// TaskIDCachePurge drops expired search cache entries.
	TaskIDCachePurge = "cache-purge"
)

// ScheduledTask is a recurring maintenance task and its last outcome.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty when the last run succeeded.
	LastError string
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// TaskResult records one execution of a task.
type TaskResult struct {
	TaskID         string
	StartedAt      time.Time
	EndedAt        time.Time
	Success        bool
	Error          string
	ItemsProcessed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// Tick is how often due tasks are checked.
	Tick time.Duration

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns configuration for a task, or a disabled zero value.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig runs repair hourly and purges the cache every
// cache TTL.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		Tick:    time.Minute,
		TaskConfigs: map[string]TaskConfig{
			TaskIDRepair: {
				Enabled:  true,
				Interval: time.Hour,
			},
			TaskIDCachePurge: {
				Enabled:  true,
				Interval: DefaultCacheTTL,
			},
		},
	}
}
