package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func testSchedulerConfig(tasks map[string]domain.TaskConfig) domain.SchedulerConfig {
	return domain.SchedulerConfig{Enabled: true, Tick: 10 * time.Millisecond, TaskConfigs: tasks}
}

// startScheduler runs s in the background and returns a func that stops it.
func startScheduler(t *testing.T, s *Scheduler) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	return func() {
		require.NoError(t, s.Stop())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestScheduler_RunsDueTaskAndRecordsResult(t *testing.T) {
	store := memory.NewTaskStore()
	s := NewScheduler(testSchedulerConfig(map[string]domain.TaskConfig{
		"count": {Enabled: true, Interval: time.Hour},
	}), store)

	ran := make(chan struct{})
	var calls atomic.Int32
	s.Register("count", "Count things", func(_ context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(ran)
		}
		return 7, nil
	})

	stop := startScheduler(t, s)
	waitFor(t, ran)
	stop()

	assert.Equal(t, int32(1), calls.Load(), "interval keeps the task from running again")

	task, err := store.GetTask(context.Background(), "count")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Count things", task.Name)
	assert.Empty(t, task.LastError)
	assert.False(t, task.LastSuccess.IsZero())
	assert.WithinDuration(t, task.LastRun.Add(time.Hour), task.NextRun, time.Second)

	history, err := store.GetTaskHistory(context.Background(), "count", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 7, history[0].ItemsProcessed)
}

func TestScheduler_RecordsFailure(t *testing.T) {
	store := memory.NewTaskStore()
	s := NewScheduler(testSchedulerConfig(map[string]domain.TaskConfig{
		"flaky": {Enabled: true, Interval: time.Hour},
	}), store)

	ran := make(chan struct{})
	s.Register("flaky", "Flaky", func(_ context.Context) (int, error) {
		defer close(ran)
		return 0, errors.New("backend down")
	})

	stop := startScheduler(t, s)
	waitFor(t, ran)
	stop()

	task, err := store.GetTask(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, "backend down", task.LastError)
	assert.True(t, task.LastSuccess.IsZero())

	history, _ := store.GetTaskHistory(context.Background(), "flaky", 1)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Equal(t, "backend down", history[0].Error)
}

func TestScheduler_DisabledTaskDoesNotRun(t *testing.T) {
	store := memory.NewTaskStore()
	s := NewScheduler(testSchedulerConfig(map[string]domain.TaskConfig{
		"off": {Enabled: false, Interval: time.Millisecond},
		"on":  {Enabled: true, Interval: time.Hour},
	}), store)

	var offCalls atomic.Int32
	ran := make(chan struct{})
	s.Register("off", "Off", func(_ context.Context) (int, error) {
		offCalls.Add(1)
		return 0, nil
	})
	s.Register("on", "On", func(_ context.Context) (int, error) {
		close(ran)
		return 0, nil
	})

	stop := startScheduler(t, s)
	waitFor(t, ran)
	time.Sleep(30 * time.Millisecond)
	stop()

	assert.Zero(t, offCalls.Load())
	tasks, err := s.Tasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestScheduler_DisabledSchedulerReturnsImmediately(t *testing.T) {
	s := NewScheduler(domain.SchedulerConfig{Enabled: false}, memory.NewTaskStore())
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := NewScheduler(testSchedulerConfig(nil), memory.NewTaskStore())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_MaintenanceTasksRepairZeroFilled(t *testing.T) {
	f := newRAGFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateCollection(ctx, "docs", 3, domain.DistanceCosine))
	require.NoError(t, f.store.Upsert(ctx, "docs", []domain.Point{{
		ID:     PointID("d1", 0),
		Vector: []float32{0, 0, 0},
		Payload: domain.Payload{
			DocumentID:      "d1",
			Content:         "orphaned chunk",
			EmbeddingStatus: domain.EmbeddingZeroFilled,
		},
	}}))

	store := memory.NewTaskStore()
	s := NewScheduler(testSchedulerConfig(map[string]domain.TaskConfig{
		domain.TaskIDRepair: {Enabled: true, Interval: time.Hour},
	}), store)
	s.MaintenanceTasks(f.svc, []string{"docs"})

	stop := startScheduler(t, s)
	require.Eventually(t, func() bool {
		h, _ := store.GetTaskHistory(ctx, domain.TaskIDRepair, 1)
		return len(h) == 1
	}, 5*time.Second, 10*time.Millisecond)
	stop()

	history, _ := store.GetTaskHistory(ctx, domain.TaskIDRepair, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 1, history[0].ItemsProcessed)

	hits, err := f.store.Retrieve(ctx, "docs", []string{PointID("d1", 0)})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.EmbeddingOK, hits[0].Payload.EmbeddingStatus)
}
