package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// historyKeep is how many results are retained per task.
const historyKeep = 100

// TaskFunc runs one maintenance task and reports how many items it processed.
type TaskFunc func(ctx context.Context) (int, error)

type taskRunner struct {
	name string
	fn   TaskFunc
}

// Scheduler runs registered maintenance tasks at their configured intervals.
// It is a pure core service with no external control API.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.TaskStore
	runners map[string]taskRunner

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(config domain.SchedulerConfig, store driven.TaskStore) *Scheduler {
	if config.Tick <= 0 {
		config.Tick = time.Minute
	}
	return &Scheduler{
		config:   config,
		store:    store,
		runners:  make(map[string]taskRunner),
		inFlight: make(map[string]bool),
	}
}

// Register adds a task. Tasks without an enabled TaskConfig never run.
func (s *Scheduler) Register(id, name string, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[id] = taskRunner{name: name, fn: fn}
}

// MaintenanceTasks registers the repair and cache purge tasks against rag.
func (s *Scheduler) MaintenanceTasks(rag *RAGService, collections []string) {
	s.Register(domain.TaskIDRepair, "Repair zero-filled points", func(ctx context.Context) (int, error) {
		total := 0
		for _, c := range collections {
			n, err := rag.RepairCollection(ctx, c)
			if err != nil {
				return total, fmt.Errorf("repair %s: %w", c, err)
			}
			total += n
		}
		return total, nil
	})
	s.Register(domain.TaskIDCachePurge, "Purge expired searches", func(_ context.Context) (int, error) {
		return rag.PurgeCache(), nil
	})
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns the persisted state of every task.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.ListTasks(ctx)
}

// initialiseTasks ensures all registered, enabled tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	s.mu.Lock()
	names := make(map[string]string, len(s.runners))
	ids := make([]string, 0, len(s.runners))
	for id, r := range s.runners {
		names[id] = r.name
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)

	for _, id := range ids {
		if err := s.ensureTask(ctx, id, names[id], s.config.GetTaskConfig(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store. New tasks are due
// immediately.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Name = name
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context, stopCh chan struct{}) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		if tasks[i].IsDue(now) {
			s.runTask(ctx, tasks[i])
		}
	}
}

// runTask executes a task in the background unless it is already running.
func (s *Scheduler) runTask(ctx context.Context, task domain.ScheduledTask) {
	s.mu.Lock()
	runner, ok := s.runners[task.ID]
	if !ok || s.inFlight[task.ID] {
		s.mu.Unlock()
		if !ok {
			logger.Debug("scheduler: no runner for task %s", task.ID)
		}
		return
	}
	s.inFlight[task.ID] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{TaskID: task.ID, StartedAt: time.Now()}
		n, err := runner.fn(ctx)
		result.EndedAt = time.Now()
		result.ItemsProcessed = n

		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("scheduler: task %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
			logger.Debug("scheduler: task %s processed %d items", task.ID, n)
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, &task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(ctx, historyKeep); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}
