package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of results kept per task.
const historyRetention = 100

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	ingest driving.IngestOrchestrator
	source driven.RecordSource
	tick   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
// source may be nil, in which case rescans do nothing.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	ingest driving.IngestOrchestrator,
	source driven.RecordSource,
) *Scheduler {
	return &Scheduler{
		config: config,
		store:  store,
		ingest: ingest,
		source: source,
		tick:   time.Minute,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled. A disabled scheduler returns immediately.
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
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	tasks := []struct {
		id, name string
	}{
		{domain.TaskIDRescan, "Corpus Rescan"},
		{domain.TaskIDReaggregate, "Facet Rebuild"},
	}

	var errs []error
	for _, t := range tasks {
		cfg := s.config.GetTaskConfig(t.id)
		if cfg.Interval <= 0 {
			continue
		}
		if err := s.ensureTask(ctx, t.id, t.name, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ensureTask creates or updates a task in the store.
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
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDRescan:
			result.ItemsProcessed, err = s.runRescan(ctx)
		case domain.TaskIDReaggregate:
			err = s.runReaggregate(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runRescan re-scans the record source and returns the number of
// newly ingested records. A scan already in progress is not an error.
func (s *Scheduler) runRescan(ctx context.Context) (int, error) {
	if s.ingest == nil || s.source == nil {
		return 0, nil
	}

	before := s.ingest.Status().RecordsIngested
	err := s.ingest.Ingest(ctx, s.source)
	if errors.Is(err, domain.ErrIngestInProgress) {
		return 0, nil
	}
	return s.ingest.Status().RecordsIngested - before, err
}

// runReaggregate rebuilds the facet index from the full corpus.
func (s *Scheduler) runReaggregate(ctx context.Context) error {
	if s.ingest == nil {
		return nil
	}
	return s.ingest.Reaggregate(ctx)
}
