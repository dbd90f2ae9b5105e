package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openpulse/pulse/internal/core/domain"
	"github.com/openpulse/pulse/internal/core/ports"
)

const (
	// Scheduler-launched runs are watched with a tighter budget than
	// interactive ones.
	schedulerPollInterval = 5 * time.Second
	schedulerMaxWait      = 5 * time.Minute

	defaultSchedulerTick = 1 * time.Minute
)

// Scheduler checks for due schedules on a fixed tick and launches a
// newsletter run for each. Schedules that opted into notifications get
// their run tracked and watched so subscribers hear about the outcome.
type Scheduler struct {
	logger   *slog.Logger
	repo     ports.Repository
	executor *Executor
	watcher  *Watcher
	notifier *Notifier
	pool     *TaskPool
	tick     time.Duration
}

func NewScheduler(logger *slog.Logger, repo ports.Repository, executor *Executor, watcher *Watcher, notifier *Notifier, pool *TaskPool, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = defaultSchedulerTick
	}
	return &Scheduler{
		logger:   logger,
		repo:     repo,
		executor: executor,
		watcher:  watcher,
		notifier: notifier,
		pool:     pool,
		tick:     tick,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "check_interval", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.checkAndLaunch(ctx)
		}
	}
}

func (s *Scheduler) checkAndLaunch(ctx context.Context) {
	now := time.Now()
	due, err := s.repo.GetDueSchedules(ctx, now)
	if err != nil {
		s.logger.Error("failed to get due schedules", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Info("launching due schedules", "count", len(due))
	for _, sched := range due {
		s.launch(ctx, sched, now)
	}
}

// launch starts one run for the schedule and advances its next-run time.
// The schedule is advanced even when the launch fails so a broken schedule
// cannot hot-loop on every tick.
func (s *Scheduler) launch(ctx context.Context, sched domain.Schedule, now time.Time) {
	s.logger.Info("launching scheduled run", "schedule_id", sched.ID, "name", sched.Name)

	run, err := s.executor.StartRun(ctx, RunInput{
		UserID:    sched.UserID,
		SessionID: sched.SessionID,
		Interests: sched.Interests,
	})
	if err != nil {
		s.logger.Error("failed to start scheduled run", "schedule_id", sched.ID, "error", err)
	} else {
		s.notifier.Track(run.ID, run.WorkflowID, run.UserID, run.SessionID, sched.Notify)

		runID := run.ID
		if err := s.pool.Submit(ctx, fmt.Sprintf("run-%s", runID), func(taskCtx context.Context) {
			s.executor.Execute(taskCtx, runID)
		}); err != nil {
			s.logger.Error("failed to queue scheduled run", "run_id", runID, "error", err)
		}
		if err := s.pool.Submit(ctx, fmt.Sprintf("watch-%s", runID), func(taskCtx context.Context) {
			s.watcher.Watch(taskCtx, runID, s.executor.Handle(runID), WatcherConfig{
				PollInterval: schedulerPollInterval,
				MaxWait:      schedulerMaxWait,
			})
		}); err != nil {
			s.logger.Error("failed to queue run watch", "run_id", runID, "error", err)
		}

		sched.LastRunID = runID
	}

	sched.LastRun = &now
	sched.RunCount++
	sched.Advance(now)

	if err := s.repo.SaveSchedule(ctx, &sched); err != nil {
		s.logger.Error("failed to save schedule after launch", "schedule_id", sched.ID, "error", err)
	}
}
