package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/openpulse/pulse/internal/core/domain"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxWait      = 10 * time.Minute
)

// RunSnapshot is a point-in-time view of a run's progress.
type RunSnapshot struct {
	Status domain.RunStatus
	Result *domain.RunResult
	Error  string
}

// RunHandle lets the watcher poll a run without knowing where it lives.
type RunHandle interface {
	Snapshot(ctx context.Context) (RunSnapshot, error)
}

// WatcherConfig tunes a single watch. Zero values fall back to the
// defaults (3s poll, 10m max wait).
type WatcherConfig struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

func (c WatcherConfig) withDefaults() WatcherConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	return c
}

// Watcher polls runs until they reach a terminal state and reports exactly
// one completion per watch to the notifier, treating timeout and
// cancellation as failures.
type Watcher struct {
	logger   *slog.Logger
	notifier *Notifier
}

func NewWatcher(logger *slog.Logger, notifier *Notifier) *Watcher {
	return &Watcher{logger: logger, notifier: notifier}
}

// Watch polls the handle until the run finishes, the max wait elapses, or
// ctx is cancelled. It always emits exactly one terminal notification for
// the run. Poll errors are logged and retried on the next tick; they never
// terminate the watch early.
func (w *Watcher) Watch(ctx context.Context, runID domain.RunID, handle RunHandle, cfg WatcherConfig) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.MaxWait)
	defer cancel()

	w.logger.Info("watching run",
		"run_id", runID,
		"poll_interval", cfg.PollInterval,
		"max_wait", cfg.MaxWait)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		if done := w.poll(ctx, runID, handle); done {
			return
		}

		select {
		case <-ctx.Done():
			w.logger.Warn("run watch timed out", "run_id", runID)
			w.notifier.NotifyCompletion(runID, Completion{
				Status: domain.NotificationFailed,
				Error:  "timeout",
			})
			return
		case <-ticker.C:
		}
	}
}

// poll takes one snapshot and, if the run is terminal, notifies. Reports
// whether the watch is finished.
func (w *Watcher) poll(ctx context.Context, runID domain.RunID, handle RunHandle) bool {
	snap, err := handle.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Warn("run snapshot failed", "run_id", runID, "error", err)
		return false
	}

	if !snap.Status.Terminal() {
		return false
	}

	completion := Completion{Error: snap.Error}
	if snap.Status == domain.RunStatusCompleted {
		completion.Status = domain.NotificationCompleted
		if snap.Result != nil {
			completion.Content = snap.Result.Content
			completion.CoverImageURL = snap.Result.CoverImageURL
		}
	} else {
		completion.Status = domain.NotificationFailed
		if completion.Error == "" {
			completion.Error = "workflow failed"
		}
	}

	w.notifier.NotifyCompletion(runID, completion)
	return true
}
