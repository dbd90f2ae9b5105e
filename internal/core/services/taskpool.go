package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// PoolConfig defines concurrency limits for background tasks.
type PoolConfig struct {
	MaxConcurrent int64
	QueueSize     int
}

type task struct {
	name string
	fn   func(context.Context)
}

// TaskPool runs background tasks (run executions, watches) under a global
// concurrency limit. Tasks are queued and picked up by a supervised
// consumer loop; a panicking task is logged and released instead of
// taking the process down.
type TaskPool struct {
	logger    *slog.Logger
	pending   chan task
	semaphore *semaphore.Weighted
}

func NewTaskPool(logger *slog.Logger, cfg PoolConfig) *TaskPool {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 10
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 100
	}

	return &TaskPool{
		logger:    logger,
		pending:   make(chan task, queue),
		semaphore: semaphore.NewWeighted(limit),
	}
}

// Submit queues a task for execution. Returns an error when the queue is
// full so callers can surface backpressure instead of blocking, or when
// ctx was already cancelled.
func (p *TaskPool) Submit(ctx context.Context, name string, fn func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case p.pending <- task{name: name, fn: fn}:
		p.logger.Debug("task submitted", "task", name)
		return nil
	default:
		return errors.New("task queue full")
	}
}

// Run consumes the queue until ctx is cancelled. It blocks, so callers run
// it in its own goroutine or errgroup.
func (p *TaskPool) Run(ctx context.Context) error {
	p.logger.Info("starting task pool")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping task pool")
			return nil
		case t := <-p.pending:
			if err := p.semaphore.Acquire(ctx, 1); err != nil {
				return nil
			}

			go func(t task) {
				defer p.semaphore.Release(1)
				defer func() {
					if r := recover(); r != nil {
						p.logger.Error("task panicked", "task", t.name, "panic", fmt.Sprint(r))
					}
				}()
				t.fn(ctx)
			}(t)
		}
	}
}
