package ports

import (
	"context"
	"time"

	"github.com/openpulse/pulse/internal/core/domain"
)

// Repository abstracts the persistent storage (DuckDB)
type Repository interface {
	// Runs
	SaveRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error)
	ListRuns(ctx context.Context) ([]domain.Run, error)

	// Newsletters
	SaveNewsletter(ctx context.Context, nl *domain.Newsletter) error
	GetNewsletter(ctx context.Context, id domain.NewsletterID) (*domain.Newsletter, error)
	ListNewsletters(ctx context.Context, userID string) ([]domain.Newsletter, error)

	// Schedules
	SaveSchedule(ctx context.Context, sched *domain.Schedule) error
	GetSchedule(ctx context.Context, id domain.ScheduleID) (*domain.Schedule, error)
	ListSchedules(ctx context.Context) ([]domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id domain.ScheduleID) error
	GetDueSchedules(ctx context.Context, now time.Time) ([]domain.Schedule, error)
}
