package duckdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/openpulse/pulse/internal/core/domain"
)

func (r *Repository) SaveSchedule(ctx context.Context, sched *domain.Schedule) error {
	var lastRunID *string
	if sched.LastRunID != "" {
		s := string(sched.LastRunID)
		lastRunID = &s
	}

	query := `
	INSERT INTO schedules (id, name, user_id, session_id, interests, notify, type, interval_sec, hour, minute, next_run, last_run, last_run_id, run_count, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		interests = excluded.interests,
		notify = excluded.notify,
		next_run = excluded.next_run,
		last_run = excluded.last_run,
		last_run_id = excluded.last_run_id,
		run_count = excluded.run_count,
		status = excluded.status;
	`

	_, err := r.db.ExecContext(ctx, query,
		sched.ID, sched.Name, sched.UserID, sched.SessionID, sched.Interests,
		sched.Notify, sched.Type, sched.IntervalSec, sched.Hour, sched.Minute,
		sched.NextRun, sched.LastRun, lastRunID, sched.RunCount, sched.Status,
		sched.CreatedAt,
	)
	return err
}

func (r *Repository) GetSchedule(ctx context.Context, id domain.ScheduleID) (*domain.Schedule, error) {
	query := `SELECT id, name, user_id, session_id, interests, notify, type, interval_sec, hour, minute, next_run, last_run, last_run_id, run_count, status, created_at FROM schedules WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	sched, err := scanSchedule(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return sched, nil
}

func (r *Repository) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	query := `SELECT id, name, user_id, session_id, interests, notify, type, interval_sec, hour, minute, next_run, last_run, last_run_id, run_count, status, created_at FROM schedules ORDER BY next_run ASC`
	return r.querySchedules(ctx, query)
}

func (r *Repository) DeleteSchedule(ctx context.Context, id domain.ScheduleID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	return err
}

func (r *Repository) GetDueSchedules(ctx context.Context, now time.Time) ([]domain.Schedule, error) {
	query := `SELECT id, name, user_id, session_id, interests, notify, type, interval_sec, hour, minute, next_run, last_run, last_run_id, run_count, status, created_at FROM schedules WHERE status = 'active' AND next_run <= ? ORDER BY next_run ASC`
	return r.querySchedules(ctx, query, now)
}

func (r *Repository) querySchedules(ctx context.Context, query string, args ...any) ([]domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

func scanSchedule(scan func(dest ...any) error) (*domain.Schedule, error) {
	var s domain.Schedule
	var idStr, typeStr, statusStr string
	var sessionID, interests, lastRunID *string

	err := scan(
		&idStr, &s.Name, &s.UserID, &sessionID, &interests,
		&s.Notify, &typeStr, &s.IntervalSec, &s.Hour, &s.Minute,
		&s.NextRun, &s.LastRun, &lastRunID, &s.RunCount, &statusStr,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.ID = domain.ScheduleID(idStr)
	s.Type = domain.ScheduleType(typeStr)
	s.Status = domain.ScheduleStatus(statusStr)
	if sessionID != nil {
		s.SessionID = *sessionID
	}
	if interests != nil {
		s.Interests = *interests
	}
	if lastRunID != nil {
		s.LastRunID = domain.RunID(*lastRunID)
	}
	return &s, nil
}
