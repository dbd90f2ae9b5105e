package domain

import (
	"errors"
	"time"
)

// ScheduleID is the unique identifier for a generation schedule
type ScheduleID string

// ScheduleStatus represents the current state of a schedule
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusPaused    ScheduleStatus = "paused"
	ScheduleStatusCompleted ScheduleStatus = "completed" // one-shot that has run
)

// ScheduleType differentiates one-shot from recurring schedules
type ScheduleType string

const (
	ScheduleTypeOneShot  ScheduleType = "one_shot" // run once at next_run
	ScheduleTypeInterval ScheduleType = "interval" // repeat every interval_sec
	ScheduleTypeDaily    ScheduleType = "daily"    // every day at hour:minute
)

// Schedule describes a recurring or one-shot newsletter generation trigger
// for a single user.
type Schedule struct {
	ID          ScheduleID     `json:"id"`
	Name        string         `json:"name"`
	UserID      string         `json:"user_id"`
	SessionID   string         `json:"session_id,omitempty"`
	Interests   string         `json:"interests,omitempty"`
	Notify      bool           `json:"notify"` // opt the launched run into completion notifications
	Type        ScheduleType   `json:"type"`
	IntervalSec int            `json:"interval_sec,omitempty"` // for Type=interval
	Hour        int            `json:"hour,omitempty"`         // for Type=daily
	Minute      int            `json:"minute,omitempty"`       // for Type=daily
	NextRun     time.Time      `json:"next_run"`
	LastRun     *time.Time     `json:"last_run,omitempty"`
	LastRunID   RunID          `json:"last_run_id,omitempty"`
	RunCount    int            `json:"run_count"`
	Status      ScheduleStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

var ErrScheduleNotFound = errors.New("schedule not found")

// Advance computes the schedule's next run time after an execution at now.
func (s *Schedule) Advance(now time.Time) {
	switch s.Type {
	case ScheduleTypeOneShot:
		s.Status = ScheduleStatusCompleted
	case ScheduleTypeInterval:
		if s.IntervalSec > 0 {
			s.NextRun = now.Add(time.Duration(s.IntervalSec) * time.Second)
		}
	case ScheduleTypeDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		s.NextRun = next
	}
}
