package domain

import "time"

type NotificationID string

// NotificationStatus is the terminal outcome reported by a notification.
type NotificationStatus string

const (
	NotificationCompleted NotificationStatus = "completed"
	NotificationFailed    NotificationStatus = "failed"
	// NotificationRunning is a valid tracking state but never appears on a
	// stored notification record.
	NotificationRunning NotificationStatus = "running"
)

// Notification describes one finished workflow run. It is immutable once
// created: a later state change for the same run produces a new record.
type Notification struct {
	ID            NotificationID     `json:"notification_id"`
	RunID         RunID              `json:"run_id"`
	WorkflowID    string             `json:"workflow_id"`
	UserID        string             `json:"user_id"`
	SessionID     string             `json:"session_id"`
	Status        NotificationStatus `json:"status"`
	Content       string             `json:"content,omitempty"`
	CoverImageURL string             `json:"cover_image_url,omitempty"`
	Error         string             `json:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NotifierStats is the read-only snapshot returned by the stats endpoint.
type NotifierStats struct {
	TrackedRuns         int `json:"tracked_runs"`
	StoredNotifications int `json:"stored_notifications"`
	ActiveSubscribers   int `json:"active_subscribers"`
	MaxNotifications    int `json:"max_notifications"`
	TTLSeconds          int `json:"ttl_seconds"`
}
