package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openpulse/pulse/internal/core/domain"
	"github.com/openpulse/pulse/internal/metrics"
)

const (
	// subscriberQueueSize bounds each subscriber's delivery channel. The
	// broadcaster never blocks on it: a subscriber that falls this far
	// behind is dropped instead of stalling everyone else.
	subscriberQueueSize = 256

	defaultMaxNotifications = 100
	defaultTTLSeconds       = 3600

	defaultUserID = "default"
)

type trackedRun struct {
	WorkflowID string
	UserID     string
	SessionID  string
	TrackedAt  time.Time
}

// Completion carries the terminal outcome reported for a run. WorkflowID and
// UserID act as fallbacks when the run was never tracked.
type Completion struct {
	Status        domain.NotificationStatus
	Content       string
	CoverImageURL string
	Error         string
	WorkflowID    string
	UserID        string
}

// Notifier tracks runs that asked for a completion notification, keeps a
// bounded history of completion records, and fans each record out to every
// live subscriber. One instance is constructed at startup and shared by
// reference; all mutation is serialized through its mutex.
type Notifier struct {
	logger  *slog.Logger
	metrics *metrics.Recorder // nil-safe

	mu      sync.Mutex
	tracked map[domain.RunID]trackedRun
	records map[domain.NotificationID]domain.Notification
	order   []domain.NotificationID // insertion order, oldest first
	subs    map[string]chan domain.Notification

	maxNotifications int
	ttlSeconds       int
}

// NewNotifier creates a notifier. maxNotifications bounds the stored history
// (oldest records are evicted beyond it); ttlSeconds is advisory and only
// surfaced through Stats.
func NewNotifier(logger *slog.Logger, rec *metrics.Recorder, maxNotifications, ttlSeconds int) *Notifier {
	if maxNotifications <= 0 {
		maxNotifications = defaultMaxNotifications
	}
	if ttlSeconds <= 0 {
		ttlSeconds = defaultTTLSeconds
	}
	return &Notifier{
		logger:           logger,
		metrics:          rec,
		tracked:          make(map[domain.RunID]trackedRun),
		records:          make(map[domain.NotificationID]domain.Notification),
		subs:             make(map[string]chan domain.Notification),
		maxNotifications: maxNotifications,
		ttlSeconds:       ttlSeconds,
	}
}

// Track registers a run for notification delivery. A no-op unless enable is
// true. Re-tracking the same run overwrites the previous entry.
func (n *Notifier) Track(runID domain.RunID, workflowID, userID, sessionID string, enable bool) {
	if !enable {
		return
	}

	n.mu.Lock()
	n.tracked[runID] = trackedRun{
		WorkflowID: workflowID,
		UserID:     userID,
		SessionID:  sessionID,
		TrackedAt:  time.Now(),
	}
	n.mu.Unlock()

	n.logger.Info("tracking run for notifications", "run_id", runID)
}

// NotifyCompletion builds a notification record for the run's terminal
// outcome, stores it, and broadcasts it to all subscribers. A run with no
// tracking entry still produces a record using synthesized context. The
// tracking entry, if any, is consumed: a second call for the same run is
// treated as untracked.
func (n *Notifier) NotifyCompletion(runID domain.RunID, c Completion) domain.Notification {
	n.mu.Lock()

	meta, wasTracked := n.tracked[runID]
	if !wasTracked {
		meta = trackedRun{
			WorkflowID: c.WorkflowID,
			UserID:     c.UserID,
			SessionID:  sessionPlaceholder(runID),
			TrackedAt:  time.Now(),
		}
		if meta.WorkflowID == "" {
			meta.WorkflowID = domain.DefaultWorkflowID
		}
		if meta.UserID == "" {
			meta.UserID = defaultUserID
		}
	}

	record := domain.Notification{
		ID:            domain.NotificationID(uuid.New().String()),
		RunID:         runID,
		WorkflowID:    meta.WorkflowID,
		UserID:        meta.UserID,
		SessionID:     meta.SessionID,
		Status:        c.Status,
		Content:       c.Content,
		CoverImageURL: c.CoverImageURL,
		Error:         c.Error,
		CreatedAt:     time.Now(),
	}

	n.records[record.ID] = record
	n.order = append(n.order, record.ID)
	n.evictLocked()

	dropped := n.broadcastLocked(record)

	delete(n.tracked, runID)
	n.mu.Unlock()

	if !wasTracked {
		n.logger.Info("run not pre-tracked, notifying anyway", "run_id", runID)
	}
	for _, clientID := range dropped {
		n.logger.Warn("subscriber queue full, dropping subscriber", "client_id", clientID)
		n.metrics.SubscriberDropped()
	}
	n.metrics.NotificationStored(string(c.Status))
	n.logger.Info("notification sent", "run_id", runID, "status", c.Status)

	return record
}

// broadcastLocked enqueues the record to every subscriber without blocking.
// Returns the client IDs that were dropped. Must be called with mu held.
func (n *Notifier) broadcastLocked(record domain.Notification) []string {
	var dropped []string
	for clientID, ch := range n.subs {
		select {
		case ch <- record:
		default:
			close(ch)
			delete(n.subs, clientID)
			dropped = append(dropped, clientID)
		}
	}
	return dropped
}

// evictLocked trims the stored history to maxNotifications, oldest first.
// Must be called with mu held.
func (n *Notifier) evictLocked() {
	for len(n.order) > n.maxNotifications {
		oldest := n.order[0]
		n.order = n.order[1:]
		delete(n.records, oldest)
	}
}

// Subscribe registers a new subscriber and returns its client ID and
// delivery channel. The channel yields every notification broadcast after
// this call, in broadcast order. It is closed when the subscriber is
// dropped or unsubscribed.
func (n *Notifier) Subscribe() (string, <-chan domain.Notification) {
	clientID := uuid.New().String()
	ch := make(chan domain.Notification, subscriberQueueSize)

	n.mu.Lock()
	n.subs[clientID] = ch
	total := len(n.subs)
	n.mu.Unlock()

	n.metrics.SubscriberAdded()
	n.logger.Info("new subscriber", "client_id", clientID, "total", total)
	return clientID, ch
}

// Unsubscribe removes a subscriber. Idempotent: unknown or already-dropped
// client IDs are ignored.
func (n *Notifier) Unsubscribe(clientID string) {
	n.mu.Lock()
	ch, ok := n.subs[clientID]
	if ok {
		close(ch)
		delete(n.subs, clientID)
	}
	remaining := len(n.subs)
	n.mu.Unlock()

	if ok {
		n.metrics.SubscriberRemoved()
		n.logger.Info("unsubscribed", "client_id", clientID, "remaining", remaining)
	}
}

// Recent returns up to limit stored notifications, newest first.
func (n *Notifier) Recent(limit int) []domain.Notification {
	if limit <= 0 {
		limit = 10
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	result := make([]domain.Notification, 0, limit)
	for i := len(n.order) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, n.records[n.order[i]])
	}
	return result
}

// Stats returns a snapshot of the notifier's state.
func (n *Notifier) Stats() domain.NotifierStats {
	n.mu.Lock()
	defer n.mu.Unlock()

	return domain.NotifierStats{
		TrackedRuns:         len(n.tracked),
		StoredNotifications: len(n.records),
		ActiveSubscribers:   len(n.subs),
		MaxNotifications:    n.maxNotifications,
		TTLSeconds:          n.ttlSeconds,
	}
}

// sessionPlaceholder fabricates a stable session ID for untracked runs.
func sessionPlaceholder(runID domain.RunID) string {
	id := string(runID)
	if len(id) > 8 {
		id = id[:8]
	}
	return "session_" + id
}
