package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpulse/pulse/internal/core/domain"
)

func newTestScheduler(t *testing.T, repo *memRepo) (*Scheduler, *Notifier) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	notifier := NewNotifier(logger, nil, 0, 0)
	exec := newTestExecutor(t, repo, fakeContent{text: "# Scheduled Digest\n\nbody"}, nil)
	watcher := NewWatcher(logger, notifier)
	pool := NewTaskPool(logger, PoolConfig{})

	return NewScheduler(logger, repo, exec, watcher, notifier, pool, 10*time.Millisecond), notifier
}

func activeSchedule(typ domain.ScheduleType, notify bool) domain.Schedule {
	return domain.Schedule{
		ID:        "sched-1",
		Name:      "morning digest",
		UserID:    "alice",
		SessionID: "sess-1",
		Interests: "golang",
		Notify:    notify,
		Type:      typ,
		NextRun:   time.Now().Add(-time.Second),
		Status:    domain.ScheduleStatusActive,
		CreatedAt: time.Now(),
	}
}

func TestScheduler_LaunchAdvancesInterval(t *testing.T) {
	repo := newMemRepo()
	s, _ := newTestScheduler(t, repo)

	sched := activeSchedule(domain.ScheduleTypeInterval, false)
	sched.IntervalSec = 3600
	require.NoError(t, repo.SaveSchedule(context.Background(), &sched))

	now := time.Now()
	s.checkAndLaunch(context.Background())

	saved, err := repo.GetSchedule(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.RunCount)
	require.NotNil(t, saved.LastRun)
	assert.NotEmpty(t, saved.LastRunID)
	assert.True(t, saved.NextRun.After(now.Add(59*time.Minute)))
	assert.Equal(t, domain.ScheduleStatusActive, saved.Status)

	// A run was created for the schedule's user.
	runs, err := repo.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "alice", runs[0].UserID)
}

func TestScheduler_OneShotCompletes(t *testing.T) {
	repo := newMemRepo()
	s, _ := newTestScheduler(t, repo)

	sched := activeSchedule(domain.ScheduleTypeOneShot, false)
	require.NoError(t, repo.SaveSchedule(context.Background(), &sched))

	s.checkAndLaunch(context.Background())

	saved, err := repo.GetSchedule(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStatusCompleted, saved.Status)

	// A completed one-shot never fires again.
	s.checkAndLaunch(context.Background())
	saved, _ = repo.GetSchedule(context.Background(), sched.ID)
	assert.Equal(t, 1, saved.RunCount)
}

func TestScheduler_PausedScheduleIgnored(t *testing.T) {
	repo := newMemRepo()
	s, _ := newTestScheduler(t, repo)

	sched := activeSchedule(domain.ScheduleTypeInterval, false)
	sched.Status = domain.ScheduleStatusPaused
	require.NoError(t, repo.SaveSchedule(context.Background(), &sched))

	s.checkAndLaunch(context.Background())

	saved, err := repo.GetSchedule(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.RunCount)
}

func TestScheduler_NotifyTracksRun(t *testing.T) {
	repo := newMemRepo()
	s, notifier := newTestScheduler(t, repo)

	sched := activeSchedule(domain.ScheduleTypeOneShot, true)
	require.NoError(t, repo.SaveSchedule(context.Background(), &sched))

	s.checkAndLaunch(context.Background())

	assert.Equal(t, 1, notifier.Stats().TrackedRuns)
}

func TestScheduler_NoNotifyDoesNotTrack(t *testing.T) {
	repo := newMemRepo()
	s, notifier := newTestScheduler(t, repo)

	sched := activeSchedule(domain.ScheduleTypeOneShot, false)
	require.NoError(t, repo.SaveSchedule(context.Background(), &sched))

	s.checkAndLaunch(context.Background())

	assert.Equal(t, 0, notifier.Stats().TrackedRuns)
}

func TestScheduler_EndToEndNotification(t *testing.T) {
	repo := newMemRepo()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	notifier := NewNotifier(logger, nil, 0, 0)
	exec := newTestExecutor(t, repo, fakeContent{text: "# Scheduled Digest\n\nbody"}, nil)
	watcher := NewWatcher(logger, notifier)
	pool := NewTaskPool(logger, PoolConfig{})
	s := NewScheduler(logger, repo, exec, watcher, notifier, pool, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx)

	clientID, ch := notifier.Subscribe()
	defer notifier.Unsubscribe(clientID)

	sched := activeSchedule(domain.ScheduleTypeOneShot, true)
	require.NoError(t, repo.SaveSchedule(context.Background(), &sched))

	s.checkAndLaunch(ctx)

	select {
	case got := <-ch:
		assert.Equal(t, domain.NotificationCompleted, got.Status)
		assert.Equal(t, "alice", got.UserID)
		assert.Contains(t, got.Content, "Scheduled Digest")
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for scheduled run notification")
	}

	// Run stays tracked only until the terminal notification fires.
	assert.Equal(t, 0, notifier.Stats().TrackedRuns)
}
