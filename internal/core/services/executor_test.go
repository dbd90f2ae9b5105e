package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpulse/pulse/internal/core/domain"
)

type memRepo struct {
	mu          sync.Mutex
	runs        map[domain.RunID]domain.Run
	newsletters map[domain.NewsletterID]domain.Newsletter
	schedules   map[domain.ScheduleID]domain.Schedule
	saveRunErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		runs:        make(map[domain.RunID]domain.Run),
		newsletters: make(map[domain.NewsletterID]domain.Newsletter),
		schedules:   make(map[domain.ScheduleID]domain.Schedule),
	}
}

func (r *memRepo) SaveRun(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveRunErr != nil {
		return r.saveRunErr
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *memRepo) GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

func (r *memRepo) ListRuns(ctx context.Context) ([]domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	return out, nil
}

func (r *memRepo) SaveNewsletter(ctx context.Context, nl *domain.Newsletter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newsletters[nl.ID] = *nl
	return nil
}

func (r *memRepo) GetNewsletter(ctx context.Context, id domain.NewsletterID) (*domain.Newsletter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nl, ok := r.newsletters[id]
	if !ok {
		return nil, domain.ErrNewsletterNotFound
	}
	return &nl, nil
}

func (r *memRepo) ListNewsletters(ctx context.Context, userID string) ([]domain.Newsletter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Newsletter, 0)
	for _, nl := range r.newsletters {
		if userID == "" || nl.UserID == userID {
			out = append(out, nl)
		}
	}
	return out, nil
}

func (r *memRepo) SaveSchedule(ctx context.Context, sched *domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[sched.ID] = *sched
	return nil
}

func (r *memRepo) GetSchedule(ctx context.Context, id domain.ScheduleID) (*domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	return &s, nil
}

func (r *memRepo) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Schedule, 0, len(r.schedules))
	for _, s := range r.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) DeleteSchedule(ctx context.Context, id domain.ScheduleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schedules, id)
	return nil
}

func (r *memRepo) GetDueSchedules(ctx context.Context, now time.Time) ([]domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Schedule, 0)
	for _, s := range r.schedules {
		if s.Status == domain.ScheduleStatusActive && !s.NextRun.After(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeContent struct {
	text string
	err  error
}

func (f fakeContent) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

type fakeImage struct {
	url  string
	data []byte
	err  error
}

func (f fakeImage) GenerateImage(ctx context.Context, prompt string) (domain.CoverImage, error) {
	return domain.CoverImage{URL: f.url, Data: f.data}, f.err
}

func newTestExecutor(t *testing.T, repo *memRepo, content domain.ContentProvider, image domain.ImageProvider) *Executor {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewExecutor(logger, nil, repo, content, image, nil, ExecutorConfig{
		StaticDir:     t.TempDir(),
		PublicBaseURL: "http://localhost:8080",
	})
}

func TestExecutor_SuccessfulRun(t *testing.T) {
	repo := newMemRepo()
	exec := newTestExecutor(t, repo, fakeContent{text: "# Weekly Go Digest\n\nGoroutines are neat."}, nil)

	run, err := exec.StartRun(context.Background(), RunInput{
		UserID:    "alice",
		SessionID: "sess-1",
		Interests: "golang",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, run.Status)

	exec.Execute(context.Background(), run.ID)

	got, err := exec.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Contains(t, got.Result.Content, "Goroutines")
	assert.Empty(t, got.Result.CoverImageURL)
	require.NotNil(t, got.CompletedAt)

	newsletters, err := repo.ListNewsletters(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, newsletters, 1)
	assert.Equal(t, "Weekly Go Digest", newsletters[0].Title)
}

func TestExecutor_ContentFailureFailsRun(t *testing.T) {
	repo := newMemRepo()
	exec := newTestExecutor(t, repo, fakeContent{err: errors.New("model offline")}, nil)

	run, err := exec.StartRun(context.Background(), RunInput{UserID: "alice"})
	require.NoError(t, err)

	exec.Execute(context.Background(), run.ID)

	got, err := exec.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "model offline")

	newsletters, _ := repo.ListNewsletters(context.Background(), "")
	assert.Empty(t, newsletters)
}

func TestExecutor_CoverFailureIsTolerated(t *testing.T) {
	repo := newMemRepo()
	exec := newTestExecutor(t, repo,
		fakeContent{text: "# Digest\n\nbody"},
		fakeImage{err: errors.New("image api down")})

	run, err := exec.StartRun(context.Background(), RunInput{UserID: "alice"})
	require.NoError(t, err)

	exec.Execute(context.Background(), run.ID)

	got, err := exec.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Empty(t, got.Result.CoverImageURL)
}

func TestExecutor_CoverDownloadedToStaticDir(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(png)
	}))
	defer srv.Close()

	repo := newMemRepo()
	exec := newTestExecutor(t, repo,
		fakeContent{text: "# Digest\n\nbody"},
		fakeImage{url: srv.URL + "/cover.png"})

	run, err := exec.StartRun(context.Background(), RunInput{UserID: "alice"})
	require.NoError(t, err)

	exec.Execute(context.Background(), run.ID)

	got, err := exec.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Contains(t, got.Result.CoverImageURL, "http://localhost:8080/static/images/newsletter_cover_")

	matches, err := filepath.Glob(filepath.Join(exec.cfg.StaticDir, "images", "newsletter_cover_*.png"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestExecutor_InlineCoverWrittenToStaticDir(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	repo := newMemRepo()
	exec := newTestExecutor(t, repo,
		fakeContent{text: "# Digest\n\nbody"},
		fakeImage{data: png})

	run, err := exec.StartRun(context.Background(), RunInput{UserID: "alice"})
	require.NoError(t, err)

	exec.Execute(context.Background(), run.ID)

	got, err := exec.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Contains(t, got.Result.CoverImageURL, "/static/images/newsletter_cover_")

	matches, err := filepath.Glob(filepath.Join(exec.cfg.StaticDir, "images", "newsletter_cover_*.png"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestExecutor_DefaultUserID(t *testing.T) {
	repo := newMemRepo()
	exec := newTestExecutor(t, repo, fakeContent{text: "body"}, nil)

	run, err := exec.StartRun(context.Background(), RunInput{})
	require.NoError(t, err)
	assert.Equal(t, "default", run.UserID)
}

func TestExecutor_GetRunFallsBackToRepository(t *testing.T) {
	repo := newMemRepo()
	repo.runs["persisted"] = domain.Run{ID: "persisted", Status: domain.RunStatusCompleted}
	exec := newTestExecutor(t, repo, fakeContent{text: "body"}, nil)

	got, err := exec.GetRun(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)

	_, err = exec.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestExecutor_HandleSnapshot(t *testing.T) {
	repo := newMemRepo()
	exec := newTestExecutor(t, repo, fakeContent{text: "# T\n\nbody"}, nil)

	run, err := exec.StartRun(context.Background(), RunInput{UserID: "alice"})
	require.NoError(t, err)

	handle := exec.Handle(run.ID)

	snap, err := handle.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, snap.Status)

	exec.Execute(context.Background(), run.ID)

	snap, err = handle.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, snap.Status)
	require.NotNil(t, snap.Result)
}
