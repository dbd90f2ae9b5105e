package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"log/slog"

	"github.com/openpulse/pulse/internal/core/domain"
	"github.com/openpulse/pulse/internal/core/ports"
	"github.com/openpulse/pulse/internal/metrics"
)

// EmailSender delivers a finished newsletter. Implementations decide the
// recipient and transport; Enabled lets the executor skip delivery when
// email is not configured.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, n domain.Newsletter, coverPath string) error
}

// RunInput is the user-facing request to start a newsletter run.
type RunInput struct {
	UserID    string
	SessionID string
	Interests string
}

// ExecutorConfig holds the executor's filesystem and URL wiring.
type ExecutorConfig struct {
	StaticDir     string // local directory served at /static/
	PublicBaseURL string // external base URL, no trailing slash
}

// Executor runs the newsletter workflow: generate the content, attach a
// cover image when an image provider is available, persist the newsletter
// and push the typed result onto the run. Runs are kept in an in-memory
// registry for cheap polling and mirrored to the repository.
type Executor struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
	repo    ports.Repository
	content domain.ContentProvider
	image   domain.ImageProvider // optional, nil when disabled
	email   EmailSender          // optional, nil when disabled
	cfg     ExecutorConfig

	mu   sync.RWMutex
	runs map[domain.RunID]domain.Run

	httpClient *http.Client
}

func NewExecutor(logger *slog.Logger, rec *metrics.Recorder, repo ports.Repository, content domain.ContentProvider, image domain.ImageProvider, email EmailSender, cfg ExecutorConfig) *Executor {
	return &Executor{
		logger:     logger,
		metrics:    rec,
		repo:       repo,
		content:    content,
		image:      image,
		email:      email,
		cfg:        cfg,
		runs:       make(map[domain.RunID]domain.Run),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// StartRun registers a new pending run and persists it. Execution happens
// separately through Execute, typically via the task pool.
func (e *Executor) StartRun(ctx context.Context, input RunInput) (domain.Run, error) {
	now := time.Now()
	run := domain.Run{
		ID:         domain.RunID(uuid.New().String()),
		WorkflowID: domain.DefaultWorkflowID,
		UserID:     input.UserID,
		SessionID:  input.SessionID,
		Input:      input.Interests,
		Status:     domain.RunStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if run.UserID == "" {
		run.UserID = defaultUserID
	}

	e.storeRun(run)
	if err := e.repo.SaveRun(ctx, &run); err != nil {
		return domain.Run{}, fmt.Errorf("failed to persist run: %w", err)
	}

	e.logger.Info("run created", "run_id", run.ID, "user_id", run.UserID)
	return run, nil
}

// Execute drives the run through the workflow steps and leaves it in a
// terminal state. Safe to call from a pool task.
func (e *Executor) Execute(ctx context.Context, runID domain.RunID) {
	run, ok := e.getRun(runID)
	if !ok {
		e.logger.Error("execute called for unknown run", "run_id", runID)
		return
	}

	start := time.Now()
	run.Status = domain.RunStatusRunning
	e.updateRun(ctx, run)

	content, err := e.generateContent(ctx, run.Input)
	if err != nil {
		e.failRun(ctx, run, fmt.Errorf("content generation failed: %w", err), start)
		return
	}

	// Cover generation is best effort. A run without a cover is still a
	// successful run.
	coverURL, coverPath := e.generateCover(ctx, run)

	newsletter := domain.Newsletter{
		ID:            domain.NewsletterID(uuid.New().String()),
		RunID:         run.ID,
		UserID:        run.UserID,
		Title:         domain.TitleFromContent(content),
		Content:       content,
		CoverImageURL: coverURL,
		CreatedAt:     time.Now(),
	}
	if err := e.repo.SaveNewsletter(ctx, &newsletter); err != nil {
		e.failRun(ctx, run, fmt.Errorf("failed to save newsletter: %w", err), start)
		return
	}

	if e.email != nil && e.email.Enabled() {
		if err := e.email.Send(ctx, newsletter, coverPath); err != nil {
			e.logger.Warn("email delivery failed", "run_id", run.ID, "error", err)
		}
	}

	run.Status = domain.RunStatusCompleted
	run.Result = &domain.RunResult{
		Content:       content,
		CoverImageURL: coverURL,
	}
	now := time.Now()
	run.CompletedAt = &now
	e.updateRun(ctx, run)

	e.metrics.RunFinished(run.WorkflowID, string(run.Status), time.Since(start))
	e.logger.Info("run completed",
		"run_id", run.ID,
		"newsletter_id", newsletter.ID,
		"has_cover", coverURL != "",
		"duration", time.Since(start))
}

func (e *Executor) generateContent(ctx context.Context, interests string) (string, error) {
	if interests == "" {
		interests = "technology and software engineering"
	}
	prompt := fmt.Sprintf(
		"Write a concise, engaging newsletter about: %s.\n"+
			"Start with a short title on the first line, then 3-5 sections with "+
			"practical insights. Use markdown.", interests)

	return e.content.GenerateText(ctx, prompt)
}

// generateCover asks the image provider for a cover, materializes it in the
// static directory and returns the public URL plus the local path. Providers
// hand back either a short-lived remote URL or the bytes inline. Both return
// values are empty when no provider is configured or any step fails.
func (e *Executor) generateCover(ctx context.Context, run domain.Run) (publicURL, localPath string) {
	if e.image == nil {
		return "", ""
	}

	prompt := fmt.Sprintf("Minimalist editorial cover illustration for a newsletter about %s, flat design, no text", run.Input)
	cover, err := e.image.GenerateImage(ctx, prompt)
	if err != nil {
		e.logger.Warn("cover generation failed, continuing without cover", "run_id", run.ID, "error", err)
		return "", ""
	}

	filename := fmt.Sprintf("newsletter_cover_%s.png", uuid.New().String())
	localPath = filepath.Join(e.cfg.StaticDir, "images", filename)

	switch {
	case len(cover.Data) > 0:
		err = writeFile(localPath, cover.Data)
	case cover.URL != "":
		err = e.download(ctx, cover.URL, localPath)
	default:
		err = fmt.Errorf("provider returned empty cover")
	}
	if err != nil {
		e.logger.Warn("cover materialization failed, continuing without cover", "run_id", run.ID, "error", err)
		return "", ""
	}

	publicURL = fmt.Sprintf("%s/static/images/%s", strings.TrimRight(e.cfg.PublicBaseURL, "/"), filename)
	return publicURL, localPath
}

func writeFile(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (e *Executor) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching image", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

func (e *Executor) failRun(ctx context.Context, run domain.Run, cause error, start time.Time) {
	msg := cause.Error()
	run.Status = domain.RunStatusFailed
	run.Error = &msg
	now := time.Now()
	run.CompletedAt = &now
	e.updateRun(ctx, run)

	e.metrics.RunFinished(run.WorkflowID, string(run.Status), time.Since(start))
	e.logger.Error("run failed", "run_id", run.ID, "error", msg)
}

func (e *Executor) storeRun(run domain.Run) {
	e.mu.Lock()
	e.runs[run.ID] = run
	e.mu.Unlock()
}

func (e *Executor) getRun(id domain.RunID) (domain.Run, bool) {
	e.mu.RLock()
	run, ok := e.runs[id]
	e.mu.RUnlock()
	return run, ok
}

// updateRun mirrors the run to the registry and repository. Persistence
// errors are logged, the registry stays authoritative for polling.
func (e *Executor) updateRun(ctx context.Context, run domain.Run) {
	run.UpdatedAt = time.Now()
	e.storeRun(run)
	if err := e.repo.SaveRun(ctx, &run); err != nil {
		e.logger.Error("failed to persist run update", "run_id", run.ID, "error", err)
	}
}

// GetRun returns the current state of a run, preferring the in-memory
// registry and falling back to the repository after a restart.
func (e *Executor) GetRun(ctx context.Context, id domain.RunID) (domain.Run, error) {
	if run, ok := e.getRun(id); ok {
		return run, nil
	}
	run, err := e.repo.GetRun(ctx, id)
	if err != nil {
		return domain.Run{}, err
	}
	return *run, nil
}

// Handle returns a poll handle for the watcher.
func (e *Executor) Handle(id domain.RunID) RunHandle {
	return runHandle{exec: e, id: id}
}

type runHandle struct {
	exec *Executor
	id   domain.RunID
}

func (h runHandle) Snapshot(ctx context.Context) (RunSnapshot, error) {
	run, err := h.exec.GetRun(ctx, h.id)
	if err != nil {
		return RunSnapshot{}, err
	}
	snap := RunSnapshot{Status: run.Status, Result: run.Result}
	if run.Error != nil {
		snap.Error = *run.Error
	}
	return snap, nil
}
