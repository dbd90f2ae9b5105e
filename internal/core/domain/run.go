package domain

import (
	"errors"
	"time"
)

type RunID string

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RunResult is the typed outcome the executor pushes when a run finishes.
// Watchers consume this contract instead of inspecting step internals.
type RunResult struct {
	Content       string `json:"content"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
}

// Run is one execution instance of the newsletter workflow.
type Run struct {
	ID          RunID      `json:"id"`
	WorkflowID  string     `json:"workflow_id"`
	UserID      string     `json:"user_id"`
	SessionID   string     `json:"session_id,omitempty"`
	Input       string     `json:"input,omitempty"` // interests / topic prompt
	Status      RunStatus  `json:"status"`
	Result      *RunResult `json:"result,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

var ErrRunNotFound = errors.New("run not found")

// DefaultWorkflowID is used when a completion arrives for a run that was
// never tracked and the caller did not supply a workflow hint.
const DefaultWorkflowID = "simple-newsletter-workflow"
