package duckdb

import (
	"context"
	"database/sql"

	"github.com/openpulse/pulse/internal/core/domain"
)

func (r *Repository) SaveRun(ctx context.Context, run *domain.Run) error {
	var resultContent, resultCover *string
	if run.Result != nil {
		resultContent = &run.Result.Content
		if run.Result.CoverImageURL != "" {
			resultCover = &run.Result.CoverImageURL
		}
	}

	query := `
	INSERT INTO runs (id, workflow_id, user_id, session_id, input, status, result_content, result_cover_url, error, created_at, updated_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		status = excluded.status,
		result_content = excluded.result_content,
		result_cover_url = excluded.result_cover_url,
		error = excluded.error,
		updated_at = excluded.updated_at,
		completed_at = excluded.completed_at;
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.WorkflowID, run.UserID, run.SessionID, run.Input,
		run.Status, resultContent, resultCover, run.Error,
		run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	return err
}

func (r *Repository) GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	query := `SELECT id, workflow_id, user_id, session_id, input, status, result_content, result_cover_url, error, created_at, updated_at, completed_at FROM runs WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	run, err := scanRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (r *Repository) ListRuns(ctx context.Context) ([]domain.Run, error) {
	query := `SELECT id, workflow_id, user_id, session_id, input, status, result_content, result_cover_url, error, created_at, updated_at, completed_at FROM runs ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*domain.Run, error) {
	var run domain.Run
	var idStr, statusStr string
	var sessionID, input, resultContent, resultCover *string

	err := scan(
		&idStr, &run.WorkflowID, &run.UserID, &sessionID, &input,
		&statusStr, &resultContent, &resultCover, &run.Error,
		&run.CreatedAt, &run.UpdatedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	run.ID = domain.RunID(idStr)
	run.Status = domain.RunStatus(statusStr)
	if sessionID != nil {
		run.SessionID = *sessionID
	}
	if input != nil {
		run.Input = *input
	}
	if resultContent != nil {
		run.Result = &domain.RunResult{Content: *resultContent}
		if resultCover != nil {
			run.Result.CoverImageURL = *resultCover
		}
	}
	return &run, nil
}
