package duckdb

import (
	"context"
	"database/sql"

	"github.com/openpulse/pulse/internal/core/domain"
)

func (r *Repository) SaveNewsletter(ctx context.Context, nl *domain.Newsletter) error {
	var cover *string
	if nl.CoverImageURL != "" {
		cover = &nl.CoverImageURL
	}

	query := `
	INSERT INTO newsletters (id, run_id, user_id, title, content, cover_image_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		cover_image_url = excluded.cover_image_url;
	`

	_, err := r.db.ExecContext(ctx, query,
		nl.ID, nl.RunID, nl.UserID, nl.Title, nl.Content, cover, nl.CreatedAt,
	)
	return err
}

func (r *Repository) GetNewsletter(ctx context.Context, id domain.NewsletterID) (*domain.Newsletter, error) {
	query := `SELECT id, run_id, user_id, title, content, cover_image_url, created_at FROM newsletters WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	nl, err := scanNewsletter(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNewsletterNotFound
		}
		return nil, err
	}
	return nl, nil
}

// ListNewsletters returns the user's newsletters, newest first. An empty
// userID lists everything.
func (r *Repository) ListNewsletters(ctx context.Context, userID string) ([]domain.Newsletter, error) {
	query := `SELECT id, run_id, user_id, title, content, cover_image_url, created_at FROM newsletters`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newsletters []domain.Newsletter
	for rows.Next() {
		nl, err := scanNewsletter(rows.Scan)
		if err != nil {
			return nil, err
		}
		newsletters = append(newsletters, *nl)
	}
	return newsletters, rows.Err()
}

func scanNewsletter(scan func(dest ...any) error) (*domain.Newsletter, error) {
	var nl domain.Newsletter
	var idStr, runIDStr string
	var cover *string

	err := scan(&idStr, &runIDStr, &nl.UserID, &nl.Title, &nl.Content, &cover, &nl.CreatedAt)
	if err != nil {
		return nil, err
	}

	nl.ID = domain.NewsletterID(idStr)
	nl.RunID = domain.RunID(runIDStr)
	if cover != nil {
		nl.CoverImageURL = *cover
	}
	return &nl, nil
}
