package duckdb

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/openpulse/pulse/internal/core/ports"
)

// Repository persists runs, newsletters and schedules in a local DuckDB
// file. A single connection handle is shared; database/sql serializes
// access.
type Repository struct {
	db *sql.DB
}

var _ ports.Repository = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb at %s: %w", path, err)
	}

	r := &Repository{db: db}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return r, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR PRIMARY KEY,
		workflow_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		session_id VARCHAR,
		input VARCHAR,
		status VARCHAR NOT NULL,
		result_content VARCHAR,
		result_cover_url VARCHAR,
		error VARCHAR,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS newsletters (
		id VARCHAR PRIMARY KEY,
		run_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		content VARCHAR NOT NULL,
		cover_image_url VARCHAR,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		session_id VARCHAR,
		interests VARCHAR,
		notify BOOLEAN NOT NULL,
		type VARCHAR NOT NULL,
		interval_sec INTEGER,
		hour INTEGER,
		minute INTEGER,
		next_run TIMESTAMP NOT NULL,
		last_run TIMESTAMP,
		last_run_id VARCHAR,
		run_count INTEGER NOT NULL,
		status VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := r.db.Exec(schema)
	return err
}
