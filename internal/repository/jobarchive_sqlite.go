package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"giftcanvas-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteJobArchiveRepository keeps a durable history of completed jobs.
// The live queue and job hashes stay in Redis; the archive exists so the
// dashboard can show history after Redis-level trims or restarts.
type SQLiteJobArchiveRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteJobArchiveRepository opens (and if needed creates) the archive
// database at dbPath.
func NewSQLiteJobArchiveRepository(dbPath string) (*SQLiteJobArchiveRepository, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createArchiveTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[JobArchive] Initialized with database: %s", dbPath)
	return &SQLiteJobArchiveRepository{db: db}, nil
}

func createArchiveTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS completed_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT NOT NULL,
		job_id TEXT NOT NULL UNIQUE,
		user TEXT NOT NULL,
		image_url TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		completed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_account ON completed_jobs(account_id);
	CREATE INDEX IF NOT EXISTS idx_completed_at ON completed_jobs(completed_at);
	`
	_, err := db.Exec(query)
	return err
}

// SaveCompleted records a finished job. Replays of the same job id update
// the existing row.
func (r *SQLiteJobArchiveRepository) SaveCompleted(ctx context.Context, accountID string, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO completed_jobs (account_id, job_id, user, image_url, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			completed_at = datetime('now')`

	_, err := r.db.ExecContext(ctx, query, accountID, job.JobID, job.User, job.ImageURL, job.Status, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to archive job: %w", err)
	}
	return nil
}

// ListCompleted returns the account's most recently completed jobs.
func (r *SQLiteJobArchiveRepository) ListCompleted(ctx context.Context, accountID string, limit int) ([]model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT job_id, user, image_url, status, created_at
		FROM completed_jobs
		WHERE account_id = ?
		ORDER BY completed_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.JobID, &job.User, &job.ImageURL, &job.Status, &job.CreatedAt); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteOlderThan removes archived jobs completed before now-age.
func (r *SQLiteJobArchiveRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-age).UTC().Format("2006-01-02 15:04:05")
	res, err := r.db.ExecContext(ctx, `DELETE FROM completed_jobs WHERE completed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune archive: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the archive database.
func (r *SQLiteJobArchiveRepository) Close() error {
	return r.db.Close()
}

var _ JobArchiveRepository = (*SQLiteJobArchiveRepository)(nil)
