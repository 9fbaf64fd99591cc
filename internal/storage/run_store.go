package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// database drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/chunking"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// OpenOptions configures Open.
type OpenOptions struct {
	Driver          string // sqlite or postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens the run history database and verifies the connection.
func Open(ctx context.Context, opts OpenOptions) (*sql.DB, error) {
	var driver string
	switch opts.Driver {
	case "sqlite":
		driver = "sqlite3"
	case "postgres":
		driver = "postgres"
	default:
		return nil, domain.StorageError(fmt.Sprintf("unsupported database driver: %s", opts.Driver), nil)
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, domain.StorageError("open database", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.StorageError("ping database", err)
	}

	return db, nil
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS comparison_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		base_prompt TEXT NOT NULL,
		search_type TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		documents TEXT NOT NULL DEFAULT '[]',
		strategy TEXT NOT NULL DEFAULT '',
		scores TEXT NOT NULL DEFAULT '[]',
		chunks_processed INTEGER NOT NULL DEFAULT 0,
		chunks_succeeded INTEGER NOT NULL DEFAULT 0,
		chunks_failed INTEGER NOT NULL DEFAULT 0,
		synthesized BOOLEAN NOT NULL DEFAULT FALSE,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		report TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)
`

const runColumns = `id, status, base_prompt, search_type, topic, documents, strategy, scores,
	chunks_processed, chunks_succeeded, chunks_failed, synthesized, duration_ms,
	report, error, created_at`

// RunStore handles comparison run persistence.
type RunStore struct {
	db DB
}

// NewRunStore creates a new run store.
func NewRunStore(db DB) *RunStore {
	return &RunStore{db: db}
}

// Migrate creates the runs table if it does not exist.
func (s *RunStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRunsTable); err != nil {
		return domain.StorageError("create comparison_runs", err)
	}
	return nil
}

// Save inserts a run.
func (s *RunStore) Save(ctx context.Context, run *Run) error {
	documents, err := json.Marshal(run.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	scores, err := json.Marshal(run.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO comparison_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID, string(run.Status), run.BasePrompt, run.SearchType, run.Topic,
		string(documents), string(run.Strategy), string(scores),
		run.Chunks.Processed, run.Chunks.Succeeded, run.Chunks.Failed,
		run.Synthesized, run.Duration.Milliseconds(),
		run.Report, run.Error, run.CreatedAt,
	)
	if err != nil {
		return domain.StorageError("insert run", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM comparison_runs WHERE id = $1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageError("get run", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM comparison_runs ORDER BY created_at DESC, id LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.StorageError("list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		status     string
		strategy   string
		documents  string
		scores     string
		durationMS int64
	)

	err := row.Scan(
		&run.ID, &status, &run.BasePrompt, &run.SearchType, &run.Topic,
		&documents, &strategy, &scores,
		&run.Chunks.Processed, &run.Chunks.Succeeded, &run.Chunks.Failed,
		&run.Synthesized, &durationMS,
		&run.Report, &run.Error, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.Strategy = chunking.Strategy(strategy)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(documents), &run.Documents); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if err := json.Unmarshal([]byte(scores), &run.Scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return &run, nil
}
