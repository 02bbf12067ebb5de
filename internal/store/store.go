// Package store persists merge runs and their merged site records in SQLite.
//
// Two drivers are supported: "sqlite3" (github.com/mattn/go-sqlite3, cgo) and
// "sqlite" (modernc.org/sqlite, pure Go). Each run gets a UUID and its
// records are written inside one transaction that commits only when the run
// finishes cleanly.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Run status values.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// timeLayout is fixed width so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Store is a handle on the run database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates or opens the database at path with the named driver.
func Open(path, driver string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if driver == "" {
		driver = "sqlite3"
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debug("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Debug("store opened", zap.String("path", path), zap.String("driver", driver))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		orphans INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS sites (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		site_name TEXT NOT NULL,
		address TEXT NOT NULL,
		contact_name TEXT,
		contact_title TEXT,
		contact_phone TEXT,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS site_materials (
		run_id TEXT NOT NULL,
		site_id INTEGER NOT NULL,
		material TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, site_id, material),
		FOREIGN KEY (run_id, site_id) REFERENCES sites(run_id, id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS site_equipment (
		run_id TEXT NOT NULL,
		site_id INTEGER NOT NULL,
		equipment TEXT NOT NULL,
		PRIMARY KEY (run_id, site_id, equipment),
		FOREIGN KEY (run_id, site_id) REFERENCES sites(run_id, id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RunInfo describes a stored run.
type RunInfo struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Records    int
	Orphans    int
	Error      string
}

// StartRun registers a new run and opens the transaction its records go into.
func (s *Store) StartRun(ctx context.Context, source string) (*Run, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, started_at, status) VALUES (?, ?, ?, ?)`,
		id, source, now.Format(timeLayout), StatusRunning,
	); err != nil {
		return nil, fmt.Errorf("failed to register run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin run transaction: %w", err)
	}
	s.logger.Info("run started", zap.String("run_id", id), zap.String("source", source))
	return &Run{store: s, id: id, tx: tx}, nil
}

const runColumns = `id, source, started_at, COALESCE(finished_at, ''), status, records, orphans, error`

func scanRun(row interface{ Scan(...any) error }) (RunInfo, error) {
	var (
		info              RunInfo
		started, finished string
	)
	if err := row.Scan(&info.ID, &info.Source, &started, &finished, &info.Status,
		&info.Records, &info.Orphans, &info.Error); err != nil {
		return RunInfo{}, err
	}
	var err error
	if info.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return RunInfo{}, fmt.Errorf("run %s: bad started_at: %w", info.ID, err)
	}
	if finished != "" {
		if info.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return RunInfo{}, fmt.Errorf("run %s: bad finished_at: %w", info.ID, err)
		}
	}
	return info, nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return info, err
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (RunInfo, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return RunInfo{}, err
	}
	if len(runs) == 0 {
		return RunInfo{}, ErrRunNotFound
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
