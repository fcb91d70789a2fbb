package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

// RunStatus represents the state of a recorded workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one recorded workflow invocation.
type Run struct {
	ID           string
	WorkflowPath string
	ServerURL    string
	Status       RunStatus
	StartedAt    time.Time
	FinishedAt   *time.Time
	Error        *string
	NodeCount    int
}

// NodeResult is one published node result within a run, stored as the
// JSON encoding of the result map.
type NodeResult struct {
	ID        int64
	RunID     string
	NodeID    string
	Result    []byte
	Seq       int
	CreatedAt time.Time
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string, status RunStatus, nodeCount int, runErr error) error
	AddNodeResult(ctx context.Context, result *NodeResult) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListNodeResults(ctx context.Context, runID string) ([]*NodeResult, error)
	Close() error
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed initializes) the history database
// at path. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer at a time; serialize access through a
	// single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		workflow_path TEXT NOT NULL,
		server_url    TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		started_at    TIMESTAMP NOT NULL,
		finished_at   TIMESTAMP,
		error         TEXT,
		node_count    INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS node_results (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		node_id    TEXT NOT NULL,
		result     BLOB NOT NULL,
		seq        INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_node_results_run ON node_results(run_id, seq);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, workflow_path, server_url, status, started_at, node_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.WorkflowPath, run.ServerURL, run.Status, run.StartedAt, run.NodeCount)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id string, status RunStatus, nodeCount int, runErr error) error {
	var errMsg *string
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error = ?, node_count = ? WHERE id = ?`,
		status, time.Now(), errMsg, nodeCount, id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) AddNodeResult(ctx context.Context, nr *NodeResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO node_results (run_id, node_id, result, seq, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		nr.RunID, nr.NodeID, nr.Result, nr.Seq, time.Now())
	if err != nil {
		return fmt.Errorf("adding node result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_path, server_url, status, started_at, finished_at, error, node_count
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_path, server_url, status, started_at, finished_at, error, node_count
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) ListNodeResults(ctx context.Context, runID string) ([]*NodeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, node_id, result, seq, created_at
		 FROM node_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing node results: %w", err)
	}
	defer rows.Close()

	var results []*NodeResult
	for rows.Next() {
		var nr NodeResult
		if err := rows.Scan(&nr.ID, &nr.RunID, &nr.NodeID, &nr.Result, &nr.Seq, &nr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning node result: %w", err)
		}
		results = append(results, &nr)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.WorkflowPath, &run.ServerURL, &run.Status,
		&run.StartedAt, &run.FinishedAt, &run.Error, &run.NodeCount)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
