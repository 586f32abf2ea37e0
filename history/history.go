// Package history archives run reports in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/kelrin/schrun/harness"
)

// ErrRunNotFound is returned by GetRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	started_at TEXT NOT NULL,
	command    TEXT NOT NULL,
	wall_ms    INTEGER NOT NULL,
	user_ms    INTEGER NOT NULL,
	system_ms  INTEGER NOT NULL,
	host       TEXT NOT NULL,
	params     TEXT NOT NULL,
	metrics    TEXT NOT NULL
);
`

// Store is the run archive.
type Store struct {
	db *sql.DB
}

// RunMeta is one archive listing entry.
type RunMeta struct {
	RunID     string
	Name      string
	StartedAt time.Time
	Command   string
	WallMs    int64
}

// Open opens the archive database at path, creating it if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}

	// SQLite supports one writer at a time; a single connection keeps
	// the CLI's sequential access simple.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()

			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun archives one report. The host, params and metrics structures
// are stored as JSON blobs.
func (s *Store) SaveRun(ctx context.Context, r *harness.Report) error {
	host, err := json.Marshal(r.Host)
	if err != nil {
		return fmt.Errorf("encode host: %w", err)
	}

	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, name, started_at, command,
			wall_ms, user_ms, system_ms,
			host, params, metrics
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Name, r.StartedAt.UTC().Format(time.RFC3339Nano), r.Command,
		r.WallMs, r.UserMs, r.SystemMs,
		string(host), string(params), string(metrics),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}

	return nil
}

// ListRuns returns archive entries, newest first. A limit of zero or
// less returns everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunMeta, error) {
	query := `
		SELECT run_id, name, started_at, command, wall_ms
		FROM runs ORDER BY rowid DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta

	for rows.Next() {
		var (
			m       RunMeta
			started string
		)
		if err := rows.Scan(&m.RunID, &m.Name, &started, &m.Command, &m.WallMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			m.StartedAt = t
		}

		runs = append(runs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}

// GetRun loads one archived report by its run ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*harness.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, name, started_at, command,
		       wall_ms, user_ms, system_ms,
		       host, params, metrics
		FROM runs WHERE run_id = ?`, runID)

	var (
		r       harness.Report
		started string
		host    []byte
		params  []byte
		metrics []byte
	)

	err := row.Scan(
		&r.RunID, &r.Name, &started, &r.Command,
		&r.WallMs, &r.UserMs, &r.SystemMs,
		&host, &params, &metrics,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
		r.StartedAt = t
	}

	if err := json.Unmarshal(host, &r.Host); err != nil {
		return nil, fmt.Errorf("decode host for run %s: %w", runID, err)
	}
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return nil, fmt.Errorf("decode params for run %s: %w", runID, err)
	}
	if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics for run %s: %w", runID, err)
	}

	return &r, nil
}
