// Package sqlstore persists run reports in SQLite (modernc.org/sqlite) or PostgreSQL (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/aretw0/roboflow/pkg/domain"
)

// Dialect names a supported database/sql driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS roboflow_runs (
	run_id      TEXT PRIMARY KEY,
	scenario    TEXT NOT NULL,
	device_id   TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL DEFAULT '',
	trace       TEXT NOT NULL,
	steps       INTEGER NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT '',
	error_text  TEXT NOT NULL DEFAULT '',
	started_at  BIGINT NOT NULL,
	finished_at BIGINT NOT NULL
)`

// Store implements ports.RunStore over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite database file and applies the schema.
func OpenSQLite(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return Open(SQLite, dsn)
}

// Open connects with the given dialect and DSN and applies the schema.
func Open(dialect Dialect, dsn string) (*Store, error) {
	if dialect != SQLite && dialect != Postgres {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if dialect == SQLite {
		// SQLite has a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	store, err := New(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database and applies the schema.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Save upserts the report.
func (s *Store) Save(ctx context.Context, report *domain.Report) error {
	if report.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	trace, err := json.Marshal(report.Trace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	_, err = s.db.ExecContext(ctx, rebind(s.dialect, `
INSERT INTO roboflow_runs (
	run_id, scenario, device_id, outcome, trace, steps, error_kind, error_text, started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
	scenario = excluded.scenario,
	device_id = excluded.device_id,
	outcome = excluded.outcome,
	trace = excluded.trace,
	steps = excluded.steps,
	error_kind = excluded.error_kind,
	error_text = excluded.error_text,
	started_at = excluded.started_at,
	finished_at = excluded.finished_at
`),
		report.RunID,
		report.Scenario,
		report.DeviceID,
		string(report.Outcome),
		string(trace),
		report.Steps,
		string(report.ErrorKind),
		report.Error,
		millis(report.StartedAt),
		millis(report.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Load reads one report.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Report, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, `
SELECT run_id, scenario, device_id, outcome, trace, steps, error_kind, error_text, started_at, finished_at
FROM roboflow_runs WHERE run_id = ?`), runID)

	var (
		r                 domain.Report
		outcome, kind     string
		trace             string
		started, finished int64
	)
	err := row.Scan(&r.RunID, &r.Scenario, &r.DeviceID, &outcome, &trace, &r.Steps, &kind, &r.Error, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if err := json.Unmarshal([]byte(trace), &r.Trace); err != nil {
		return nil, fmt.Errorf("decode trace of run %s: %w", runID, err)
	}
	r.Outcome = domain.Outcome(outcome)
	r.ErrorKind = domain.ErrorKind(kind)
	r.StartedAt = fromMillis(started)
	r.FinishedAt = fromMillis(finished)
	return &r, nil
}

// Delete removes a report.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, rebind(s.dialect, `DELETE FROM roboflow_runs WHERE run_id = ?`), runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// List returns run ids, most recently started first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM roboflow_runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
