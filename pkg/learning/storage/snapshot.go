// Package storage persists learning analyses for later inspection.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/saturn/pkg/learning"
)

// ErrNoSnapshots is returned by Latest when nothing has been saved yet.
var ErrNoSnapshots = errors.New("no analysis snapshots stored")

// Snapshot is one persisted analysis run.
type Snapshot struct {
	ID          int64                          `json:"id"`
	CreatedAt   time.Time                      `json:"created_at"`
	PeriodStart time.Time                      `json:"period_start"`
	PeriodEnd   time.Time                      `json:"period_end"`
	Analyses    []learning.PerformanceAnalysis `json:"analyses"`
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS analysis_snapshots (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at   TEXT NOT NULL,
	period_start TEXT NOT NULL,
	period_end   TEXT NOT NULL,
	analyses     TEXT NOT NULL
);
`

// SnapshotStore persists analysis runs in a SQLite database. It is
// deliberately on a separate database file from the telemetry store so
// analysis churn never contends with event ingestion.
type SnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotStore opens (creating if needed) the snapshot database.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot db path cannot be empty")
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}
	return &SnapshotStore{db: db, now: time.Now}, nil
}

// Save persists one analysis run.
func (s *SnapshotStore) Save(ctx context.Context, periodStart, periodEnd time.Time, analyses []learning.PerformanceAnalysis) error {
	payload, err := json.Marshal(analyses)
	if err != nil {
		return fmt.Errorf("encoding analyses: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_snapshots (created_at, period_start, period_end, analyses) VALUES (?, ?, ?, ?)`,
		s.now().UTC().Format(time.RFC3339Nano),
		periodStart.UTC().Format(time.RFC3339Nano),
		periodEnd.UTC().Format(time.RFC3339Nano),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently saved snapshot, or ErrNoSnapshots.
func (s *SnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, period_start, period_end, analyses
		 FROM analysis_snapshots ORDER BY id DESC LIMIT 1`)

	var (
		snap                    Snapshot
		createdAt, pStart, pEnd string
		payload                 string
	)
	if err := row.Scan(&snap.ID, &createdAt, &pStart, &pEnd, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshots
		}
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var err error
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing snapshot timestamp: %w", err)
	}
	if snap.PeriodStart, err = time.Parse(time.RFC3339Nano, pStart); err != nil {
		return nil, fmt.Errorf("parsing snapshot period start: %w", err)
	}
	if snap.PeriodEnd, err = time.Parse(time.RFC3339Nano, pEnd); err != nil {
		return nil, fmt.Errorf("parsing snapshot period end: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Analyses); err != nil {
		return nil, fmt.Errorf("decoding snapshot analyses: %w", err)
	}
	return &snap, nil
}

// Close releases the database handle.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
