package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/saturn/pkg/telemetry/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	timestamp_utc TEXT NOT NULL,
	event_id      TEXT NOT NULL,
	event_type    TEXT NOT NULL,
	event_source  TEXT NOT NULL,
	severity      TEXT NOT NULL,
	payload       TEXT,
	PRIMARY KEY (timestamp_utc, event_id)
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_source ON events(event_source);
`

// Config contains configuration for the time-series store.
type Config struct {
	// Path is the database file path.
	Path string

	// QueueSize bounds the in-memory ingest queue. Events arriving at a
	// full queue are dropped and counted.
	// Default: 10000
	QueueSize int

	// BatchSize is the number of events written per transaction. Reaching
	// it triggers an immediate flush.
	// Default: 100
	BatchSize int

	// FlushInterval is how often the background loop flushes a non-empty
	// queue.
	// Default: 5s
	FlushInterval time.Duration

	// MaxRetries is how many times a failed flush is retried before the
	// batch is returned to the queue for the next cycle.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff between flush retries. It
	// doubles per attempt.
	// Default: 100ms
	RetryBackoff time.Duration

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Path:          "data/telemetry.db",
		QueueSize:     10000,
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
		RetryBackoff:  100 * time.Millisecond,
		BusyTimeout:   5 * time.Second,
	}
}

// TimeSeriesStore is a durable, batched sink for telemetry events.
type TimeSeriesStore struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	queue   []events.Event
	started bool
	stopped bool

	flushCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}

	dropped       atomic.Int64
	flushFailures atomic.Int64
}

// New opens the database, applies the schema, and returns a store ready
// for Start.
func New(cfg Config) (*TimeSeriesStore, error) {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = def.BusyTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, newStorageError("open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, newStorageError("schema", err)
	}

	s := &TimeSeriesStore{
		db:      db,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "timeseries_store"),
		flushCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.logger.Info("time-series store opened",
		"path", cfg.Path,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval)
	return s, nil
}

// Start launches the background flush loop.
func (s *TimeSeriesStore) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.flushLoop()
}

// Stop halts the flush loop, flushes everything still queued, and closes
// the database. Safe to call once.
func (s *TimeSeriesStore) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	if started {
		close(s.stopCh)
		<-s.doneCh
	}
	// Drain whatever remains, one batch at a time.
	for s.flushOnce() > 0 {
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
	s.logger.Info("time-series store stopped",
		"dropped_total", s.dropped.Load(),
		"flush_failures", s.flushFailures.Load())
}

// Ingest enqueues one event. It never blocks: a full queue drops the
// event and counts the loss. Reaching a full batch triggers an immediate
// asynchronous flush.
func (s *TimeSeriesStore) Ingest(e events.Event) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.dropped.Add(1)
		return
	}
	if len(s.queue) >= s.cfg.QueueSize {
		s.mu.Unlock()
		s.dropped.Add(1)
		s.logger.Warn("ingest queue full, event dropped", "event_type", e.EventType)
		return
	}
	s.queue = append(s.queue, e)
	full := len(s.queue) >= s.cfg.BatchSize
	s.mu.Unlock()

	if full {
		select {
		case s.flushCh <- struct{}{}:
		default:
		}
	}
}

// QueueDepth returns the number of events waiting to be flushed.
func (s *TimeSeriesStore) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dropped returns the number of events lost to a full queue.
func (s *TimeSeriesStore) Dropped() int64 {
	return s.dropped.Load()
}

// FlushFailures returns the number of flush cycles that exhausted their
// retries and re-queued their batch.
func (s *TimeSeriesStore) FlushFailures() int64 {
	return s.flushFailures.Load()
}

func (s *TimeSeriesStore) flushLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-s.flushCh:
			s.flushOnce()
		case <-ticker.C:
			s.flushOnce()
		}
	}
}

// flushOnce drains up to one batch and writes it in a single transaction.
// On persistent failure the whole batch is returned to the head of the
// queue (at-least-once, telemetry loss must never be silent). It returns
// the number of events it attempted to write.
func (s *TimeSeriesStore) flushOnce() int {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return 0
	}
	n := len(s.queue)
	if n > s.cfg.BatchSize {
		n = s.cfg.BatchSize
	}
	batch := make([]events.Event, n)
	copy(batch, s.queue[:n])
	s.queue = s.queue[n:]
	s.mu.Unlock()

	backoff := s.cfg.RetryBackoff
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		if err = s.writeBatch(batch); err == nil {
			return n
		}
		s.logger.Warn("flush attempt failed",
			"attempt", attempt+1,
			"batch_size", n,
			"error", err)
	}

	s.flushFailures.Add(1)
	s.logger.Error("flush retries exhausted, re-queuing batch",
		"batch_size", n,
		"error", err)
	s.mu.Lock()
	requeued := make([]events.Event, 0, len(batch)+len(s.queue))
	requeued = append(requeued, batch...)
	requeued = append(requeued, s.queue...)
	if len(requeued) > s.cfg.QueueSize {
		s.dropped.Add(int64(len(requeued) - s.cfg.QueueSize))
		requeued = requeued[:s.cfg.QueueSize]
	}
	s.queue = requeued
	s.mu.Unlock()
	return 0
}

func (s *TimeSeriesStore) writeBatch(batch []events.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return newStorageError("flush", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO events
		(timestamp_utc, event_id, event_type, event_source, severity, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return newStorageError("flush", err)
	}
	defer stmt.Close()

	for _, e := range batch {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			// Unserializable payloads are stored without their payload
			// rather than poisoning the whole batch.
			s.logger.Warn("payload not serializable, storing without payload",
				"event_id", e.EventID,
				"error", err)
			payload = nil
		}
		if _, err := stmt.Exec(e.TimestampUTC, e.EventID, e.EventType, e.EventSource, string(e.Severity), payload); err != nil {
			tx.Rollback()
			return newStorageError("flush", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return newStorageError("flush", err)
	}
	return nil
}

// Count returns the number of stored events, for tests and health
// reporting.
func (s *TimeSeriesStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, newStorageError("count", err)
	}
	return n, nil
}
