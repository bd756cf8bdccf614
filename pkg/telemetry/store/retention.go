package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls scheduled pruning of old events.
type RetentionConfig struct {
	// MaxAge is the retention window; events older than now-MaxAge are
	// deleted. Zero disables pruning.
	MaxAge time.Duration

	// Schedule is the cron expression for prune runs, e.g. "0 3 * * *"
	// for daily at 3 AM. Empty disables the scheduler.
	Schedule string
}

// Prune deletes events older than the retention window and returns the
// number of rows removed.
func (s *TimeSeriesStore) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp_utc < ?`, cutoff)
	if err != nil {
		return 0, newStorageError("prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newStorageError("prune", err)
	}
	if n > 0 {
		s.logger.Info("retention prune completed", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}

// RetentionScheduler runs Prune on a cron schedule.
type RetentionScheduler struct {
	store  *TimeSeriesStore
	cfg    RetentionConfig
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewRetentionScheduler creates a scheduler for the given store.
func NewRetentionScheduler(s *TimeSeriesStore, cfg RetentionConfig, logger *slog.Logger) *RetentionScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionScheduler{
		store:  s,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.With("component", "retention_scheduler"),
	}
}

// Start begins scheduled pruning. A missing schedule or retention window
// leaves the scheduler idle. The scheduler stops itself when ctx is
// cancelled.
func (r *RetentionScheduler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("retention scheduler already running")
	}
	if r.cfg.Schedule == "" || r.cfg.MaxAge <= 0 {
		r.logger.Info("retention not configured, scheduler idle")
		return nil
	}
	if _, err := cron.ParseStandard(r.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", r.cfg.Schedule, err)
	}
	if _, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		if _, err := r.store.Prune(ctx, r.cfg.MaxAge); err != nil {
			r.logger.Error("scheduled prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("retention scheduler started",
		"schedule", r.cfg.Schedule,
		"max_age", r.cfg.MaxAge)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts scheduled pruning, waiting for an in-flight run.
func (r *RetentionScheduler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	r.logger.Info("retention scheduler stopped")
}
