package costs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig controls the profile file watcher.
type WatcherConfig struct {
	// Path is the profile yaml file to watch.
	Path string

	// DebounceInterval is the quiet period after a change before the
	// file is reloaded, absorbing editor write bursts.
	DebounceInterval time.Duration

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultWatcherConfig returns the default watcher settings.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{DebounceInterval: 100 * time.Millisecond}
}

// Watcher hot-reloads a Table from its profile file whenever the file
// changes. Parse failures keep the previous profiles active.
type Watcher struct {
	table   *Table
	watcher *fsnotify.Watcher
	cfg     WatcherConfig
	logger  *slog.Logger
}

// NewWatcher creates a watcher that feeds the given table.
func NewWatcher(table *Table, cfg WatcherConfig) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("watcher path is required")
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = DefaultWatcherConfig().DebounceInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// Watch the directory, not the file: editors that write via
	// rename-and-replace would otherwise drop the watch.
	if err := fw.Add(filepath.Dir(cfg.Path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Path, err)
	}

	return &Watcher{
		table:   table,
		watcher: fw,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "cost_watcher"),
	}, nil
}

// Watch blocks processing file events until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("cost profile watcher started", "path", w.cfg.Path)

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cost profile watcher stopped")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.cfg.Path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.cfg.DebounceInterval)
			} else {
				debounce.Reset(w.cfg.DebounceInterval)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("cost profile watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	profiles, err := LoadProfiles(w.cfg.Path)
	if err != nil {
		w.logger.Error("cost profile reload failed, keeping previous profiles",
			"path", w.cfg.Path,
			"error", err)
		return
	}
	w.table.Replace(profiles)
	w.logger.Info("cost profiles reloaded",
		"path", w.cfg.Path,
		"providers", len(profiles))
}
