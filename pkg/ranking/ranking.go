package ranking

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// Config controls the scoring model.
type Config struct {
	// EMAAlpha is the smoothing factor: the weight of the newest
	// observation in the moving average. Must be in (0, 1].
	EMAAlpha float64

	// MinRequestsThreshold is the number of recorded outcomes a provider
	// needs before its own average replaces the default score. Zero is
	// honored and means the average applies immediately; use
	// DefaultConfig for the recommended threshold.
	MinRequestsThreshold int

	// DefaultScore is the effective score reported for providers with
	// insufficient history. Must be in [0, 1]. Zero is honored; use
	// DefaultConfig for the recommended score.
	DefaultScore float64

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger

	// now is the clock used to stamp observations. Tests override it.
	now func() time.Time
}

// DefaultConfig returns a moderately reactive model: new outcomes carry
// 30% of the weight and five observations establish a track record.
func DefaultConfig() Config {
	return Config{
		EMAAlpha:             0.3,
		MinRequestsThreshold: 5,
		DefaultScore:         0.5,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.EMAAlpha <= 0 || c.EMAAlpha > 1 {
		return fmt.Errorf("ema alpha must be in (0, 1], got %g", c.EMAAlpha)
	}
	if c.MinRequestsThreshold < 0 {
		return fmt.Errorf("min requests threshold must be non-negative, got %d", c.MinRequestsThreshold)
	}
	if c.DefaultScore < 0 || c.DefaultScore > 1 {
		return fmt.Errorf("default score must be in [0, 1], got %g", c.DefaultScore)
	}
	return nil
}

// Stats is the tracked state for one provider.
type Stats struct {
	// EMA is the exponential moving average of recorded scores.
	EMA float64 `json:"ema"`

	// Requests is the number of outcomes recorded so far.
	Requests int `json:"requests"`

	// LastUpdated is when the most recent outcome was recorded, UTC.
	LastUpdated time.Time `json:"last_updated"`
}

// Engine tracks per-provider outcome averages. Safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	stats  map[string]Stats
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Engine. A zero EMAAlpha, which is never a valid
// setting, falls back to the DefaultConfig value; MinRequestsThreshold
// and DefaultScore are used as given, since zero is a legal setting for
// both.
func New(cfg Config) (*Engine, error) {
	if cfg.EMAAlpha == 0 {
		cfg.EMAAlpha = DefaultConfig().EMAAlpha
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ranking config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	nowFn := cfg.now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{
		stats:  make(map[string]Stats),
		cfg:    cfg,
		logger: cfg.Logger.With("component", "ranking_engine"),
		now:    nowFn,
	}, nil
}

// RecordOutcome folds one observed score into the provider's moving
// average. Scores outside [0, 1] are rejected and logged rather than
// applied. A provider with no history, or whose average has decayed to
// zero, adopts the score directly rather than being blended against zero.
func (e *Engine) RecordOutcome(provider string, score float64) {
	if score < 0 || score > 1 {
		e.logger.Warn("rejecting out-of-range score",
			"provider", provider,
			"score", score)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats[provider]
	if s.Requests == 0 || s.EMA == 0 {
		s.EMA = score
	} else {
		s.EMA = e.cfg.EMAAlpha*score + (1-e.cfg.EMAAlpha)*s.EMA
	}
	s.Requests++
	s.LastUpdated = e.now().UTC()
	e.stats[provider] = s

	e.logger.Debug("outcome recorded",
		"provider", provider,
		"score", score,
		"ema", s.EMA,
		"requests", s.Requests)
}

// Score returns the effective score for a provider: its moving average
// once it has enough history, the default score otherwise.
func (e *Engine) Score(provider string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scoreLocked(provider)
}

func (e *Engine) scoreLocked(provider string) float64 {
	s, ok := e.stats[provider]
	if !ok || s.Requests < e.cfg.MinRequestsThreshold {
		return e.cfg.DefaultScore
	}
	return s.EMA
}

// Rank orders the candidate providers by effective score, best first.
// Ties keep the caller's order, so a configured preference list acts as
// the tie break.
func (e *Engine) Rank(candidates []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ranked := make([]string, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return e.scoreLocked(ranked[i]) > e.scoreLocked(ranked[j])
	})
	return ranked
}

// ProviderStats returns a snapshot of the tracked state for one provider.
// The second result is false when the provider has no recorded outcomes.
func (e *Engine) ProviderStats(provider string) (Stats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.stats[provider]
	return s, ok
}

// Score summarizes one provider for observability output.
type Score struct {
	// EMA is the raw moving average rounded to four decimal places.
	EMA float64 `json:"ema"`

	// Requests is the number of outcomes recorded.
	Requests int `json:"requests"`
}

// Scores returns the rounded average and request count for every known
// provider, independent of the minimum-requests threshold.
func (e *Engine) Scores() map[string]Score {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]Score, len(e.stats))
	for name, s := range e.stats {
		out[name] = Score{
			EMA:      math.Round(s.EMA*10000) / 10000,
			Requests: s.Requests,
		}
	}
	return out
}

// Snapshot returns a copy of all tracked provider state, for persistence.
func (e *Engine) Snapshot() map[string]Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]Stats, len(e.stats))
	for k, v := range e.stats {
		out[k] = v
	}
	return out
}

// Restore replaces the tracked state with a previously taken snapshot.
// Used at startup to resume from persisted learning state.
func (e *Engine) Restore(snapshot map[string]Stats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = make(map[string]Stats, len(snapshot))
	for k, v := range snapshot {
		e.stats[k] = v
	}
}
