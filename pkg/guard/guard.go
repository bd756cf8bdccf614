package guard

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Resource states.
const (
	StateAvailable   = "AVAILABLE"
	StateInUse       = "IN_USE"
	StateCoolingDown = "COOLING_DOWN"
)

// NoResourcesError is returned by Acquire when every resource in the pool
// is either in use or cooling down.
type NoResourcesError struct {
	// Provider is the provider this pool serves.
	Provider string
}

func (e *NoResourcesError) Error() string {
	return fmt.Sprintf("no healthy resources available for provider %q", e.Provider)
}

// NewNoResourcesError creates a NoResourcesError for the given provider.
func NewNoResourcesError(provider string) *NoResourcesError {
	return &NoResourcesError{Provider: provider}
}

// UnknownResourceError is returned by Penalize when the given credential
// value does not belong to the pool.
type UnknownResourceError struct {
	Provider string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource for provider %q", e.Provider)
}

// Resource is a single credential in the pool. All accessors take the
// owning guard's lock, so a Resource handle stays safe to inspect while
// other goroutines acquire and penalize.
type Resource struct {
	mu *sync.Mutex

	value            string
	safeValue        string
	healthScore      float64
	state            string
	lastFailure      time.Time
	lastHealthUpdate time.Time
}

// Value returns the raw credential value.
func (r *Resource) Value() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// SafeValue returns the masked form of the credential, suitable for logs.
func (r *Resource) SafeValue() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.safeValue
}

// HealthScore returns the current health score in [0, 1].
func (r *Resource) HealthScore() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.healthScore
}

// State returns the current lifecycle state.
func (r *Resource) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastFailure returns the time of the most recent penalty, or the zero
// time if the resource has never been penalized.
func (r *Resource) LastFailure() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFailure
}

// Config controls pool behavior. Every field below must be positive, so
// a zero value unambiguously selects the DefaultConfig setting.
type Config struct {
	// Cooldown is how long a penalized resource stays unavailable.
	// Default: 5m
	Cooldown time.Duration

	// Penalty is subtracted from the health score on each Penalize call.
	// Must be in (0, 1]. Default: 0.5
	Penalty float64

	// HealingInterval is the minimum time between healing increments.
	// Default: 1m
	HealingInterval time.Duration

	// HealingIncrement is added to the health score once per elapsed
	// healing interval, capped at 1.0. Must be in (0, 1]. Default: 0.1
	HealingIncrement float64

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger

	// now is the clock used for cooldown and healing checks. Tests
	// override it; production code leaves it nil for time.Now.
	now func() time.Time
}

// DefaultConfig returns pool settings matching typical provider key churn:
// a five minute cooldown after a failure, a 0.5 penalty, and slow healing
// of 0.1 per minute.
func DefaultConfig() Config {
	return Config{
		Cooldown:         5 * time.Minute,
		Penalty:          0.5,
		HealingInterval:  time.Minute,
		HealingIncrement: 0.1,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %s", c.Cooldown)
	}
	if c.Penalty <= 0 || c.Penalty > 1 {
		return fmt.Errorf("penalty must be in (0, 1], got %g", c.Penalty)
	}
	if c.HealingInterval <= 0 {
		return fmt.Errorf("healing interval must be positive, got %s", c.HealingInterval)
	}
	if c.HealingIncrement <= 0 || c.HealingIncrement > 1 {
		return fmt.Errorf("healing increment must be in (0, 1], got %g", c.HealingIncrement)
	}
	return nil
}

// ResourceGuard owns a fixed pool of credentials for one provider.
type ResourceGuard struct {
	mu        sync.Mutex
	provider  string
	resources []*Resource
	byValue   map[string]*Resource
	cfg       Config
	onRestore func(resource string, healthScore float64)
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a guard over the given credential values. The pool is fixed
// for the guard's lifetime; an empty pool is allowed and simply never has
// resources to hand out.
func New(provider string, values []string, cfg Config) (*ResourceGuard, error) {
	def := DefaultConfig()
	if cfg.Cooldown == 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Penalty == 0 {
		cfg.Penalty = def.Penalty
	}
	if cfg.HealingInterval == 0 {
		cfg.HealingInterval = def.HealingInterval
	}
	if cfg.HealingIncrement == 0 {
		cfg.HealingIncrement = def.HealingIncrement
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid guard config for provider %q: %w", provider, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	nowFn := cfg.now
	if nowFn == nil {
		nowFn = time.Now
	}

	g := &ResourceGuard{
		provider: provider,
		byValue:  make(map[string]*Resource, len(values)),
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "resource_guard", "provider", provider),
		now:      nowFn,
	}
	start := nowFn()
	for _, v := range values {
		r := &Resource{
			mu:               &g.mu,
			value:            v,
			safeValue:        Mask(v),
			healthScore:      1.0,
			state:            StateAvailable,
			lastHealthUpdate: start,
		}
		g.resources = append(g.resources, r)
		g.byValue[v] = r
	}
	return g, nil
}

// Provider returns the provider name this pool serves.
func (g *ResourceGuard) Provider() string {
	return g.provider
}

// SetOnRestore registers fn to be called whenever a cooled-down resource
// returns to service. The callback receives the masked resource value and
// its current health score. It is invoked with the pool lock held and
// must not call back into the guard. A nil fn clears the callback.
func (g *ResourceGuard) SetOnRestore(fn func(resource string, healthScore float64)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onRestore = fn
}

// Acquire hands out the first available resource in pool order. The
// returned release function marks the resource available again and must be
// called exactly once, typically via defer. Acquire never blocks; when the
// pool is exhausted it returns a *NoResourcesError.
func (g *ResourceGuard) Acquire() (*Resource, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for _, r := range g.resources {
		if !g.refreshLocked(r, now) {
			continue
		}
		r.state = StateInUse
		released := false
		release := func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if released {
				return
			}
			released = true
			// Penalize may have moved the resource to cooldown
			// while it was held; release must not resurrect it.
			if r.state == StateInUse {
				r.state = StateAvailable
			}
		}
		return r, release, nil
	}
	return nil, nil, NewNoResourcesError(g.provider)
}

// Penalize records a failure against the credential with the given raw
// value: the health score drops by the configured penalty (floored at 0)
// and the resource enters cooldown. Callers invoke it explicitly after a
// provider error attributable to the credential.
func (g *ResourceGuard) Penalize(value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.byValue[value]
	if !ok {
		return &UnknownResourceError{Provider: g.provider}
	}
	now := g.now()
	r.healthScore -= g.cfg.Penalty
	if r.healthScore < 0 {
		r.healthScore = 0
	}
	r.state = StateCoolingDown
	r.lastFailure = now
	r.lastHealthUpdate = now
	g.logger.Warn("resource penalized",
		"resource", r.safeValue,
		"health_score", r.healthScore,
		"cooldown", g.cfg.Cooldown)
	return nil
}

// HasHealthy reports whether at least one resource could be acquired right
// now. Cooldown expiry and healing are evaluated as part of the check.
func (g *ResourceGuard) HasHealthy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for _, r := range g.resources {
		if g.refreshLocked(r, now) {
			return true
		}
	}
	return false
}

// Resources returns handles to every resource in pool order, for
// introspection and health reporting.
func (g *ResourceGuard) Resources() []*Resource {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Resource, len(g.resources))
	copy(out, g.resources)
	return out
}

// refreshLocked applies lazy state transitions to r at time now and reports
// whether the resource is available for acquisition. The guard lock must be
// held.
func (g *ResourceGuard) refreshLocked(r *Resource, now time.Time) bool {
	if r.state == StateCoolingDown && now.Sub(r.lastFailure) >= g.cfg.Cooldown {
		r.state = StateAvailable
		g.logger.Info("resource cooldown expired", "resource", r.safeValue)
		if g.onRestore != nil {
			g.onRestore(r.safeValue, r.healthScore)
		}
	}
	if r.healthScore < 1.0 && now.Sub(r.lastHealthUpdate) >= g.cfg.HealingInterval {
		r.healthScore += g.cfg.HealingIncrement
		if r.healthScore > 1.0 {
			r.healthScore = 1.0
		}
		r.lastHealthUpdate = now
	}
	return r.state == StateAvailable
}

// Mask returns a log-safe rendering of a credential value, keeping the
// first and last four characters. Short values are fully redacted.
func Mask(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
