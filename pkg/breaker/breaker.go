package breaker

import (
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State string

// Circuit breaker states.
const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// OpenError is returned by Check when the circuit is open and the reset
// timeout has not yet elapsed.
type OpenError struct {
	// Service is the name of the guarded service.
	Service string
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker for %q is open", e.Service)
}

// Config contains configuration for a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker from CLOSED to OPEN. Must be positive.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long an OPEN breaker waits before allowing a
	// trial call (HALF_OPEN). Must be positive.
	// Default: 30s
	ResetTimeout time.Duration

	// OnStateChange, if set, is invoked (outside the breaker's lock) after
	// every state transition. Used to publish circuit events.
	OnStateChange func(service string, from, to State)

	// now overrides the clock for tests.
	now func() time.Time
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// CircuitBreaker guards calls to one downstream service.
// All methods are safe for concurrent use.
type CircuitBreaker struct {
	service       string
	threshold     int
	resetTimeout  time.Duration
	onStateChange func(service string, from, to State)
	now           func() time.Time

	mu           sync.Mutex
	state        State
	failureCount int
	lastFailure  time.Time
}

// New creates a circuit breaker for the named service. Zero-valued config
// fields take defaults; a negative threshold or timeout is an error.
func New(service string, cfg Config) (*CircuitBreaker, error) {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.ResetTimeout == 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("breaker %q: failure threshold must be positive, got %d", service, cfg.FailureThreshold)
	}
	if cfg.ResetTimeout <= 0 {
		return nil, fmt.Errorf("breaker %q: reset timeout must be positive, got %s", service, cfg.ResetTimeout)
	}
	now := cfg.now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		service:       service,
		threshold:     cfg.FailureThreshold,
		resetTimeout:  cfg.ResetTimeout,
		onStateChange: cfg.OnStateChange,
		now:           now,
		state:         StateClosed,
	}, nil
}

// Service returns the guarded service name.
func (cb *CircuitBreaker) Service() string {
	return cb.service
}

// State returns the current state without side effects.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the current consecutive-failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// Check reports whether a call may proceed.
//
// In CLOSED and HALF_OPEN it returns nil (a HALF_OPEN breaker admits the
// trial call). In OPEN it transitions to HALF_OPEN once the reset timeout
// has elapsed since the last failure, otherwise it returns an *OpenError.
func (cb *CircuitBreaker) Check() error {
	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return nil
	}
	if cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		cb.transition(StateHalfOpen)
		cb.mu.Unlock()
		return nil
	}
	cb.mu.Unlock()
	return &OpenError{Service: cb.service}
}

// RecordSuccess resets the failure count and closes a HALF_OPEN breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.mu.Unlock()
}

// RecordFailure increments the failure count and stamps the failure time.
// The breaker opens when the count reaches the threshold, or immediately on
// any failure while HALF_OPEN.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.threshold {
		cb.transition(StateOpen)
	}
	cb.mu.Unlock()
}

// transition changes state and queues the change notification.
// Caller must hold cb.mu; the callback runs on a fresh goroutine so that
// subscribers can call back into the breaker without deadlocking.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onStateChange != nil {
		go cb.onStateChange(cb.service, from, to)
	}
}
