package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(t *testing.T, cfg Config) (*CircuitBreaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg.now = clock.Now
	cb, err := New("openai:gpt-4o", cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return cb, clock
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}, wantErr: false},
		{name: "explicit valid", cfg: Config{FailureThreshold: 3, ResetTimeout: time.Second}, wantErr: false},
		{name: "negative threshold", cfg: Config{FailureThreshold: -1, ResetTimeout: time.Second}, wantErr: true},
		{name: "negative timeout", cfg: Config{FailureThreshold: 3, ResetTimeout: -time.Second}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("svc", tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTripsAtExactThreshold(t *testing.T) {
	cb, _ := newTestBreaker(t, Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second})

	cb.RecordFailure()
	cb.RecordFailure()
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state after threshold-1 failures = %q, want CLOSED", got)
	}
	if err := cb.Check(); err != nil {
		t.Fatalf("Check() while CLOSED error = %v", err)
	}

	cb.RecordFailure()
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state at exact threshold = %q, want OPEN", got)
	}

	err := cb.Check()
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("Check() while OPEN error = %T, want *OpenError", err)
	}
	if oe.Service != "openai:gpt-4o" {
		t.Errorf("OpenError service = %q", oe.Service)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(t, Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	if got := cb.FailureCount(); got != 0 {
		t.Fatalf("FailureCount after success = %d, want 0", got)
	}

	// The counter restarts: two more failures stay below threshold.
	cb.RecordFailure()
	cb.RecordFailure()
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %q, want CLOSED", got)
	}
}

func TestHalfOpenTransitions(t *testing.T) {
	timeout := 30 * time.Second
	cb, clock := newTestBreaker(t, Config{FailureThreshold: 1, ResetTimeout: timeout})

	cb.RecordFailure()
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %q, want OPEN", got)
	}

	clock.Advance(timeout - time.Millisecond)
	if err := cb.Check(); err == nil {
		t.Fatal("Check() before reset timeout succeeded")
	}

	clock.Advance(time.Millisecond)
	if err := cb.Check(); err != nil {
		t.Fatalf("Check() at reset timeout error = %v", err)
	}
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("state after timeout = %q, want HALF_OPEN", got)
	}

	// A second Check during HALF_OPEN still admits the trial call.
	if err := cb.Check(); err != nil {
		t.Errorf("Check() while HALF_OPEN error = %v", err)
	}

	t.Run("success closes", func(t *testing.T) {
		cb.RecordSuccess()
		if got := cb.State(); got != StateClosed {
			t.Errorf("state after HALF_OPEN success = %q, want CLOSED", got)
		}
	})
}

func TestHalfOpenFailureReopens(t *testing.T) {
	timeout := time.Second
	cb, clock := newTestBreaker(t, Config{FailureThreshold: 5, ResetTimeout: timeout})

	// Trip via repeated failures, wait out the timeout, then fail the
	// trial call. A single HALF_OPEN failure reopens regardless of the
	// threshold.
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	clock.Advance(timeout)
	if err := cb.Check(); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	cb.RecordFailure()
	if got := cb.State(); got != StateOpen {
		t.Errorf("state after HALF_OPEN failure = %q, want OPEN", got)
	}
}

func TestOnStateChange(t *testing.T) {
	type change struct {
		from, to State
	}
	changes := make(chan change, 8)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cb, err := New("svc", Config{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		OnStateChange: func(service string, from, to State) {
			changes <- change{from: from, to: to}
		},
		now: clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cb.RecordFailure()
	select {
	case c := <-changes:
		if c.from != StateClosed || c.to != StateOpen {
			t.Errorf("transition = %s->%s, want CLOSED->OPEN", c.from, c.to)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transition notification")
	}

	clock.Advance(time.Second)
	cb.Check()
	select {
	case c := <-changes:
		if c.from != StateOpen || c.to != StateHalfOpen {
			t.Errorf("transition = %s->%s, want OPEN->HALF_OPEN", c.from, c.to)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transition notification")
	}
}

func TestConcurrentFailures(t *testing.T) {
	cb, _ := newTestBreaker(t, Config{FailureThreshold: 100, ResetTimeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				cb.RecordFailure()
			}
		}()
	}
	wg.Wait()

	if got := cb.FailureCount(); got != 50 {
		t.Errorf("FailureCount = %d, want 50", got)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("state = %q, want CLOSED below threshold", got)
	}
}
