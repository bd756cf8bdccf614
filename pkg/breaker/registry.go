package breaker

import "sync"

// Registry lazily creates and shares circuit breakers by service name.
// Exactly one breaker is ever created per name, no matter how many
// goroutines race on the first lookup; every caller observes the same
// instance. Breakers live for the registry's lifetime and are never removed.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker)}
}

// GetBreaker returns the breaker for name, constructing it with cfg on first
// use. The config is ignored when the breaker already exists.
func (r *Registry) GetBreaker(name string, cfg Config) (*CircuitBreaker, error) {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: another goroutine may have created it between the locks.
	if cb, ok := r.breakers[name]; ok {
		return cb, nil
	}
	cb, err := New(name, cfg)
	if err != nil {
		return nil, err
	}
	r.breakers[name] = cb
	return cb, nil
}

// Names returns the service names of all registered breakers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}
