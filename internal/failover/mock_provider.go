package failover

import (
	"context"
	"sync"

	"mercator-hq/saturn/pkg/providers"
)

// Outcome scripts one MockProvider call: either Err is returned, or a
// successful response is built from the remaining fields.
type Outcome struct {
	Err     error
	Content string
	Usage   *providers.TokenUsage
	Latency int64
}

// Call records the arguments of one Complete invocation.
type Call struct {
	Model    string
	APIKey   string
	Messages []providers.ChatMessage
}

// MockProvider is a scriptable Provider. Outcomes are consumed in queue
// order, one per Complete call; when the queue is empty every call
// succeeds with a default response.
type MockProvider struct {
	name string

	mu       sync.Mutex
	outcomes []Outcome
	calls    []Call
}

// NewMockProvider creates a mock provider with the given name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Enqueue appends scripted outcomes for upcoming calls.
func (m *MockProvider) Enqueue(outcomes ...Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcomes...)
}

// Calls returns every recorded invocation in order.
func (m *MockProvider) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Complete invocations so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Name implements providers.Provider.
func (m *MockProvider) Name() string {
	return m.name
}

// Complete implements providers.Provider.
func (m *MockProvider) Complete(_ context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	m.mu.Lock()
	msgs := make([]providers.ChatMessage, len(req.Messages))
	copy(msgs, req.Messages)
	m.calls = append(m.calls, Call{Model: req.Model, APIKey: req.APIKeyOverride, Messages: msgs})

	var o Outcome
	if len(m.outcomes) > 0 {
		o = m.outcomes[0]
		m.outcomes = m.outcomes[1:]
	}
	m.mu.Unlock()

	if o.Err != nil {
		return nil, o.Err
	}
	content := o.Content
	if content == "" {
		content = "mock response from " + m.name
	}
	return &providers.CompletionResponse{
		Success:   true,
		Content:   content,
		ModelUsed: req.Model,
		Usage:     o.Usage,
		LatencyMS: o.Latency,
		Metadata:  map[string]any{"provider_name": m.name},
	}, nil
}
