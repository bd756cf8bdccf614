package failover

import (
	"context"
	"sync"

	"mercator-hq/saturn/pkg/providers"
	"mercator-hq/saturn/pkg/rewrite"
)

// MockRewriter is a scriptable Rewriter for mitigation tests.
type MockRewriter struct {
	// Replacement is returned on success. When nil, the input is passed
	// through with a "[rewritten] " prefix on the last message.
	Replacement []providers.ChatMessage

	// Fail forces every Rewrite call to return a RewriteFailedError.
	Fail bool

	mu    sync.Mutex
	calls int
}

// CallCount returns the number of Rewrite invocations.
func (m *MockRewriter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Rewrite implements rewrite.Rewriter.
func (m *MockRewriter) Rewrite(_ context.Context, messages []providers.ChatMessage) ([]providers.ChatMessage, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Fail {
		return nil, &rewrite.RewriteFailedError{Reason: "scripted failure"}
	}
	if m.Replacement != nil {
		return m.Replacement, nil
	}
	out := make([]providers.ChatMessage, len(messages))
	copy(out, messages)
	if len(out) > 0 {
		out[len(out)-1].Content = "[rewritten] " + out[len(out)-1].Content
	}
	return out, nil
}
