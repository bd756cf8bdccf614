package failover

import (
	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/ledger"
	"mercator-hq/saturn/pkg/providers"
	"mercator-hq/saturn/pkg/telemetry/events"
)

// Selection modes recorded in the ledger.
const (
	SelectionValueDriven      = "VALUE_DRIVEN"
	SelectionPreferenceDriven = "PREFERENCE_DRIVEN"
)

// RequestContext accumulates per-request state while the engine walks the
// search space. It is confined to the goroutine executing the request and
// discarded once the ledger entry is built.
type RequestContext struct {
	// RequestID is the request's uuid.
	RequestID string

	// InitialMessages is the conversation as submitted by the caller.
	InitialMessages []providers.ChatMessage

	// FinalMessages is the conversation sent on attempts, replaced by the
	// rewriter after a successful mitigation.
	FinalMessages []providers.ChatMessage

	// MitigationAttempted reports whether a prompt rewrite was tried.
	MitigationAttempted bool

	// MitigationSucceeded reports whether the rewrite produced revised
	// messages.
	MitigationSucceeded bool

	// APICallCount is the number of provider attempts made so far.
	APICallCount int

	// FailoverReasons collects the coded reasons for preferred-provider
	// demotion and final exhaustion.
	FailoverReasons []string

	// Events is the per-request resilience event log, embedded in the
	// ledger entry.
	Events []events.Event
}

// newRequestContext builds a context with a fresh request ID. The initial
// conversation is copied so later mitigation cannot alias caller memory.
func newRequestContext(messages []providers.ChatMessage) *RequestContext {
	initial := make([]providers.ChatMessage, len(messages))
	copy(initial, messages)
	return &RequestContext{
		RequestID:       uuid.NewString(),
		InitialMessages: initial,
		FinalMessages:   initial,
	}
}

// record appends an event to the per-request log.
func (rc *RequestContext) record(e events.Event) {
	rc.Events = append(rc.Events, e)
}

// ledgerView projects the context into the ledger's input shape.
func (rc *RequestContext) ledgerView() ledger.RequestView {
	return ledger.RequestView{
		RequestID:           rc.RequestID,
		InitialMessages:     rc.InitialMessages,
		FinalMessages:       rc.FinalMessages,
		MitigationAttempted: rc.MitigationAttempted,
		MitigationSucceeded: rc.MitigationSucceeded,
		APICallCount:        rc.APICallCount,
		Events:              rc.Events,
	}
}
