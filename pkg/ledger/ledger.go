package ledger

import (
	"log/slog"
	"strings"
	"time"

	"mercator-hq/saturn/pkg/costs"
	"mercator-hq/saturn/pkg/providers"
	"mercator-hq/saturn/pkg/telemetry/bus"
	"mercator-hq/saturn/pkg/telemetry/events"
)

// Request outcomes.
const (
	OutcomeSuccess          = "SUCCESS"
	OutcomeMitigatedSuccess = "MITIGATED_SUCCESS"
	OutcomeFailure          = "FAILURE"
)

// promptPreviewLimit bounds stored prompt previews so ledger payloads
// cannot grow with arbitrarily large conversations.
const promptPreviewLimit = 512

// RequestView is the slice of per-request state the ledger records.
// The failover engine assembles it from its request context.
type RequestView struct {
	// RequestID is the request's uuid.
	RequestID string

	// InitialMessages is the conversation as the caller submitted it.
	InitialMessages []providers.ChatMessage

	// FinalMessages is the conversation actually sent on the last
	// attempt, differing from InitialMessages after mitigation.
	FinalMessages []providers.ChatMessage

	// MitigationAttempted reports whether a prompt rewrite was tried.
	MitigationAttempted bool

	// MitigationSucceeded reports whether the rewrite produced a revised
	// conversation.
	MitigationSucceeded bool

	// APICallCount is the number of provider attempts made.
	APICallCount int

	// Events is the per-request resilience event log.
	Events []events.Event
}

// Entry is the immutable audit record of one request lifecycle.
type Entry struct {
	RequestID            string         `json:"request_id"`
	TimestampUTC         string         `json:"timestamp_utc"`
	Outcome              string         `json:"outcome"`
	SelectionMode        string         `json:"selection_mode"`
	InitialPromptPreview string         `json:"initial_prompt_preview"`
	FinalPromptPreview   string         `json:"final_prompt_preview"`
	MitigationAttempted  bool           `json:"mitigation_attempted"`
	MitigationSucceeded  bool           `json:"mitigation_succeeded"`
	FinalProvider        string         `json:"final_provider,omitempty"`
	FinalModel           string         `json:"final_model,omitempty"`
	InputTokens          int            `json:"input_tokens"`
	OutputTokens         int            `json:"output_tokens"`
	EstimatedCostUSD     *float64       `json:"estimated_cost_usd"`
	LatencyMS            int64          `json:"latency_ms"`
	ResilienceScore      float64        `json:"resilience_score"`
	APICallCount         int            `json:"api_call_count"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	ResilienceEvents     []events.Event `json:"resilience_events"`
}

// Config wires the ledger's collaborators.
type Config struct {
	// Bus receives a ledger-entry-created event per entry. Required.
	Bus *bus.Bus

	// Costs resolves pricing for the final provider and model. Required.
	Costs *costs.Table

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger

	// now is the clock used to stamp entries. Tests override it.
	now func() time.Time
}

// BiasLedger constructs and publishes request audit entries.
type BiasLedger struct {
	bus    *bus.Bus
	costs  *costs.Table
	logger *slog.Logger
	now    func() time.Time
}

// New creates a BiasLedger.
func New(cfg Config) *BiasLedger {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	nowFn := cfg.now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &BiasLedger{
		bus:    cfg.Bus,
		costs:  cfg.Costs,
		logger: cfg.Logger.With("component", "bias_ledger"),
		now:    nowFn,
	}
}

// LogRequestLifecycle builds the audit entry for a finished request,
// publishes it on the bus, and returns it. finalResponse is nil when the
// request failed outright; finalErr is nil on success.
func (l *BiasLedger) LogRequestLifecycle(view RequestView, selectionMode string, finalResponse *providers.CompletionResponse, finalErr error, resilienceScore float64) *Entry {
	entry := &Entry{
		RequestID:            view.RequestID,
		TimestampUTC:         l.now().UTC().Format(time.RFC3339Nano),
		SelectionMode:        selectionMode,
		InitialPromptPreview: preview(view.InitialMessages),
		FinalPromptPreview:   preview(view.FinalMessages),
		MitigationAttempted:  view.MitigationAttempted,
		MitigationSucceeded:  view.MitigationSucceeded,
		ResilienceScore:      resilienceScore,
		APICallCount:         view.APICallCount,
		ResilienceEvents:     view.Events,
	}

	// A successful response is never a FAILURE. A mitigation attempt on
	// the way there, even one whose rewrite failed, marks the entry
	// MITIGATED_SUCCESS; the mitigation flags carry the distinction.
	switch {
	case finalResponse == nil || !finalResponse.Success:
		entry.Outcome = OutcomeFailure
	case view.MitigationAttempted:
		entry.Outcome = OutcomeMitigatedSuccess
	default:
		entry.Outcome = OutcomeSuccess
	}

	if finalResponse != nil {
		entry.FinalProvider = finalResponse.ProviderName()
		entry.FinalModel = finalResponse.ModelUsed
		entry.LatencyMS = finalResponse.LatencyMS
		if finalResponse.Usage != nil {
			entry.InputTokens = finalResponse.Usage.InputTokens
			entry.OutputTokens = finalResponse.Usage.OutputTokens
			entry.EstimatedCostUSD = l.estimateCost(entry.FinalProvider, entry.FinalModel, finalResponse.Usage)
		}
	}
	if finalErr != nil {
		entry.ErrorMessage = finalErr.Error()
	}

	l.bus.Publish(events.TopicLedgerEntryCreated, events.New(
		events.TopicLedgerEntryCreated,
		"bias_ledger",
		events.SeverityInfo,
		map[string]any{"entry": entry},
	))
	l.logger.Debug("ledger entry created",
		"request_id", entry.RequestID,
		"outcome", entry.Outcome,
		"provider", entry.FinalProvider,
		"model", entry.FinalModel)
	return entry
}

// estimateCost resolves pricing and prices the observed usage. Nil when
// no profile resolves for the provider and model.
func (l *BiasLedger) estimateCost(provider, model string, usage *providers.TokenUsage) *float64 {
	p := l.costs.Lookup(provider, model)
	if p == nil {
		return nil
	}
	cost := costs.EstimateUSD(p, usage.InputTokens, usage.OutputTokens)
	return &cost
}

// preview renders a conversation as "role: content" lines bounded to the
// preview limit.
func preview(messages []providers.ChatMessage) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		if b.Len() >= promptPreviewLimit {
			break
		}
	}
	s := b.String()
	if len(s) > promptPreviewLimit {
		s = s[:promptPreviewLimit]
	}
	return s
}
