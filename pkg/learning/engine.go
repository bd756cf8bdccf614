package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mercator-hq/saturn/pkg/ledger"
	"mercator-hq/saturn/pkg/telemetry/events"
	"mercator-hq/saturn/pkg/telemetry/store"
)

// PerformanceAnalysis summarizes one provider and model pair's behavior
// over an analysis window.
type PerformanceAnalysis struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalRequests      int     `json:"total_requests"`
	Successes          int     `json:"successes"`
	MitigatedSuccesses int     `json:"mitigated_successes"`
	Failures           int     `json:"failures"`
	SuccessRate        float64 `json:"success_rate"`

	AvgLatencyMS       float64 `json:"avg_latency_ms"`
	AvgResilienceScore float64 `json:"avg_resilience_score"`

	MitigationsAttempted int `json:"mitigations_attempted"`
	MitigationsSucceeded int `json:"mitigations_succeeded"`

	// Failovers counts provider failover events recorded on requests
	// that ended on this provider and model.
	Failovers int `json:"failovers"`

	// CircuitRejections counts attempts this pair's requests lost to an
	// open circuit somewhere along the search.
	CircuitRejections int `json:"circuit_rejections"`

	// ErrorCategories distributes embedded call failures by classifier
	// category.
	ErrorCategories map[string]int `json:"error_categories,omitempty"`

	TotalEstimatedCostUSD float64 `json:"total_estimated_cost_usd"`
}

// Config configures the offline learning engine.
type Config struct {
	// Store is the time-series store the engine replays. Required.
	Store *store.TimeSeriesStore

	// PageSize is the cursor page size.
	// Default: 200
	PageSize int

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// Engine performs offline analysis over persisted ledger entries.
type Engine struct {
	store    *store.TimeSeriesStore
	pageSize int
	logger   *slog.Logger
}

// NewEngine creates a learning engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("time-series store is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:    cfg.Store,
		pageSize: cfg.PageSize,
		logger:   cfg.Logger.With("component", "learning_engine"),
	}, nil
}

// AnalyzeProviderPerformance streams ledger entries recorded in
// [start, end) and aggregates them per provider and model. Malformed
// entries are skipped and logged, never fatal. Results are ordered by
// provider then model; failed requests that never reached a provider
// aggregate under an empty provider name.
func (e *Engine) AnalyzeProviderPerformance(ctx context.Context, start, end time.Time) ([]PerformanceAnalysis, error) {
	type bucket struct {
		analysis     PerformanceAnalysis
		latencySum   int64
		latencyCount int
		scoreSum     float64
	}

	buckets := make(map[string]*bucket)
	cursor := e.store.QueryRange(events.TopicLedgerEntryCreated, start, end, e.pageSize)
	scanned := 0
	for {
		page, err := cursor.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading ledger entries: %w", err)
		}
		if page == nil {
			break
		}
		for _, ev := range page {
			entry, err := decodeEntry(ev)
			if err != nil {
				e.logger.Warn("skipping malformed ledger entry",
					"event_id", ev.EventID,
					"error", err)
				continue
			}
			scanned++

			key := entry.FinalProvider + "\x00" + entry.FinalModel
			b, ok := buckets[key]
			if !ok {
				b = &bucket{analysis: PerformanceAnalysis{
					Provider:    entry.FinalProvider,
					Model:       entry.FinalModel,
					PeriodStart: start,
					PeriodEnd:   end,
				}}
				buckets[key] = b
			}

			a := &b.analysis
			a.TotalRequests++
			switch entry.Outcome {
			case ledger.OutcomeSuccess:
				a.Successes++
			case ledger.OutcomeMitigatedSuccess:
				a.MitigatedSuccesses++
			default:
				a.Failures++
			}
			if entry.MitigationAttempted {
				a.MitigationsAttempted++
			}
			if entry.MitigationSucceeded {
				a.MitigationsSucceeded++
			}
			if entry.LatencyMS > 0 {
				b.latencySum += entry.LatencyMS
				b.latencyCount++
			}
			b.scoreSum += entry.ResilienceScore
			if entry.EstimatedCostUSD != nil {
				a.TotalEstimatedCostUSD += *entry.EstimatedCostUSD
			}
			tallyResilienceEvents(a, entry.ResilienceEvents)
		}
	}

	out := make([]PerformanceAnalysis, 0, len(buckets))
	for _, b := range buckets {
		a := b.analysis
		if a.TotalRequests > 0 {
			a.SuccessRate = float64(a.Successes+a.MitigatedSuccesses) / float64(a.TotalRequests)
			a.AvgResilienceScore = b.scoreSum / float64(a.TotalRequests)
		}
		if b.latencyCount > 0 {
			a.AvgLatencyMS = float64(b.latencySum) / float64(b.latencyCount)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Model < out[j].Model
	})

	e.logger.Info("provider performance analysis complete",
		"entries", scanned,
		"pairs", len(out),
		"start", start,
		"end", end)
	return out, nil
}

// tallyResilienceEvents folds a request's embedded event log into the
// aggregate counters.
func tallyResilienceEvents(a *PerformanceAnalysis, evs []events.Event) {
	for _, ev := range evs {
		switch ev.EventType {
		case events.TopicProviderFailover:
			a.Failovers++
		case events.TopicServiceUnavailable:
			if reason, _ := ev.Payload["reason"].(string); reason == "circuit_open" {
				a.CircuitRejections++
			}
		case events.TopicCallFailure:
			category, _ := ev.Payload["category"].(string)
			if category == "" {
				category = "unknown"
			}
			if a.ErrorCategories == nil {
				a.ErrorCategories = make(map[string]int)
			}
			a.ErrorCategories[category]++
		}
	}
}

// decodeEntry recovers a ledger entry from an event payload. Live bus
// events carry the typed pointer; events replayed from the store carry
// the JSON round-tripped map form.
func decodeEntry(ev events.Event) (*ledger.Entry, error) {
	raw, ok := ev.Payload["entry"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("payload has no entry")
	}
	if entry, ok := raw.(*ledger.Entry); ok {
		return entry, nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding entry: %w", err)
	}
	var entry ledger.Entry
	if err := json.Unmarshal(buf, &entry); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	return &entry, nil
}
