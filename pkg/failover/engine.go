package failover

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/saturn/pkg/breaker"
	"mercator-hq/saturn/pkg/costs"
	"mercator-hq/saturn/pkg/guard"
	"mercator-hq/saturn/pkg/ledger"
	"mercator-hq/saturn/pkg/providers"
	"mercator-hq/saturn/pkg/ranking"
	"mercator-hq/saturn/pkg/rewrite"
	"mercator-hq/saturn/pkg/telemetry/bus"
	"mercator-hq/saturn/pkg/telemetry/events"
)

// eventSource identifies the engine on emitted events.
const eventSource = "failover_engine"

// resilienceDecayPerAttempt is subtracted from a successful request's
// resilience score for every attempt beyond the first.
const resilienceDecayPerAttempt = 0.2

// resilienceFloor is the minimum score of a request that eventually
// succeeded, however many attempts it took.
const resilienceFloor = 0.1

// ProviderModels pairs one provider with its ordered candidate models.
type ProviderModels struct {
	// Provider is the provider name.
	Provider string

	// Models are candidate model identifiers, tried in order.
	Models []string
}

// Request is one chat-completion request with its failover directives.
type Request struct {
	// ModelPriority is the caller's ordered provider and model
	// preference. Required.
	ModelPriority []ProviderModels

	// Messages is the conversation to complete. Required.
	Messages []providers.ChatMessage

	// MaxTokens bounds the completion length. Optional.
	MaxTokens int

	// Temperature is the sampling temperature. Optional.
	Temperature float64

	// PreferredProvider, when set, is tried first regardless of ranking.
	PreferredProvider string

	// MaxEstimatedCostUSD caps the worst-case estimated cost per model
	// attempt. Zero means no cap.
	MaxEstimatedCostUSD float64
}

// Config wires the engine's collaborators.
type Config struct {
	// Providers maps provider name to its adapter. Required.
	Providers map[string]providers.Provider

	// Guards maps provider name to its credential pool. Required, one
	// guard per configured provider.
	Guards map[string]*guard.ResourceGuard

	// Breakers creates and shares per provider+model circuit breakers.
	// Required.
	Breakers *breaker.Registry

	// BreakerConfig configures breakers on first creation.
	BreakerConfig breaker.Config

	// Ranking orders providers under value-driven selection. Required.
	Ranking *ranking.Engine

	// Costs prices model attempts for the cost cap. Required.
	Costs *costs.Table

	// Ledger records the request lifecycle. Required.
	Ledger *ledger.BiasLedger

	// Bus receives resilience events. Required.
	Bus *bus.Bus

	// Classifier maps adapter errors to failure categories.
	// Defaults to providers.DefaultClassifier.
	Classifier providers.Classifier

	// Rewriter mitigates content-policy rejections.
	// Defaults to rewrite.TemplateRewriter.
	Rewriter rewrite.Rewriter

	// MaxKeyRotations bounds how many credentials are tried per model.
	// Zero means rotate until the pool reports exhaustion.
	MaxKeyRotations int

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// Engine orchestrates failover across providers, models, and credentials.
// Safe for concurrent requests; all mutable state is per-request.
type Engine struct {
	providers  map[string]providers.Provider
	guards     map[string]*guard.ResourceGuard
	breakers   *breaker.Registry
	breakerCfg breaker.Config
	ranking    *ranking.Engine
	costs      *costs.Table
	ledger     *ledger.BiasLedger
	bus        *bus.Bus
	classifier providers.Classifier
	rewriter   rewrite.Rewriter
	maxKeyRot  int
	logger     *slog.Logger
}

// New creates an Engine, validating that every provider has both an
// adapter and a resource pool.
func New(cfg Config) (*Engine, error) {
	switch {
	case len(cfg.Providers) == 0:
		return nil, fmt.Errorf("at least one provider adapter is required")
	case cfg.Breakers == nil:
		return nil, fmt.Errorf("breaker registry is required")
	case cfg.Ranking == nil:
		return nil, fmt.Errorf("ranking engine is required")
	case cfg.Costs == nil:
		return nil, fmt.Errorf("cost table is required")
	case cfg.Ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	case cfg.Bus == nil:
		return nil, fmt.Errorf("event bus is required")
	}
	for name := range cfg.Providers {
		if _, ok := cfg.Guards[name]; !ok {
			return nil, fmt.Errorf("provider %q has no resource pool", name)
		}
	}
	if cfg.Classifier == nil {
		cfg.Classifier = providers.DefaultClassifier{}
	}
	if cfg.Rewriter == nil {
		cfg.Rewriter = &rewrite.TemplateRewriter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BreakerConfig.OnStateChange == nil {
		cfg.BreakerConfig.OnStateChange = circuitEventPublisher(cfg.Bus)
	}
	// The engine is the restore listener for every pool it drives, so
	// credential recoveries surface on the bus next to penalties.
	for name, g := range cfg.Guards {
		g.SetOnRestore(resourceRestorePublisher(cfg.Bus, name))
	}
	return &Engine{
		providers:  cfg.Providers,
		guards:     cfg.Guards,
		breakers:   cfg.Breakers,
		breakerCfg: cfg.BreakerConfig,
		ranking:    cfg.Ranking,
		costs:      cfg.Costs,
		ledger:     cfg.Ledger,
		bus:        cfg.Bus,
		classifier: cfg.Classifier,
		rewriter:   cfg.Rewriter,
		maxKeyRot:  cfg.MaxKeyRotations,
		logger:     cfg.Logger.With("component", "failover_engine"),
	}, nil
}

// ExecuteRequest drives one request across the full provider, model, and
// credential search space. It returns the first successful response, or
// an *AllProvidersFailedError aggregating every attempt's failure. A
// ledger entry and a learning feedback event are produced on every path.
func (e *Engine) ExecuteRequest(ctx context.Context, req *Request) (*providers.CompletionResponse, error) {
	if len(req.ModelPriority) == 0 {
		return nil, fmt.Errorf("model priority is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	rc := newRequestContext(req.Messages)
	mode := SelectionValueDriven
	if req.PreferredProvider != "" {
		mode = SelectionPreferenceDriven
	}
	logger := e.logger.With("request_id", rc.RequestID)
	logger.Info("request started",
		"selection_mode", mode,
		"providers", len(req.ModelPriority),
		"cost_cap_usd", req.MaxEstimatedCostUSD)

	e.emit(rc, events.TopicRequestStart, events.SeverityInfo, map[string]any{
		"request_id":     rc.RequestID,
		"selection_mode": mode,
	})

	var failures []string
	for _, pm := range e.orderProviders(rc, req) {
		adapter, okA := e.providers[pm.Provider]
		g, okG := e.guards[pm.Provider]
		if !okA || !okG {
			err := &UnknownProviderError{Provider: pm.Provider}
			failures = append(failures, err.Error())
			logger.Warn("skipping unknown provider", "provider", pm.Provider)
			continue
		}

		for _, model := range pm.Models {
			resp, reason := e.tryModel(ctx, rc, req, adapter, g, pm.Provider, model, logger)
			if resp != nil {
				return e.finishSuccess(rc, mode, resp, logger), nil
			}
			failures = append(failures, reason...)
		}
		e.emit(rc, events.TopicProviderFailover, events.SeverityWarning, map[string]any{
			"request_id": rc.RequestID,
			"provider":   pm.Provider,
		})
	}

	rc.FailoverReasons = append(rc.FailoverReasons, ReasonAllProvidersFailed)
	e.emit(rc, events.TopicAllProvidersFailed, events.SeverityCritical, map[string]any{
		"request_id": rc.RequestID,
		"reasons":    failures,
	})
	e.emit(rc, events.TopicRequestEnd, events.SeverityWarning, map[string]any{
		"request_id": rc.RequestID,
		"success":    false,
		"attempts":   rc.APICallCount,
	})
	err := &AllProvidersFailedError{RequestID: rc.RequestID, Reasons: failures}
	logger.Error("request exhausted all providers", "attempts", rc.APICallCount)

	e.ledger.LogRequestLifecycle(rc.ledgerView(), mode, nil, err, 0)
	e.publishFeedback(rc, "", 0)
	return nil, err
}

// tryModel walks one provider+model: cost cap, breaker, then credential
// rotation. It returns a successful response, or the list of failure
// reasons accumulated for this model.
func (e *Engine) tryModel(ctx context.Context, rc *RequestContext, req *Request, adapter providers.Provider, g *guard.ResourceGuard, provider, model string, logger *slog.Logger) (*providers.CompletionResponse, []string) {
	var reasons []string

	if req.MaxEstimatedCostUSD > 0 {
		if est, ok := e.costs.EstimateRequestUSD(provider, model, rc.FinalMessages, req.MaxTokens); ok && est > req.MaxEstimatedCostUSD {
			e.emit(rc, events.TopicModelSkippedCost, events.SeverityWarning, map[string]any{
				"request_id":    rc.RequestID,
				"provider":      provider,
				"model":         model,
				"estimated_usd": est,
				"cap_usd":       req.MaxEstimatedCostUSD,
			})
			logger.Info("model skipped by cost cap",
				"provider", provider,
				"model", model,
				"estimated_usd", est)
			return nil, []string{fmt.Sprintf("%s/%s skipped: estimated cost %.6f exceeds cap %.6f", provider, model, est, req.MaxEstimatedCostUSD)}
		}
	}

	cb, err := e.breakers.GetBreaker(breakerName(provider, model), e.breakerCfg)
	if err != nil {
		return nil, []string{fmt.Sprintf("%s/%s breaker: %v", provider, model, err)}
	}
	if err := cb.Check(); err != nil {
		e.emit(rc, events.TopicServiceUnavailable, events.SeverityWarning, map[string]any{
			"request_id": rc.RequestID,
			"provider":   provider,
			"model":      model,
			"reason":     "circuit_open",
		})
		return nil, []string{fmt.Sprintf("%s/%s skipped: %v", provider, model, err)}
	}

	rotations := 0
	for {
		// Pool availability is re-evaluated on every attempt so that a
		// credential freed or healed mid-request is picked up.
		res, release, err := g.Acquire()
		if err != nil {
			e.emit(rc, events.TopicServiceUnavailable, events.SeverityWarning, map[string]any{
				"request_id": rc.RequestID,
				"provider":   provider,
				"model":      model,
				"reason":     "no_resources",
			})
			return nil, append(reasons, fmt.Sprintf("%s/%s: %v", provider, model, err))
		}

		resp, done, rotated, reason := e.attempt(ctx, rc, req, adapter, g, cb, res, release, provider, model, logger)
		if resp != nil {
			return resp, nil
		}
		if reason != "" {
			reasons = append(reasons, reason)
		}
		if done {
			return nil, reasons
		}
		if !rotated {
			// Mitigation retry: the credential is healthy, so the retry
			// does not count against the rotation bound.
			continue
		}

		rotations++
		if e.maxKeyRot > 0 && rotations >= e.maxKeyRot {
			return nil, append(reasons, fmt.Sprintf("%s/%s: key rotation limit %d reached", provider, model, e.maxKeyRot))
		}
		e.emit(rc, events.TopicKeyRotation, events.SeverityInfo, map[string]any{
			"request_id": rc.RequestID,
			"provider":   provider,
			"model":      model,
			"rotation":   rotations,
		})
	}
}

// attempt performs one provider call with one credential. done reports
// whether the model should be abandoned (as opposed to rotating to the
// next credential or retrying after mitigation); rotated reports whether
// the failure was attributable to the credential, so that only those
// failures count against the key rotation bound.
func (e *Engine) attempt(ctx context.Context, rc *RequestContext, req *Request, adapter providers.Provider, g *guard.ResourceGuard, cb *breaker.CircuitBreaker, res *guard.Resource, release func(), provider, model string, logger *slog.Logger) (resp *providers.CompletionResponse, done, rotated bool, reason string) {
	defer release()

	rc.APICallCount++
	e.emit(rc, events.TopicCallAttempt, events.SeverityDebug, map[string]any{
		"request_id": rc.RequestID,
		"provider":   provider,
		"model":      model,
		"api_key":    res.SafeValue(),
		"attempt":    rc.APICallCount,
	})

	result, callErr := adapter.Complete(ctx, &providers.CompletionRequest{
		Model:          model,
		Messages:       rc.FinalMessages,
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
		APIKeyOverride: res.Value(),
	})
	if callErr == nil && result != nil && result.Success {
		cb.RecordSuccess()
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		if _, ok := result.Metadata["provider_name"]; !ok {
			result.Metadata["provider_name"] = provider
		}
		e.emit(rc, events.TopicCallSuccess, events.SeverityInfo, map[string]any{
			"request_id": rc.RequestID,
			"provider":   provider,
			"model":      model,
			"latency_ms": result.LatencyMS,
		})
		return result, true, false, ""
	}

	if callErr == nil {
		callErr = fmt.Errorf("provider %q returned unsuccessful response: %s", provider, result.ErrorMessage)
	}
	details := e.classifier.Classify(callErr, provider)
	e.emit(rc, events.TopicCallFailure, events.SeverityWarning, map[string]any{
		"request_id": rc.RequestID,
		"provider":   provider,
		"model":      model,
		"category":   string(details.Category),
		"error":      callErr.Error(),
	})
	logger.Warn("provider call failed",
		"provider", provider,
		"model", model,
		"category", string(details.Category),
		"error", callErr)

	switch details.Category {
	case providers.CategoryTransient:
		cb.RecordFailure()
		e.penalize(rc, g, res, provider)
		// Rotate to the next credential for the same model.
		return nil, false, true, fmt.Sprintf("%s/%s transient: %v", provider, model, callErr)

	case providers.CategoryContentPolicy:
		// The credential is fine; the prompt was refused.
		if rc.MitigationAttempted {
			cb.RecordFailure()
			return nil, true, false, fmt.Sprintf("%s/%s content policy after mitigation: %v", provider, model, callErr)
		}
		rc.MitigationAttempted = true
		e.emit(rc, events.TopicMitigationAttempt, events.SeverityInfo, map[string]any{
			"request_id": rc.RequestID,
			"provider":   provider,
			"model":      model,
		})
		rewritten, rerr := e.rewriter.Rewrite(ctx, rc.InitialMessages)
		if rerr != nil {
			cb.RecordFailure()
			e.emit(rc, events.TopicMitigationFailure, events.SeverityError, map[string]any{
				"request_id": rc.RequestID,
				"error":      rerr.Error(),
			})
			return nil, true, false, fmt.Sprintf("%s/%s mitigation failed: %v", provider, model, rerr)
		}
		rc.MitigationSucceeded = true
		rc.FinalMessages = rewritten
		e.emit(rc, events.TopicMitigationSuccess, events.SeverityInfo, map[string]any{
			"request_id": rc.RequestID,
		})
		// Retry the same model with the rewritten conversation.
		return nil, false, false, fmt.Sprintf("%s/%s content policy, mitigated: %v", provider, model, callErr)

	default:
		cb.RecordFailure()
		e.emit(rc, events.TopicModelFailover, events.SeverityWarning, map[string]any{
			"request_id": rc.RequestID,
			"provider":   provider,
			"model":      model,
		})
		return nil, true, false, fmt.Sprintf("%s/%s fatal: %v", provider, model, callErr)
	}
}

// finishSuccess records scoring, ledger, and feedback for a successful
// response.
func (e *Engine) finishSuccess(rc *RequestContext, mode string, resp *providers.CompletionResponse, logger *slog.Logger) *providers.CompletionResponse {
	score := resilienceScore(rc.APICallCount)
	e.emit(rc, events.TopicRequestEnd, events.SeverityInfo, map[string]any{
		"request_id": rc.RequestID,
		"success":    true,
		"provider":   resp.ProviderName(),
		"model":      resp.ModelUsed,
		"attempts":   rc.APICallCount,
	})
	e.ledger.LogRequestLifecycle(rc.ledgerView(), mode, resp, nil, score)
	e.publishFeedback(rc, resp.ProviderName(), score)
	logger.Info("request succeeded",
		"provider", resp.ProviderName(),
		"model", resp.ModelUsed,
		"attempts", rc.APICallCount,
		"resilience_score", score)
	return resp
}

// penalize records a credential failure and its event.
func (e *Engine) penalize(rc *RequestContext, g *guard.ResourceGuard, res *guard.Resource, provider string) {
	if err := g.Penalize(res.Value()); err != nil {
		e.logger.Error("failed to penalize resource", "provider", provider, "error", err)
		return
	}
	e.emit(rc, events.TopicResourcePenalized, events.SeverityWarning, map[string]any{
		"request_id":   rc.RequestID,
		"provider":     provider,
		"resource":     res.SafeValue(),
		"health_score": res.HealthScore(),
	})
}

// publishFeedback emits the learning feedback signal for one finished
// request.
func (e *Engine) publishFeedback(rc *RequestContext, finalProvider string, score float64) {
	e.bus.Publish(events.TopicLearningFeedback, events.New(
		events.TopicLearningFeedback,
		eventSource,
		events.SeverityInfo,
		map[string]any{
			"request_id":       rc.RequestID,
			"final_provider":   finalProvider,
			"resilience_score": score,
		},
	))
}

// orderProviders applies selection-mode ordering to the request's
// provider priority, including the preferred-provider viability check.
func (e *Engine) orderProviders(rc *RequestContext, req *Request) []ProviderModels {
	order := make([]ProviderModels, len(req.ModelPriority))
	copy(order, req.ModelPriority)

	if req.PreferredProvider == "" {
		// Value-driven: rank by observed quality, caller order breaking
		// ties.
		names := make([]string, len(order))
		byName := make(map[string]ProviderModels, len(order))
		for i, pm := range order {
			names[i] = pm.Provider
			byName[pm.Provider] = pm
		}
		ranked := e.ranking.Rank(names)
		for i, name := range ranked {
			order[i] = byName[name]
		}
		return order
	}

	idx := -1
	for i, pm := range order {
		if pm.Provider == req.PreferredProvider {
			idx = i
			break
		}
	}
	if idx < 0 {
		return order
	}

	preferred := order[idx]
	rest := append(order[:idx:idx], order[idx+1:]...)
	reason, viable := e.preferredViable(rc, req, preferred)
	if viable {
		return append([]ProviderModels{preferred}, rest...)
	}
	rc.FailoverReasons = append(rc.FailoverReasons, reason)
	e.emit(rc, events.TopicProviderFailover, events.SeverityWarning, map[string]any{
		"request_id": rc.RequestID,
		"provider":   preferred.Provider,
		"reason":     reason,
	})
	// Demoted, not dropped: the preferred provider is still tried after
	// every alternative.
	return append(rest, preferred)
}

// preferredViable checks the preferred provider before it is placed at
// the head of the order: open circuits on every model, an unhealthy key
// pool, or a cost cap excluding every model all demote it.
func (e *Engine) preferredViable(rc *RequestContext, req *Request, pm ProviderModels) (string, bool) {
	anyCircuitClosed := false
	for _, model := range pm.Models {
		cb, err := e.breakers.GetBreaker(breakerName(pm.Provider, model), e.breakerCfg)
		if err != nil {
			continue
		}
		if cb.Check() == nil {
			anyCircuitClosed = true
			break
		}
	}
	if len(pm.Models) > 0 && !anyCircuitClosed {
		return ReasonPreferredCircuitOpen + ":" + pm.Provider, false
	}

	if g, ok := e.guards[pm.Provider]; ok && !g.HasHealthy() {
		return ReasonPreferredKeysUnhealthy + ":" + pm.Provider, false
	}

	if req.MaxEstimatedCostUSD > 0 {
		anyAffordable := false
		for _, model := range pm.Models {
			est, ok := e.costs.EstimateRequestUSD(pm.Provider, model, rc.FinalMessages, req.MaxTokens)
			if !ok || est <= req.MaxEstimatedCostUSD {
				anyAffordable = true
				break
			}
		}
		if len(pm.Models) > 0 && !anyAffordable {
			return ReasonPreferredOverCostCap + ":" + pm.Provider, false
		}
	}
	return "", true
}

// emit records an event in the request context and publishes it.
func (e *Engine) emit(rc *RequestContext, topic string, severity events.Severity, payload map[string]any) {
	ev := events.New(topic, eventSource, severity, payload)
	rc.record(ev)
	e.bus.Publish(topic, ev)
}

// resilienceScore grades a successful request by how many attempts it
// took: a first-try success scores 1.0, each additional attempt decays
// the score down to the floor.
func resilienceScore(apiCalls int) float64 {
	if apiCalls <= 1 {
		return 1.0
	}
	score := 1.0 - resilienceDecayPerAttempt*float64(apiCalls-1)
	if score < resilienceFloor {
		return resilienceFloor
	}
	return score
}

// breakerName keys one provider+model circuit.
func breakerName(provider, model string) string {
	return provider + ":" + model
}

// resourceRestorePublisher publishes a pool's cooldown recoveries as
// resource-restored events.
func resourceRestorePublisher(b *bus.Bus, provider string) func(resource string, healthScore float64) {
	return func(resource string, healthScore float64) {
		b.Publish(events.TopicResourceRestored, events.New(
			events.TopicResourceRestored,
			eventSource,
			events.SeverityInfo,
			map[string]any{
				"provider":     provider,
				"resource":     resource,
				"health_score": healthScore,
			},
		))
	}
}

// circuitEventPublisher publishes breaker transitions to the bus. Trips
// are anything landing on OPEN, everything else is a reset step.
func circuitEventPublisher(b *bus.Bus) func(service string, from, to breaker.State) {
	return func(service string, from, to breaker.State) {
		topic := events.TopicCircuitReset
		severity := events.SeverityInfo
		if to == breaker.StateOpen {
			topic = events.TopicCircuitTripped
			severity = events.SeverityWarning
		}
		b.Publish(topic, events.New(topic, eventSource, severity, map[string]any{
			"service": service,
			"from":    string(from),
			"to":      string(to),
		}))
	}
}
