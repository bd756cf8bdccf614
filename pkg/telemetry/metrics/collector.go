package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/ledger"
	"mercator-hq/saturn/pkg/telemetry/bus"
	"mercator-hq/saturn/pkg/telemetry/events"
	"mercator-hq/saturn/pkg/telemetry/store"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled toggles metric recording. Disabled collectors subscribe to
	// nothing.
	Enabled bool

	// Namespace is the metric name prefix.
	// Default: "saturn"
	Namespace string

	// Subsystem is the second metric name segment.
	// Default: "gateway"
	Subsystem string
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: "saturn",
		Subsystem: "gateway",
	}
}

// Collector derives Prometheus metrics from bus events.
type Collector struct {
	cfg      Config
	registry *prometheus.Registry

	callsTotal        *prometheus.CounterVec
	requestOutcomes   *prometheus.CounterVec
	failoversTotal    *prometheus.CounterVec
	mitigationsTotal  *prometheus.CounterVec
	circuitChanges    *prometheus.CounterVec
	costSkipsTotal    prometheus.Counter
	exhaustionsTotal  prometheus.Counter
	keyRotationsTotal *prometheus.CounterVec
	resourceHealth    *prometheus.GaugeVec
	estimatedCostUSD  prometheus.Counter
}

// NewCollector creates a collector and registers its metrics. A nil
// registry uses a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	def := DefaultConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = def.Subsystem
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}
	}

	c := &Collector{
		cfg:      cfg,
		registry: registry,
		callsTotal: prometheus.NewCounterVec(
			opts("provider_calls_total", "Provider call attempts by provider, model, and result"),
			[]string{"provider", "model", "result"},
		),
		requestOutcomes: prometheus.NewCounterVec(
			opts("requests_total", "Completed requests by ledger outcome"),
			[]string{"outcome", "provider"},
		),
		failoversTotal: prometheus.NewCounterVec(
			opts("provider_failovers_total", "Provider failover transitions"),
			[]string{"provider"},
		),
		mitigationsTotal: prometheus.NewCounterVec(
			opts("mitigations_total", "Content-policy mitigation attempts by stage"),
			[]string{"stage"},
		),
		circuitChanges: prometheus.NewCounterVec(
			opts("circuit_transitions_total", "Circuit breaker transitions by service and direction"),
			[]string{"service", "transition"},
		),
		costSkipsTotal:   prometheus.NewCounter(opts("cost_cap_skips_total", "Models skipped by the cost cap")),
		exhaustionsTotal: prometheus.NewCounter(opts("exhaustions_total", "Requests that exhausted every provider")),
		keyRotationsTotal: prometheus.NewCounterVec(
			opts("key_rotations_total", "Credential rotations within a model attempt"),
			[]string{"provider"},
		),
		resourceHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "resource_health_score",
				Help:      "Last observed health score per penalized credential",
			},
			[]string{"provider", "resource"},
		),
		estimatedCostUSD: prometheus.NewCounter(opts("estimated_cost_usd_total", "Accumulated estimated request cost in USD")),
	}

	registry.MustRegister(
		c.callsTotal,
		c.requestOutcomes,
		c.failoversTotal,
		c.mitigationsTotal,
		c.circuitChanges,
		c.costSkipsTotal,
		c.exhaustionsTotal,
		c.keyRotationsTotal,
		c.resourceHealth,
		c.estimatedCostUSD,
	)
	return c
}

// Registry returns the registry holding the collector's metrics, for
// exposition.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Register subscribes the collector to every topic it derives metrics
// from. A disabled collector subscribes to nothing.
func (c *Collector) Register(b *bus.Bus) {
	if !c.cfg.Enabled {
		return
	}
	for _, topic := range []string{
		events.TopicCallSuccess,
		events.TopicCallFailure,
		events.TopicProviderFailover,
		events.TopicMitigationAttempt,
		events.TopicMitigationSuccess,
		events.TopicMitigationFailure,
		events.TopicCircuitTripped,
		events.TopicCircuitReset,
		events.TopicModelSkippedCost,
		events.TopicAllProvidersFailed,
		events.TopicKeyRotation,
		events.TopicResourcePenalized,
		events.TopicResourceRestored,
		events.TopicLedgerEntryCreated,
	} {
		b.Subscribe(topic, c.HandleEvent)
	}
}

// ObserveStore registers live gauges over the time-series store's queue.
func (c *Collector) ObserveStore(s *store.TimeSeriesStore) {
	gauge := func(name, help string, fn func() float64) {
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.cfg.Namespace,
			Subsystem: c.cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, fn))
	}
	gauge("store_queue_depth", "Events waiting in the store's ingest queue",
		func() float64 { return float64(s.QueueDepth()) })
	gauge("store_dropped_total", "Events dropped by a full store queue",
		func() float64 { return float64(s.Dropped()) })
	gauge("store_flush_failures_total", "Store flush cycles that exhausted retries",
		func() float64 { return float64(s.FlushFailures()) })
}

// HandleEvent implements bus.Handler.
func (c *Collector) HandleEvent(topic string, e events.Event) {
	switch topic {
	case events.TopicCallSuccess:
		c.callsTotal.WithLabelValues(payloadString(e, "provider"), payloadString(e, "model"), "success").Inc()
	case events.TopicCallFailure:
		c.callsTotal.WithLabelValues(payloadString(e, "provider"), payloadString(e, "model"), "failure").Inc()
	case events.TopicProviderFailover:
		c.failoversTotal.WithLabelValues(payloadString(e, "provider")).Inc()
	case events.TopicMitigationAttempt:
		c.mitigationsTotal.WithLabelValues("attempt").Inc()
	case events.TopicMitigationSuccess:
		c.mitigationsTotal.WithLabelValues("success").Inc()
	case events.TopicMitigationFailure:
		c.mitigationsTotal.WithLabelValues("failure").Inc()
	case events.TopicCircuitTripped:
		c.circuitChanges.WithLabelValues(payloadString(e, "service"), "tripped").Inc()
	case events.TopicCircuitReset:
		c.circuitChanges.WithLabelValues(payloadString(e, "service"), "reset").Inc()
	case events.TopicModelSkippedCost:
		c.costSkipsTotal.Inc()
	case events.TopicAllProvidersFailed:
		c.exhaustionsTotal.Inc()
	case events.TopicKeyRotation:
		c.keyRotationsTotal.WithLabelValues(payloadString(e, "provider")).Inc()
	case events.TopicResourcePenalized, events.TopicResourceRestored:
		if score, ok := payloadFloat(e, "health_score"); ok {
			c.resourceHealth.WithLabelValues(payloadString(e, "provider"), payloadString(e, "resource")).Set(score)
		}
	case events.TopicLedgerEntryCreated:
		if entry, ok := e.Payload["entry"].(*ledger.Entry); ok {
			c.requestOutcomes.WithLabelValues(entry.Outcome, entry.FinalProvider).Inc()
			if entry.EstimatedCostUSD != nil {
				c.estimatedCostUSD.Add(*entry.EstimatedCostUSD)
			}
		}
	}
}

func payloadString(e events.Event, key string) string {
	v, _ := e.Payload[key].(string)
	return v
}

func payloadFloat(e events.Event, key string) (float64, bool) {
	v, ok := e.Payload[key].(float64)
	return v, ok
}
