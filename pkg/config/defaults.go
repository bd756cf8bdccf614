package config

import "time"

// Default values for configuration fields.
const (
	// Resource defaults
	DefaultResourceCooldown         = 5 * time.Minute
	DefaultResourcePenalty          = 0.5
	DefaultResourceHealingInterval  = time.Minute
	DefaultResourceHealingIncrement = 0.1

	// Breaker defaults
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerResetTimeout     = 30 * time.Second

	// Failover defaults
	DefaultMaxKeyRotations = 0 // rotate until pool exhaustion

	// Ranking defaults
	DefaultRankingEMAAlpha             = 0.3
	DefaultRankingMinRequestsThreshold = 5
	DefaultRankingDefaultScore         = 0.5

	// Costs defaults
	DefaultCostsProfilePath = "config/costs.yaml"
	DefaultCostsDebounce    = 100 * time.Millisecond

	// Telemetry defaults
	DefaultBusWorkers         = 4
	DefaultBusQueueSize       = 1024
	DefaultStorePath          = "data/telemetry.db"
	DefaultStoreQueueSize     = 10000
	DefaultStoreBatchSize     = 100
	DefaultStoreFlushInterval = 5 * time.Second
	DefaultStoreMaxRetries    = 3
	DefaultStoreRetryBackoff  = 100 * time.Millisecond
	DefaultRetentionMaxAge    = 720 * time.Hour
	DefaultRetentionSchedule  = "0 3 * * *"
	DefaultMetricsEnabled     = true
	DefaultMetricsNamespace   = "saturn"
	DefaultMetricsSubsystem   = "gateway"

	// Learning defaults
	DefaultLearningSnapshotPath = "data/analyses.db"
	DefaultLearningPageSize     = 200
)

// NewDefault returns a configuration populated with every default. Load
// unmarshals the YAML file over this, so booleans like
// telemetry.metrics.enabled default on unless explicitly disabled.
func NewDefault() *Config {
	return &Config{
		Providers: make(map[string]ProviderConfig),
		Ranking: RankingConfig{
			EMAAlpha:             DefaultRankingEMAAlpha,
			MinRequestsThreshold: DefaultRankingMinRequestsThreshold,
			DefaultScore:         DefaultRankingDefaultScore,
		},
		Costs: CostsConfig{
			ProfilePath:      DefaultCostsProfilePath,
			DebounceInterval: DefaultCostsDebounce,
		},
		Telemetry: TelemetryConfig{
			Bus: BusConfig{
				Workers:   DefaultBusWorkers,
				QueueSize: DefaultBusQueueSize,
			},
			Store: StoreConfig{
				Path:          DefaultStorePath,
				QueueSize:     DefaultStoreQueueSize,
				BatchSize:     DefaultStoreBatchSize,
				FlushInterval: DefaultStoreFlushInterval,
				MaxRetries:    DefaultStoreMaxRetries,
				RetryBackoff:  DefaultStoreRetryBackoff,
			},
			Retention: RetentionConfig{
				MaxAge:   DefaultRetentionMaxAge,
				Schedule: DefaultRetentionSchedule,
			},
			Metrics: MetricsConfig{
				Enabled:   DefaultMetricsEnabled,
				Namespace: DefaultMetricsNamespace,
				Subsystem: DefaultMetricsSubsystem,
			},
		},
		Learning: LearningConfig{
			SnapshotPath: DefaultLearningSnapshotPath,
			PageSize:     DefaultLearningPageSize,
		},
	}
}

// ApplyDefaults fills zero-valued fields. It is idempotent and safe to
// call on a configuration assembled in code rather than loaded from a
// file. Map-valued provider entries replace wholesale during YAML
// unmarshalling, so their nested defaults are applied here.
func ApplyDefaults(cfg *Config) {
	for name, provider := range cfg.Providers {
		if provider.Resources.Cooldown == 0 {
			provider.Resources.Cooldown = DefaultResourceCooldown
		}
		if provider.Resources.Penalty == 0 {
			provider.Resources.Penalty = DefaultResourcePenalty
		}
		if provider.Resources.HealingInterval == 0 {
			provider.Resources.HealingInterval = DefaultResourceHealingInterval
		}
		if provider.Resources.HealingIncrement == 0 {
			provider.Resources.HealingIncrement = DefaultResourceHealingIncrement
		}
		if provider.Breaker.FailureThreshold == 0 {
			provider.Breaker.FailureThreshold = DefaultBreakerFailureThreshold
		}
		if provider.Breaker.ResetTimeout == 0 {
			provider.Breaker.ResetTimeout = DefaultBreakerResetTimeout
		}
		cfg.Providers[name] = provider
	}

	// MinRequestsThreshold and DefaultScore are left alone: zero is a
	// legal setting for both, and NewDefault seeds the recommended values
	// for configurations that never mention them.
	if cfg.Ranking.EMAAlpha == 0 {
		cfg.Ranking.EMAAlpha = DefaultRankingEMAAlpha
	}

	if cfg.Costs.ProfilePath == "" {
		cfg.Costs.ProfilePath = DefaultCostsProfilePath
	}
	if cfg.Costs.DebounceInterval == 0 {
		cfg.Costs.DebounceInterval = DefaultCostsDebounce
	}

	if cfg.Telemetry.Bus.Workers == 0 {
		cfg.Telemetry.Bus.Workers = DefaultBusWorkers
	}
	if cfg.Telemetry.Bus.QueueSize == 0 {
		cfg.Telemetry.Bus.QueueSize = DefaultBusQueueSize
	}
	if cfg.Telemetry.Store.Path == "" {
		cfg.Telemetry.Store.Path = DefaultStorePath
	}
	if cfg.Telemetry.Store.QueueSize == 0 {
		cfg.Telemetry.Store.QueueSize = DefaultStoreQueueSize
	}
	if cfg.Telemetry.Store.BatchSize == 0 {
		cfg.Telemetry.Store.BatchSize = DefaultStoreBatchSize
	}
	if cfg.Telemetry.Store.FlushInterval == 0 {
		cfg.Telemetry.Store.FlushInterval = DefaultStoreFlushInterval
	}
	if cfg.Telemetry.Store.MaxRetries == 0 {
		cfg.Telemetry.Store.MaxRetries = DefaultStoreMaxRetries
	}
	if cfg.Telemetry.Store.RetryBackoff == 0 {
		cfg.Telemetry.Store.RetryBackoff = DefaultStoreRetryBackoff
	}
	if cfg.Telemetry.Retention.MaxAge == 0 {
		cfg.Telemetry.Retention.MaxAge = DefaultRetentionMaxAge
	}
	if cfg.Telemetry.Retention.Schedule == "" {
		cfg.Telemetry.Retention.Schedule = DefaultRetentionSchedule
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}

	if cfg.Learning.SnapshotPath == "" {
		cfg.Learning.SnapshotPath = DefaultLearningSnapshotPath
	}
	if cfg.Learning.PageSize == 0 {
		cfg.Learning.PageSize = DefaultLearningPageSize
	}
}
