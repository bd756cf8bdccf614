package config

import "time"

// Config is the root configuration structure for the gateway. It covers
// the provider pools, failover behavior, ranking, cost tracking,
// telemetry, and the learning subsystem.
type Config struct {
	// Providers contains configuration for every upstream provider the
	// gateway can route to. Keys are provider names (e.g. "openai").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Failover contains configuration for the failover engine.
	Failover FailoverConfig `yaml:"failover"`

	// Ranking contains configuration for the provider ranking engine.
	Ranking RankingConfig `yaml:"ranking"`

	// Costs contains configuration for cost profiles and estimation.
	Costs CostsConfig `yaml:"costs"`

	// Telemetry contains configuration for the event bus, the durable
	// time-series store, and metrics exposition.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Learning contains configuration for offline performance analysis.
	Learning LearningConfig `yaml:"learning"`
}

// ProviderConfig contains configuration for a single upstream provider.
type ProviderConfig struct {
	// APIKeys is the credential pool rotated across on transient
	// failures. At least one key is required.
	APIKeys []string `yaml:"api_keys"`

	// Models is the provider's model priority list, most preferred
	// first.
	Models []string `yaml:"models"`

	// Resources configures health tracking for the credential pool.
	Resources ResourceConfig `yaml:"resources"`

	// Breaker configures the per provider and model circuit breakers.
	Breaker BreakerConfig `yaml:"breaker"`
}

// ResourceConfig contains credential pool health settings.
type ResourceConfig struct {
	// Cooldown is how long a fully degraded credential rests before
	// becoming eligible again.
	// Default: 5m
	Cooldown time.Duration `yaml:"cooldown"`

	// Penalty is the multiplicative health reduction applied on each
	// penalization. Must be in (0, 1).
	// Default: 0.5
	Penalty float64 `yaml:"penalty"`

	// HealingInterval is how often an idle credential regains health.
	// Default: 1m
	HealingInterval time.Duration `yaml:"healing_interval"`

	// HealingIncrement is the health restored per healing interval.
	// Default: 0.1
	HealingIncrement float64 `yaml:"healing_increment"`
}

// BreakerConfig contains circuit breaker settings.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that trips the
	// breaker.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// ResetTimeout is how long an open breaker waits before admitting a
	// trial call.
	// Default: 30s
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// FailoverConfig contains failover engine settings.
type FailoverConfig struct {
	// MaxKeyRotations bounds credential rotations within one model
	// attempt. Zero means rotate until the pool is exhausted.
	// Default: 0
	MaxKeyRotations int `yaml:"max_key_rotations"`
}

// RankingConfig contains provider ranking settings.
type RankingConfig struct {
	// EMAAlpha is the exponential moving average smoothing factor.
	// Must be in (0, 1].
	// Default: 0.3
	EMAAlpha float64 `yaml:"ema_alpha"`

	// MinRequestsThreshold is the request count below which a provider
	// scores the default instead of its observed EMA. An explicit zero is
	// honored and disables the warm-up period.
	// Default: 5
	MinRequestsThreshold int `yaml:"min_requests_threshold"`

	// DefaultScore is the effective score for unproven providers.
	// Must be in [0, 1]; an explicit zero is honored.
	// Default: 0.5
	DefaultScore float64 `yaml:"default_score"`
}

// CostsConfig contains cost profile settings.
type CostsConfig struct {
	// ProfilePath is the YAML file holding per provider and model price
	// profiles.
	// Default: "config/costs.yaml"
	ProfilePath string `yaml:"profile_path"`

	// Watch enables hot reloading of the profile file.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces rapid file change notifications.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Bus configures the in-process event bus.
	Bus BusConfig `yaml:"bus"`

	// Store configures the durable time-series event store.
	Store StoreConfig `yaml:"store"`

	// Retention configures scheduled pruning of old stored events.
	Retention RetentionConfig `yaml:"retention"`

	// Metrics configures Prometheus exposition.
	Metrics MetricsConfig `yaml:"metrics"`
}

// BusConfig contains event bus settings.
type BusConfig struct {
	// Workers is the number of async dispatch goroutines.
	// Default: 4
	Workers int `yaml:"workers"`

	// QueueSize is the async dispatch queue capacity.
	// Default: 1024
	QueueSize int `yaml:"queue_size"`
}

// StoreConfig contains time-series store settings.
type StoreConfig struct {
	// Path is the SQLite database file.
	// Default: "data/telemetry.db"
	Path string `yaml:"path"`

	// QueueSize is the ingest queue capacity.
	// Default: 10000
	QueueSize int `yaml:"queue_size"`

	// BatchSize is the number of events written per transaction.
	// Default: 100
	BatchSize int `yaml:"batch_size"`

	// FlushInterval is the maximum time an event waits in the queue.
	// Default: 5s
	FlushInterval time.Duration `yaml:"flush_interval"`

	// MaxRetries is how many times a failed batch write is retried.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the initial backoff between write retries. It
	// doubles on each attempt.
	// Default: 100ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// RetentionConfig contains stored event retention settings.
type RetentionConfig struct {
	// Enabled controls whether scheduled pruning runs.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// MaxAge is how long events are kept.
	// Default: 720h (30 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is the cron expression for pruning runs.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "saturn"
	Namespace string `yaml:"namespace"`

	// Subsystem is the second metric name segment.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`
}

// LearningConfig contains offline analysis settings.
type LearningConfig struct {
	// SnapshotPath is the SQLite database holding analysis snapshots.
	// Default: "data/analyses.db"
	SnapshotPath string `yaml:"snapshot_path"`

	// PageSize is the store cursor page size used during analysis.
	// Default: 200
	PageSize int `yaml:"page_size"`
}
