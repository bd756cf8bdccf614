package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError reports a validation problem with one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "ranking.ema_alpha").
	Field string

	// Message is a human-readable description of the problem.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation problem found in a
// configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the entire configuration, collecting every problem.
// It returns nil when the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	if len(cfg.Providers) == 0 {
		errs = append(errs, FieldError{"providers", "at least one provider is required"})
	}
	for name, p := range cfg.Providers {
		errs = append(errs, validateProvider(name, p)...)
	}

	if cfg.Failover.MaxKeyRotations < 0 {
		errs = append(errs, FieldError{"failover.max_key_rotations", "must not be negative"})
	}

	if cfg.Ranking.EMAAlpha <= 0 || cfg.Ranking.EMAAlpha > 1 {
		errs = append(errs, FieldError{"ranking.ema_alpha", "must be in (0, 1]"})
	}
	if cfg.Ranking.MinRequestsThreshold < 0 {
		errs = append(errs, FieldError{"ranking.min_requests_threshold", "must not be negative"})
	}
	if cfg.Ranking.DefaultScore < 0 || cfg.Ranking.DefaultScore > 1 {
		errs = append(errs, FieldError{"ranking.default_score", "must be in [0, 1]"})
	}

	if cfg.Costs.ProfilePath == "" {
		errs = append(errs, FieldError{"costs.profile_path", "must not be empty"})
	}
	if cfg.Costs.DebounceInterval < 0 {
		errs = append(errs, FieldError{"costs.debounce_interval", "must not be negative"})
	}

	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Learning.SnapshotPath == "" {
		errs = append(errs, FieldError{"learning.snapshot_path", "must not be empty"})
	}
	if cfg.Learning.PageSize <= 0 {
		errs = append(errs, FieldError{"learning.page_size", "must be positive"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateProvider(name string, p ProviderConfig) []FieldError {
	var errs []FieldError
	prefix := "providers." + name

	if len(p.APIKeys) == 0 {
		errs = append(errs, FieldError{prefix + ".api_keys", "at least one API key is required"})
	}
	if len(p.Models) == 0 {
		errs = append(errs, FieldError{prefix + ".models", "at least one model is required"})
	}
	if p.Resources.Cooldown <= 0 {
		errs = append(errs, FieldError{prefix + ".resources.cooldown", "must be positive"})
	}
	if p.Resources.Penalty <= 0 || p.Resources.Penalty >= 1 {
		errs = append(errs, FieldError{prefix + ".resources.penalty", "must be in (0, 1)"})
	}
	if p.Resources.HealingInterval <= 0 {
		errs = append(errs, FieldError{prefix + ".resources.healing_interval", "must be positive"})
	}
	if p.Resources.HealingIncrement <= 0 || p.Resources.HealingIncrement > 1 {
		errs = append(errs, FieldError{prefix + ".resources.healing_increment", "must be in (0, 1]"})
	}
	if p.Breaker.FailureThreshold <= 0 {
		errs = append(errs, FieldError{prefix + ".breaker.failure_threshold", "must be positive"})
	}
	if p.Breaker.ResetTimeout <= 0 {
		errs = append(errs, FieldError{prefix + ".breaker.reset_timeout", "must be positive"})
	}
	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	if t.Bus.Workers <= 0 {
		errs = append(errs, FieldError{"telemetry.bus.workers", "must be positive"})
	}
	if t.Bus.QueueSize <= 0 {
		errs = append(errs, FieldError{"telemetry.bus.queue_size", "must be positive"})
	}
	if t.Store.Path == "" {
		errs = append(errs, FieldError{"telemetry.store.path", "must not be empty"})
	}
	if t.Store.QueueSize <= 0 {
		errs = append(errs, FieldError{"telemetry.store.queue_size", "must be positive"})
	}
	if t.Store.BatchSize <= 0 {
		errs = append(errs, FieldError{"telemetry.store.batch_size", "must be positive"})
	}
	if t.Store.BatchSize > t.Store.QueueSize {
		errs = append(errs, FieldError{"telemetry.store.batch_size", "must not exceed queue_size"})
	}
	if t.Store.FlushInterval <= 0 {
		errs = append(errs, FieldError{"telemetry.store.flush_interval", "must be positive"})
	}
	if t.Store.MaxRetries < 0 {
		errs = append(errs, FieldError{"telemetry.store.max_retries", "must not be negative"})
	}
	if t.Retention.Enabled {
		if t.Retention.MaxAge <= 0 {
			errs = append(errs, FieldError{"telemetry.retention.max_age", "must be positive"})
		}
		if _, err := cron.ParseStandard(t.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{"telemetry.retention.schedule",
				fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	return errs
}
