package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	cfg := NewDefault()
	cfg.Providers["openai"] = ProviderConfig{
		APIKeys: []string{"sk-test-1"},
		Models:  []string{"gpt-4o"},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Ranking.EMAAlpha = 2.0
	cfg.Ranking.DefaultScore = -0.1
	cfg.Learning.PageSize = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error type = %T, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("collected %d errors, want 3: %v", len(verr.Errors), verr)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "no providers",
			mutate: func(c *Config) { c.Providers = nil },
			field:  "providers",
		},
		{
			name: "provider without keys",
			mutate: func(c *Config) {
				p := c.Providers["openai"]
				p.APIKeys = nil
				c.Providers["openai"] = p
			},
			field: "providers.openai.api_keys",
		},
		{
			name: "provider without models",
			mutate: func(c *Config) {
				p := c.Providers["openai"]
				p.Models = nil
				c.Providers["openai"] = p
			},
			field: "providers.openai.models",
		},
		{
			name: "penalty out of range",
			mutate: func(c *Config) {
				p := c.Providers["openai"]
				p.Resources.Penalty = 1.5
				c.Providers["openai"] = p
			},
			field: "providers.openai.resources.penalty",
		},
		{
			name:   "negative key rotations",
			mutate: func(c *Config) { c.Failover.MaxKeyRotations = -1 },
			field:  "failover.max_key_rotations",
		},
		{
			name:   "batch larger than queue",
			mutate: func(c *Config) { c.Telemetry.Store.BatchSize = c.Telemetry.Store.QueueSize + 1 },
			field:  "telemetry.store.batch_size",
		},
		{
			name: "bad retention schedule",
			mutate: func(c *Config) {
				c.Telemetry.Retention.Enabled = true
				c.Telemetry.Retention.Schedule = "not a cron expr"
			},
			field: "telemetry.retention.schedule",
		},
		{
			name:   "empty snapshot path",
			mutate: func(c *Config) { c.Learning.SnapshotPath = "" },
			field:  "learning.snapshot_path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.field)
			}
		})
	}
}

func TestApplyDefaults_FillsProviderEntries(t *testing.T) {
	cfg := NewDefault()
	cfg.Providers["openai"] = ProviderConfig{
		APIKeys: []string{"sk-test-1"},
		Models:  []string{"gpt-4o"},
	}
	ApplyDefaults(cfg)

	p := cfg.Providers["openai"]
	if p.Resources.Cooldown != DefaultResourceCooldown {
		t.Errorf("Cooldown = %v, want %v", p.Resources.Cooldown, DefaultResourceCooldown)
	}
	if p.Resources.Penalty != DefaultResourcePenalty {
		t.Errorf("Penalty = %v, want %v", p.Resources.Penalty, DefaultResourcePenalty)
	}
	if p.Breaker.FailureThreshold != DefaultBreakerFailureThreshold {
		t.Errorf("FailureThreshold = %v, want %v", p.Breaker.FailureThreshold, DefaultBreakerFailureThreshold)
	}
	if p.Breaker.ResetTimeout != DefaultBreakerResetTimeout {
		t.Errorf("ResetTimeout = %v, want %v", p.Breaker.ResetTimeout, DefaultBreakerResetTimeout)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := NewDefault()
	cfg.Providers["openai"] = ProviderConfig{
		APIKeys:   []string{"sk-test-1"},
		Models:    []string{"gpt-4o"},
		Resources: ResourceConfig{Cooldown: time.Minute},
	}
	cfg.Ranking.EMAAlpha = 0.9
	ApplyDefaults(cfg)

	if got := cfg.Providers["openai"].Resources.Cooldown; got != time.Minute {
		t.Errorf("Cooldown = %v, want explicit 1m", got)
	}
	if cfg.Ranking.EMAAlpha != 0.9 {
		t.Errorf("EMAAlpha = %v, want explicit 0.9", cfg.Ranking.EMAAlpha)
	}
}
