package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saturn.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalYAML = `
providers:
  openai:
    api_keys: ["sk-test-1", "sk-test-2"]
    models: ["gpt-4o", "gpt-4o-mini"]
`

func TestLoad_MinimalFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	p, ok := cfg.Providers["openai"]
	if !ok {
		t.Fatal("expected openai provider")
	}
	if len(p.APIKeys) != 2 || len(p.Models) != 2 {
		t.Errorf("provider = %+v, want 2 keys and 2 models", p)
	}
	// Unlisted sections take their defaults.
	if cfg.Telemetry.Store.Path != DefaultStorePath {
		t.Errorf("Store.Path = %q, want default %q", cfg.Telemetry.Store.Path, DefaultStorePath)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want default true")
	}
	if p.Resources.Cooldown != DefaultResourceCooldown {
		t.Errorf("Cooldown = %v, want default %v", p.Resources.Cooldown, DefaultResourceCooldown)
	}
}

func TestLoad_ExplicitOverrides(t *testing.T) {
	path := writeConfigFile(t, `
providers:
  openai:
    api_keys: ["sk-test-1"]
    models: ["gpt-4o"]
    resources:
      cooldown: 90s
    breaker:
      failure_threshold: 2
failover:
  max_key_rotations: 3
telemetry:
  metrics:
    enabled: false
  store:
    flush_interval: 1s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Providers["openai"].Resources.Cooldown; got != 90*time.Second {
		t.Errorf("Cooldown = %v, want 90s", got)
	}
	if got := cfg.Providers["openai"].Breaker.FailureThreshold; got != 2 {
		t.Errorf("FailureThreshold = %d, want 2", got)
	}
	if cfg.Failover.MaxKeyRotations != 3 {
		t.Errorf("MaxKeyRotations = %d, want 3", cfg.Failover.MaxKeyRotations)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want explicit false")
	}
	if cfg.Telemetry.Store.FlushInterval != time.Second {
		t.Errorf("FlushInterval = %v, want 1s", cfg.Telemetry.Store.FlushInterval)
	}
}

func TestLoad_ExplicitRankingZeros(t *testing.T) {
	// Zero is a legal setting for both fields and must survive the
	// default-filling pass; absent keys still take the recommended values.
	path := writeConfigFile(t, `
providers:
  openai:
    api_keys: ["sk-test-1"]
    models: ["gpt-4o"]
ranking:
  min_requests_threshold: 0
  default_score: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ranking.MinRequestsThreshold != 0 {
		t.Errorf("MinRequestsThreshold = %d, want explicit 0", cfg.Ranking.MinRequestsThreshold)
	}
	if cfg.Ranking.DefaultScore != 0 {
		t.Errorf("DefaultScore = %g, want explicit 0", cfg.Ranking.DefaultScore)
	}
	if cfg.Ranking.EMAAlpha != DefaultRankingEMAAlpha {
		t.Errorf("EMAAlpha = %g, want default %g", cfg.Ranking.EMAAlpha, DefaultRankingEMAAlpha)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() succeeded on a missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(writeConfigFile(t, "providers: [not: valid")); err == nil {
		t.Error("Load() succeeded on malformed YAML")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
providers:
  openai:
    api_keys: []
    models: ["gpt-4o"]
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() succeeded on a provider without keys")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SATURN_STORE_PATH", "/tmp/override.db")
	t.Setenv("SATURN_FAILOVER_MAX_KEY_ROTATIONS", "7")
	t.Setenv("SATURN_METRICS_ENABLED", "false")

	cfg, err := LoadWithEnvOverrides(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides() error = %v", err)
	}
	if cfg.Telemetry.Store.Path != "/tmp/override.db" {
		t.Errorf("Store.Path = %q, want env override", cfg.Telemetry.Store.Path)
	}
	if cfg.Failover.MaxKeyRotations != 7 {
		t.Errorf("MaxKeyRotations = %d, want 7", cfg.Failover.MaxKeyRotations)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want env-disabled")
	}
}
