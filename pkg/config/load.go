package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file. Defaults are filled in before
// validation, so a minimal file listing only providers is valid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and then
// applies SATURN_* environment variable overrides, re-validating the
// result. Environment variables take precedence over the file.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SATURN_COSTS_PROFILE_PATH"); val != "" {
		cfg.Costs.ProfilePath = val
	}
	if val := os.Getenv("SATURN_STORE_PATH"); val != "" {
		cfg.Telemetry.Store.Path = val
	}
	if val := os.Getenv("SATURN_LEARNING_SNAPSHOT_PATH"); val != "" {
		cfg.Learning.SnapshotPath = val
	}
	if val := os.Getenv("SATURN_FAILOVER_MAX_KEY_ROTATIONS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Failover.MaxKeyRotations = i
		}
	}
	if val := os.Getenv("SATURN_STORE_FLUSH_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Telemetry.Store.FlushInterval = d
		}
	}
	if val := os.Getenv("SATURN_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
