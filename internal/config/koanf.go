// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/hospital-prediction/config.yaml",
	"/etc/hospital-prediction/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are applied
// first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Models: ModelsConfig{
			Dir:           "/data/models",
			RiskFilename:  "visit_risk_model.json",
			ClaimFilename: "claim_outcome_model.json",
			RiskVersion:   "1.0.0",
			ClaimVersion:  "1.0.0",
		},
		Artifacts: ArtifactsConfig{
			Dir:              "/data/artifacts",
			SchemaFilename:   "feature_schema.json",
			BaselineFilename: "drift_baseline.json",
		},
		Audit: AuditConfig{
			Enabled:     true,
			Path:        "/data/audit/predictions.jsonl",
			BufferSize:  1000,
			LogToStdout: false,
		},
		Drift: DriftConfig{
			Enabled:      true,
			Significance: 0.05,
			WindowSize:   500,
			MinSamples:   30,
			Schedule:     "@every 1h",
			Features: []string{
				"billed_amount",
				"length_of_stay_hours",
				"age",
				"days_since_registration",
			},
			CriticalFeature:  "billed_amount",
			EscalationStreak: 7,
		},
		Validation: ValidationConfig{
			CategoricalCaseInsensitive: false, // exact match unless configured otherwise
		},
		API: APIConfig{
			MaxBatchSize:      100,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration with layered sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// The returned config has passed Validate; a non-nil error here prevents
// the service from starting.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"api.cors_origins",
	"drift.features",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields. Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// The legacy names used by the original deployment are kept so existing
// environments continue to work unchanged.
//
// Examples:
//   - MODELS_DIR -> models.dir
//   - RISK_MODEL_FILENAME -> models.risk_filename
//   - LOG_PREDICTIONS -> audit.enabled
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Model artifact resolution (legacy names from the original deployment)
		"models_dir":              "models.dir",
		"risk_model_filename":     "models.risk_filename",
		"claim_model_filename":    "models.claim_filename",
		"risk_model_version":      "models.risk_version",
		"claim_model_version":     "models.claim_version",
		"artifacts_dir":           "artifacts.dir",
		"feature_schema_filename": "artifacts.schema_filename",
		"drift_baseline_filename": "artifacts.baseline_filename",

		// Audit stream
		"log_predictions": "audit.enabled",
		"audit_path":      "audit.path",
		"audit_to_stdout": "audit.log_to_stdout",
		"audit_buffer":    "audit.buffer_size",

		// Server
		"http_host":   "server.host",
		"http_port":   "server.port",
		"environment": "server.environment",

		// Drift monitor
		"drift_enabled":           "drift.enabled",
		"drift_significance":      "drift.significance",
		"drift_window_size":       "drift.window_size",
		"drift_min_samples":       "drift.min_samples",
		"drift_schedule":          "drift.schedule",
		"drift_features":          "drift.features",
		"drift_critical_feature":  "drift.critical_feature",
		"drift_escalation_streak": "drift.escalation_streak",

		// Validation gate
		"categorical_case_insensitive": "validation.categorical_case_insensitive",

		// API
		"max_batch_size":      "api.max_batch_size",
		"cors_origins":        "api.cors_origins",
		"rate_limit_reqs":     "api.rate_limit_reqs",
		"rate_limit_window":   "api.rate_limit_window",
		"rate_limit_disabled": "api.rate_limit_disabled",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped variables are ignored rather than guessed into the tree.
	return ""
}
