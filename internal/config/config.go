// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package config provides layered configuration for the prediction service
// using Koanf v2: built-in defaults, an optional YAML file, and environment
// variables (highest priority). All settings are resolved once at startup and
// re-resolved only on an explicit reload trigger.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Task names for the two predictive models served by this process.
const (
	TaskRisk  = "risk"
	TaskClaim = "claim"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Models     ModelsConfig     `koanf:"models"`
	Artifacts  ArtifactsConfig  `koanf:"artifacts"`
	Audit      AuditConfig      `koanf:"audit"`
	Drift      DriftConfig      `koanf:"drift"`
	Validation ValidationConfig `koanf:"validation"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// ModelsConfig holds per-task artifact locations and version strings.
// Versions identify the artifact in audit records and health output; they
// are operator-supplied, not read from the artifact itself.
type ModelsConfig struct {
	Dir           string `koanf:"dir"`
	RiskFilename  string `koanf:"risk_filename"`
	ClaimFilename string `koanf:"claim_filename"`
	RiskVersion   string `koanf:"risk_version"`
	ClaimVersion  string `koanf:"claim_version"`
}

// RiskPath returns the resolved path of the risk model artifact.
func (m *ModelsConfig) RiskPath() string {
	return m.Dir + "/" + m.RiskFilename
}

// ClaimPath returns the resolved path of the claim model artifact.
func (m *ModelsConfig) ClaimPath() string {
	return m.Dir + "/" + m.ClaimFilename
}

// ArtifactsConfig holds non-model flat-file artifact locations.
type ArtifactsConfig struct {
	Dir              string `koanf:"dir"`
	SchemaFilename   string `koanf:"schema_filename"`
	BaselineFilename string `koanf:"baseline_filename"`
}

// SchemaPath returns the resolved path of the feature schema file.
func (a *ArtifactsConfig) SchemaPath() string {
	return a.Dir + "/" + a.SchemaFilename
}

// BaselinePath returns the resolved path of the drift reference baseline.
func (a *ArtifactsConfig) BaselinePath() string {
	return a.Dir + "/" + a.BaselineFilename
}

// AuditConfig holds audit stream settings.
type AuditConfig struct {
	// Enabled toggles the entire audit stream (LOG_PREDICTIONS).
	Enabled bool `koanf:"enabled"`

	// Path is the JSONL audit log file.
	Path string `koanf:"path"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `koanf:"buffer_size"`

	// LogToStdout mirrors audit records to the service log.
	LogToStdout bool `koanf:"log_to_stdout"`
}

// DriftConfig holds drift monitor settings.
type DriftConfig struct {
	Enabled bool `koanf:"enabled"`

	// Significance is the p-value threshold below which a feature is in Alert.
	Significance float64 `koanf:"significance"`

	// WindowSize bounds the most-recent-N sample of accepted inputs.
	WindowSize int `koanf:"window_size"`

	// MinSamples is the minimum current-window size before a test is run.
	MinSamples int `koanf:"min_samples"`

	// Schedule is a cron expression for periodic evaluation cycles.
	Schedule string `koanf:"schedule"`

	// Features are the monitored numeric feature names.
	Features []string `koanf:"features"`

	// CriticalFeature escalates after EscalationStreak consecutive Alerts.
	CriticalFeature  string `koanf:"critical_feature"`
	EscalationStreak int    `koanf:"escalation_streak"`
}

// ValidationConfig holds validation gate settings.
type ValidationConfig struct {
	// CategoricalCaseInsensitive relaxes category matching to be
	// case-insensitive. Default is exact match.
	CategoricalCaseInsensitive bool `koanf:"categorical_case_insensitive"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	MaxBatchSize      int           `koanf:"max_batch_size"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds service log settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validation errors.
var (
	ErrInvalidPort         = errors.New("server port must be between 1 and 65535")
	ErrInvalidSignificance = errors.New("drift significance must be in (0, 1)")
	ErrInvalidWindow       = errors.New("drift window size must be positive")
	ErrInvalidBatchSize    = errors.New("api max batch size must be between 1 and 1000")
	ErrMissingAuditPath    = errors.New("audit path is required when audit is enabled")
	ErrInvalidStreak       = errors.New("drift escalation streak must be at least 1")
)

// Validate checks the configuration for structural errors. It is called by
// Load; a failure here prevents startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, c.Server.Port)
	}
	if c.API.MaxBatchSize < 1 || c.API.MaxBatchSize > 1000 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.API.MaxBatchSize)
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return ErrMissingAuditPath
	}
	if c.Drift.Enabled {
		if c.Drift.Significance <= 0 || c.Drift.Significance >= 1 {
			return fmt.Errorf("%w: got %g", ErrInvalidSignificance, c.Drift.Significance)
		}
		if c.Drift.WindowSize < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidWindow, c.Drift.WindowSize)
		}
		if c.Drift.EscalationStreak < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidStreak, c.Drift.EscalationStreak)
		}
	}
	return nil
}

// Version reports the configured version string for a task, or "unknown"
// for an unrecognized task name.
func (c *Config) Version(task string) string {
	switch task {
	case TaskRisk:
		return c.Models.RiskVersion
	case TaskClaim:
		return c.Models.ClaimVersion
	default:
		return "unknown"
	}
}
