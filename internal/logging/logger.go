// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package logging provides centralized zerolog-based logging for the
// prediction service.
//
// All packages log through this wrapper so that output format, level and
// field names stay consistent between the serving path, the model registry
// and the drift monitor:
//
//   - Zero-allocation structured logging
//   - JSON output for production, console output for development
//   - Context-aware logging with request/correlation ID propagation
//   - slog adapter for libraries that require *slog.Logger (suture)
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("task", "risk").Msg("model loaded")
//	logging.Ctx(ctx).Warn().Msg("falling back")
//
// Always terminate log chains with .Msg() or .Send(); a chain without a
// terminator is silently dropped by zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error, fatal.
	// Default: info
	Level string

	// Format is the output format: json or console.
	// Default: json
	Format string

	// Caller includes caller file and line number in logs.
	Caller bool

	// Timestamp enables timestamps in log output. Default: true.
	Timestamp bool

	// Output is the writer for log output. Default: os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Caller:    false,
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	log zerolog.Logger

	// mu protects concurrent reconfiguration.
	mu sync.RWMutex
)

//nolint:gochecknoinits // init ensures logging works before explicit Init() call
func init() {
	initLogger(DefaultConfig())
}

// Init initializes the global logger with the given configuration.
// Call early in main(); safe to call multiple times.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

// initLogger configures the global logger (must be called with mu held).
func initLogger(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
		}
	}

	ctx := zerolog.New(output)
	if cfg.Timestamp {
		ctx = ctx.With().Timestamp().Logger()
	}
	if cfg.Caller {
		ctx = ctx.With().Caller().Logger()
	}

	log = ctx
}

// parseLevel converts a string level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger instance.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger replaces the global logger instance. Useful for tests.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// With creates a child logger context with additional default fields.
//
//	driftLogger := logging.With().Str("component", "drift").Logger()
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

// Debug starts a new message with debug level.
func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Debug()
}

// Info starts a new message with info level.
func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Info()
}

// Warn starts a new message with warning level.
func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Warn()
}

// Error starts a new message with error level.
func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Error()
}

// Fatal starts a new message with fatal level. os.Exit(1) follows the write.
func Fatal() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Fatal()
}

// Err starts an error-level message with the error attached.
func Err(err error) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Err(err)
}

// SetLevelString updates the global log level from a string.
func SetLevelString(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// NewTestLogger creates a logger that writes to the provided writer.
// Useful in tests to capture output.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
