// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package main is the entry point for the hospital prediction server.
//
// The server exposes two predictive models over HTTP - patient risk level
// and insurance claim status - behind a schema validation gate, with an
// append-only audit trail and a statistical drift monitor over accepted
// inputs.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Feature Schema: Load the frozen feature contract (fatal on failure)
//  3. Drift Baseline: Load reference samples (degrades to an empty baseline)
//  4. Model Registry: Load both model artifacts (per-slot degradation)
//  5. Audit Logger: Open the JSONL audit stream (if enabled)
//  6. HTTP Server: REST API with prediction, health, drift and admin endpoints
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (legacy deployment names, e.g. HTTP_PORT, MODELS_DIR)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Degraded Mode
//
// A missing or corrupt model artifact never prevents startup. The affected
// task serves deterministic fallback predictions and /api/v1/health reports
// the slot state. Only a missing feature schema is fatal: without the
// contract no input can be admitted.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains and closes the audit stream
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sushimsaini/hospital-management/internal/api"
	"github.com/sushimsaini/hospital-management/internal/audit"
	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/drift"
	"github.com/sushimsaini/hospital-management/internal/gate"
	"github.com/sushimsaini/hospital-management/internal/inference"
	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/metrics"
	"github.com/sushimsaini/hospital-management/internal/registry"
	"github.com/sushimsaini/hospital-management/internal/schema"
	"github.com/sushimsaini/hospital-management/internal/supervisor"
	"github.com/sushimsaini/hospital-management/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("models_dir", cfg.Models.Dir).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Bool("drift_enabled", cfg.Drift.Enabled).
		Msg("Starting prediction server")

	// Feature schema is the admission contract: without it no input can be
	// validated, so a load failure here is the one fatal artifact error.
	featureSchema, err := schema.Load(cfg.Artifacts.SchemaPath())
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Artifacts.SchemaPath()).Msg("Failed to load feature schema")
	}
	logging.Info().
		Str("schema_version", featureSchema.Version()).
		Msg("Feature schema loaded")

	// Drift baseline degrades: without reference samples every evaluation
	// reports insufficient_data, but serving continues.
	baseline, err := drift.LoadBaseline(cfg.Artifacts.BaselinePath())
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.Artifacts.BaselinePath()).
			Msg("Failed to load drift baseline, drift tests will report insufficient data")
		baseline = drift.EmptyBaseline()
	} else {
		logging.Info().Str("baseline_version", baseline.Version()).Msg("Drift baseline loaded")
	}

	// Model registry: each slot degrades independently.
	reg := registry.New(cfg.Models)
	for _, slot := range reg.Reload() {
		metrics.SetModelLoaded(slot.Task, slot.Usable())
	}

	// Audit stream (JSONL, async buffered writer).
	var auditor *audit.Logger
	if cfg.Audit.Enabled {
		store, err := audit.NewFileStore(cfg.Audit.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Audit.Path).Msg("Failed to open audit log")
		}
		auditor = audit.NewLogger(store, cfg.Audit)
		defer func() {
			if err := auditor.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing audit logger")
			}
		}()
		logging.Info().Str("path", cfg.Audit.Path).Msg("Audit logging enabled")
	} else {
		auditor = audit.NewLogger(nil, cfg.Audit)
		logging.Info().Msg("Audit logging disabled")
	}

	monitor := drift.NewMonitor(cfg.Drift, baseline)
	engine := inference.New(reg, cfg)
	admissionGate := gate.New(featureSchema, gate.Config{
		CategoricalCaseInsensitive: cfg.Validation.CategoricalCaseInsensitive,
	})

	handler := api.NewHandler(cfg, featureSchema, admissionGate, engine, reg, auditor, monitor)
	router := api.NewRouter(handler, cfg.API)

	if cfg.API.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create structured logger for supervisor using our slog adapter
	slogLogger := logging.NewSlogLogger()
	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Scheduled drift evaluation runs under the monitoring layer.
	if monitor.Enabled() && cfg.Drift.Schedule != "" {
		scheduler, err := drift.NewScheduler(monitor, cfg.Drift.Schedule)
		if err != nil {
			logging.Fatal().Err(err).Str("schedule", cfg.Drift.Schedule).Msg("Invalid drift schedule")
		}
		tree.AddMonitoringService(scheduler)
		logging.Info().Str("schedule", cfg.Drift.Schedule).Msg("Drift scheduler added")
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
