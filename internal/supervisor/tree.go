// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package supervisor builds the suture supervision tree. The tree has two
// layers: the API layer (HTTP server) and the monitoring layer (drift
// scheduler), so a crashing monitor restarts without touching the serving
// path.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor restart and shutdown parameters.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig matches suture's built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the two-layer supervision hierarchy.
type Tree struct {
	root       *suture.Supervisor
	api        *suture.Supervisor
	monitoring *suture.Supervisor
}

// NewTree builds the tree. Supervisor events are logged through the given
// slog logger via sutureslog.
func NewTree(logger *slog.Logger, config TreeConfig) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}
	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("hospital-management", rootSpec)
	api := suture.New("api-layer", childSpec)
	monitoring := suture.New("monitoring-layer", childSpec)
	root.Add(api)
	root.Add(monitoring)

	return &Tree{root: root, api: api, monitoring: monitoring}
}

// AddAPIService adds a service to the API layer.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// AddMonitoringService adds a service to the monitoring layer.
func (t *Tree) AddMonitoringService(svc suture.Service) suture.ServiceToken {
	return t.monitoring.Add(svc)
}

// Serve runs the tree until the context is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine and returns its exit channel.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}
