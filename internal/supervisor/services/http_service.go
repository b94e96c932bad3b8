// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package services wraps long-running components as suture services.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer matches *http.Server's lifecycle methods, so tests can mock
// the server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService bridges http.Server's blocking ListenAndServe to
// suture's context-aware Serve: the server runs in a goroutine and context
// cancellation triggers a graceful Shutdown with a bounded timeout.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps a server for supervision.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. http.ErrServerClosed is expected on
// shutdown and converted to nil.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String names the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
