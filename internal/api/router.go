// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package api provides the HTTP serving façade: Chi routing, middleware,
// and the prediction, health, drift and admin handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sushimsaini/hospital-management/internal/config"
)

// Router assembles the HTTP surface.
type Router struct {
	handler    *Handler
	middleware *ChiMiddleware
}

// NewRouter creates a router over the wired handler.
func NewRouter(handler *Handler, cfg config.APIConfig) *Router {
	return &Router{
		handler:    handler,
		middleware: NewChiMiddleware(cfg),
	}
}

// Setup builds the full route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Get("/", router.handler.Root)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.middleware.RateLimitHealth())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics())

		r.Post("/predict/{task}", router.handler.PredictSingle)
		r.Post("/predict/{task}/batch", router.handler.PredictBatch)

		r.Get("/drift", router.handler.Drift)
		r.Post("/drift/evaluate", router.handler.DriftEvaluate)

		r.Post("/admin/reload", router.handler.Reload)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}
