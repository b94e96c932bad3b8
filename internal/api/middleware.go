// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/metrics"
)

// ChiMiddleware provides Chi-compatible middleware factories built from
// service configuration.
type ChiMiddleware struct {
	cfg  config.APIConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware builds the middleware factory.
func NewChiMiddleware(cfg config.APIConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	})

	return &ChiMiddleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the CORS middleware. Applied globally so OPTIONS preflight
// requests are handled on every route.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns an IP-keyed rate limiter using go-chi/httprate.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		m.cfg.RateLimitReqs,
		m.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
		}),
	)
}

// RateLimitHealth returns a permissive limiter for monitoring endpoints.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(1000, time.Minute)
}

// RequestIDWithLogging adds an X-Request-ID header and threads request and
// correlation IDs through the logging context.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)

			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// PrometheusMetrics records request counts and latency per route pattern.
func PrometheusMetrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			endpoint := chi.RouteContext(r.Context()).RoutePattern()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(rec.status), time.Since(started))
		})
	}
}
