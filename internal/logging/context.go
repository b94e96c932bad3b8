// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// correlationIDKey is the context key for correlation IDs.
	correlationIDKey contextKey = "correlation_id"

	// requestIDKey is the context key for HTTP request IDs.
	requestIDKey contextKey = "request_id"
)

// GenerateCorrelationID creates a new unique correlation ID.
// Returns the first 8 characters of a UUID for readability.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger with context values (correlation_id, request_id)
// automatically added. This is the recommended way to log inside handlers
// and the inference pipeline.
//
//	logging.Ctx(ctx).Info().Msg("prediction served")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := Logger()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logger = logger.With().Str("correlation_id", correlationID).Logger()
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}

	return &logger
}
