// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package models defines the request and response types of the HTTP API.
package models

import (
	"time"
)

// APIResponse is the standard envelope for every endpoint.
//
// Status field values:
//   - "success": Request completed, see Data
//   - "error": Request failed, see Error
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms"`
	RequestID  string    `json:"request_id,omitempty"`
}

// APIError is the structured error payload.
//
// Common codes:
//   - VALIDATION_ERROR: malformed request body or rejected record
//   - BATCH_TOO_LARGE: batch exceeds the configured maximum
//   - NOT_FOUND: unknown route or task
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: unexpected server failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
