// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package models

// BatchPredictRequest carries multiple records for one task. The per-batch
// size limit is enforced against configuration in the handler; the
// validate tags only cover structure.
type BatchPredictRequest struct {
	Records []map[string]interface{} `json:"records" validate:"required,min=1"`
}

// Violation describes one failed field check on a rejected record.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// PredictionResponse is the outcome for one accepted record.
type PredictionResponse struct {
	Task  string `json:"task"`
	Label string `json:"label"`

	// Probabilities is either a full distribution over the task's label
	// set or absent entirely.
	Probabilities map[string]float64 `json:"probabilities,omitempty"`

	// Fallback marks degraded outcomes; FallbackCause says why.
	Fallback      bool   `json:"fallback"`
	FallbackCause string `json:"fallback_cause,omitempty"`

	ModelVersion     string `json:"model_version"`
	SchemaVersion    string `json:"schema_version"`
	InputFingerprint string `json:"input_fingerprint"`
}

// BatchResult is the per-record outcome inside a batch response. Exactly
// one of Prediction or Violations is set.
type BatchResult struct {
	Index      int                 `json:"index"`
	Accepted   bool                `json:"accepted"`
	Prediction *PredictionResponse `json:"prediction,omitempty"`
	Violations []Violation         `json:"violations,omitempty"`
}

// BatchPredictResponse summarizes one batch. Records are processed
// independently; a rejected record never blocks its neighbors.
type BatchPredictResponse struct {
	Total    int           `json:"total"`
	Accepted int           `json:"accepted"`
	Rejected int           `json:"rejected"`
	Results  []BatchResult `json:"results"`
}
