// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gowebpki/jcs"
)

// Kind classifies what kind of outcome a record documents.
type Kind string

const (
	// KindModel is a real model prediction.
	KindModel Kind = "model"

	// KindFallback is a degraded-path response with a fallback label.
	KindFallback Kind = "fallback"

	// KindRejection is a record the validation gate refused.
	KindRejection Kind = "rejection"
)

// Violation mirrors one gate violation in the audit trail.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Record is one immutable audit entry. Every prediction request produces
// exactly one record per input, whatever its outcome.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Task      string    `json:"task"`
	Kind      Kind      `json:"kind"`

	// ModelVersion and SchemaVersion pin the artifacts that produced the
	// outcome, so any historical row can be traced to an exact deployment.
	ModelVersion  string `json:"model_version"`
	SchemaVersion string `json:"schema_version"`

	// InputFingerprint is a short content hash of the input record. It
	// identifies the input without storing identifiable raw values.
	InputFingerprint string `json:"input_fingerprint"`

	Label         string             `json:"label,omitempty"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	FallbackCause string             `json:"fallback_cause,omitempty"`
	Violations    []Violation        `json:"violations,omitempty"`

	RequestID     string `json:"request_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// fingerprintLength is the number of hex characters kept from the digest.
const fingerprintLength = 16

// Fingerprint computes a stable short hash of an input record: the SHA-256
// of its canonical JSON form (RFC 8785), truncated to 16 hex characters.
// Key order and number formatting differences between clients do not change
// the fingerprint.
func Fingerprint(record map[string]any) (string, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:fingerprintLength], nil
}
