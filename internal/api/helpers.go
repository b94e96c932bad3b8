// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/models"
)

// maxBodyBytes caps request bodies. Prediction records are small; anything
// near this limit is malformed or hostile.
const maxBodyBytes = 1 << 20

// sanitizeLogValue strips control characters so attacker-supplied strings
// cannot forge log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a response envelope with proper headers.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	response.Metadata.Timestamp = time.Now().UTC()
	response.Metadata.RequestID = logging.RequestIDFromContext(r.Context())

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps a payload in the success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}, started time.Time) {
	respondJSON(w, r, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			DurationMS: time.Since(started).Milliseconds(),
		},
	})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	logging.Ctx(r.Context()).Warn().
		Str("code", sanitizeLogValue(code)).
		Int("status", status).
		Msg(sanitizeLogValue(message))

	respondJSON(w, r, status, &models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// decodeBody reads a JSON request body into dst. The body size is capped
// and unknown behavior is left to the caller's validation.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
