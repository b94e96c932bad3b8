// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushimsaini/hospital-management/internal/audit"
	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/drift"
	"github.com/sushimsaini/hospital-management/internal/gate"
	"github.com/sushimsaini/hospital-management/internal/inference"
	"github.com/sushimsaini/hospital-management/internal/models"
	"github.com/sushimsaini/hospital-management/internal/registry"
	"github.com/sushimsaini/hospital-management/internal/schema"
)

const testSchemaDoc = `{
  "version": "1.0.0",
  "fields": {
    "age": {"type": "numeric", "required": true, "min": 0, "max": 120},
    "billed_amount": {"type": "numeric", "required": true, "min": 0.01},
    "length_of_stay_hours": {"type": "numeric", "min": 0},
    "department": {"type": "string", "required": true},
    "visit_type": {"type": "categorical", "required": true, "allowed": ["Inpatient", "Outpatient", "Emergency"]}
  },
  "tasks": {
    "risk": {"features": ["department", "visit_type", "length_of_stay_hours", "age"]},
    "claim": {"features": ["department", "billed_amount", "age"]}
  }
}`

const riskModelDoc = `{
  "format_version": 1,
  "task": "risk",
  "type": "linear",
  "labels": ["Low", "Medium", "High"],
  "features": [{"name": "age", "kind": "numeric", "mean": 50, "scale": 20}],
  "coefficients": [[-2.0], [0.0], [2.0]],
  "intercepts": [0, 0, 0]
}`

const claimModelDoc = `{
  "format_version": 1,
  "task": "claim",
  "type": "tree",
  "labels": ["Paid", "Pending", "Rejected"],
  "features": [{"name": "billed_amount", "kind": "numeric", "mean": 1000, "scale": 500}],
  "nodes": [
    {"feature": 0, "threshold": 0.0, "left": 1, "right": 2},
    {"feature": -1, "label": 0},
    {"feature": -1, "label": 2}
  ]
}`

// envelope mirrors the response wrapper for decoding in assertions.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

type testEnv struct {
	server  *httptest.Server
	store   *audit.MemoryStore
	auditor *audit.Logger
	monitor *drift.Monitor
	dir     string
}

// newTestEnv builds the full serving stack. Artifact names listed in
// missing are not written, so their slots degrade.
func newTestEnv(t *testing.T, missing ...string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	artifacts := map[string]string{
		"visit_risk_model.json":    riskModelDoc,
		"claim_outcome_model.json": claimModelDoc,
	}
	for _, name := range missing {
		delete(artifacts, name)
	}
	for name, content := range artifacts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	cfg := &config.Config{
		Models: config.ModelsConfig{
			Dir:           dir,
			RiskFilename:  "visit_risk_model.json",
			ClaimFilename: "claim_outcome_model.json",
			RiskVersion:   "1.2.0",
			ClaimVersion:  "1.1.0",
		},
		Audit: config.AuditConfig{Enabled: true, BufferSize: 100},
		Drift: config.DriftConfig{
			Enabled:          true,
			Significance:     0.05,
			WindowSize:       100,
			MinSamples:       10,
			Features:         []string{"billed_amount", "age"},
			CriticalFeature:  "billed_amount",
			EscalationStreak: 7,
		},
		API: config.APIConfig{
			MaxBatchSize:      5,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     1000,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
		},
	}

	s, err := schema.Parse([]byte(testSchemaDoc))
	require.NoError(t, err)

	reg := registry.New(cfg.Models)
	reg.Reload()

	store := audit.NewMemoryStore()
	auditor := audit.NewLogger(store, cfg.Audit)
	monitor := drift.NewMonitor(cfg.Drift, drift.EmptyBaseline())

	handler := NewHandler(cfg, s, gate.New(s, gate.Config{}), inference.New(reg, cfg), reg, auditor, monitor)
	server := httptest.NewServer(NewRouter(handler, cfg.API).Setup())
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: store, auditor: auditor, monitor: monitor, dir: dir}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, envelope) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func validRiskBody() map[string]interface{} {
	return map[string]interface{}{
		"department":           "Cardiology",
		"visit_type":           "Inpatient",
		"length_of_stay_hours": 48,
		"age":                  80,
	}
}

func TestPredictSingle_ModelPrediction(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/api/v1/predict/risk", validRiskBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", body.Status)

	var pred models.PredictionResponse
	require.NoError(t, json.Unmarshal(body.Data, &pred))

	assert.Equal(t, "risk", pred.Task)
	assert.Equal(t, "High", pred.Label)
	assert.False(t, pred.Fallback)
	assert.Equal(t, "1.2.0", pred.ModelVersion)
	assert.Equal(t, "1.0.0", pred.SchemaVersion)
	assert.Len(t, pred.InputFingerprint, 16)

	var sum float64
	require.Len(t, pred.Probabilities, 3)
	for _, p := range pred.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPredictSingle_LabelOnlyModel(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/api/v1/predict/claim", map[string]interface{}{
		"department":    "Oncology",
		"billed_amount": 2500,
		"age":           60,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pred models.PredictionResponse
	require.NoError(t, json.Unmarshal(body.Data, &pred))
	assert.Equal(t, "Rejected", pred.Label)
	assert.False(t, pred.Fallback)
	assert.Nil(t, pred.Probabilities, "tree model must not emit a partial distribution")
}

func TestPredictSingle_GateRejection(t *testing.T) {
	env := newTestEnv(t)

	record := validRiskBody()
	record["age"] = -5

	resp, body := env.post(t, "/api/v1/predict/risk", record)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, "violations")

	// Rejection is audited, not predicted.
	require.NoError(t, env.auditor.Close())
	records := env.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, audit.KindRejection, records[0].Kind)
	require.Len(t, records[0].Violations, 1)
	assert.Equal(t, "age", records[0].Violations[0].Field)
}

func TestPredictSingle_FallbackWhenModelMissing(t *testing.T) {
	env := newTestEnv(t, "visit_risk_model.json")

	resp, body := env.post(t, "/api/v1/predict/risk", validRiskBody())
	require.Equal(t, http.StatusOK, resp.StatusCode, "fallback is a successful response")

	var pred models.PredictionResponse
	require.NoError(t, json.Unmarshal(body.Data, &pred))
	assert.Equal(t, "Low", pred.Label)
	assert.True(t, pred.Fallback)
	assert.Equal(t, inference.CauseModelUnavailable, pred.FallbackCause)
	assert.Nil(t, pred.Probabilities)

	require.NoError(t, env.auditor.Close())
	records := env.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, audit.KindFallback, records[0].Kind)
	assert.Equal(t, inference.CauseModelUnavailable, records[0].FallbackCause)
}

func TestPredictSingle_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/v1/predict/risk", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictSingle_UnknownTask(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/api/v1/predict/triage", validRiskBody())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestPredictBatch_MixedOutcomes(t *testing.T) {
	env := newTestEnv(t)

	bad := validRiskBody()
	bad["visit_type"] = "Telehealth"

	resp, body := env.post(t, "/api/v1/predict/risk/batch", models.BatchPredictRequest{
		Records: []map[string]interface{}{validRiskBody(), bad, validRiskBody()},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var batch models.BatchPredictResponse
	require.NoError(t, json.Unmarshal(body.Data, &batch))

	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 2, batch.Accepted)
	assert.Equal(t, 1, batch.Rejected)
	require.Len(t, batch.Results, 3)

	assert.True(t, batch.Results[0].Accepted)
	require.NotNil(t, batch.Results[0].Prediction)

	assert.False(t, batch.Results[1].Accepted)
	assert.Nil(t, batch.Results[1].Prediction)
	require.NotEmpty(t, batch.Results[1].Violations)
	assert.Equal(t, "visit_type", batch.Results[1].Violations[0].Field)

	assert.True(t, batch.Results[2].Accepted, "a rejected record must not block its neighbors")

	// One audit record per input, whatever the outcome.
	require.NoError(t, env.auditor.Close())
	assert.Equal(t, 3, env.store.Len())
}

func TestPredictBatch_TooLarge(t *testing.T) {
	env := newTestEnv(t)

	records := make([]map[string]interface{}, 6)
	for i := range records {
		records[i] = validRiskBody()
	}

	resp, body := env.post(t, "/api/v1/predict/risk/batch", models.BatchPredictRequest{Records: records})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BATCH_TOO_LARGE", body.Error.Code)
}

func TestPredictBatch_EmptyRecords(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/api/v1/predict/risk/batch", map[string]interface{}{
		"records": []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestHealth_AllLoaded(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/v1/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health models.HealthStatus
	require.NoError(t, json.Unmarshal(body.Data, &health))
	assert.Equal(t, models.HealthOK, health.Status)
	require.Len(t, health.Models, 2)
	for _, m := range health.Models {
		assert.True(t, m.Loaded)
	}
}

func TestHealth_CorruptArtifactReportsUnloaded(t *testing.T) {
	// The artifact file exists but does not decode. Health must report the
	// slot as not loaded; existence is not usability.
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "claim_outcome_model.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o600))

	resp, _ := env.post(t, "/api/v1/admin/reload", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := env.get(t, "/api/v1/health")
	var health models.HealthStatus
	require.NoError(t, json.Unmarshal(body.Data, &health))
	assert.Equal(t, models.HealthDegraded, health.Status)

	for _, m := range health.Models {
		if m.Task == "claim" {
			assert.False(t, m.Loaded)
			assert.Equal(t, string(registry.StateFailed), m.State)
			assert.Equal(t, registry.ReasonDecode, m.Reason)
		}
	}
}

func TestHealth_LiveAndReady(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.get(t, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDrift_Endpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/v1/drift")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no evaluation has run yet")
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	resp, body = env.post(t, "/api/v1/drift/evaluate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report drift.Report
	require.NoError(t, json.Unmarshal(body.Data, &report))
	assert.Equal(t, "billed_amount", report.CriticalFeature)
	require.Len(t, report.Features, 2)
	for _, fr := range report.Features {
		assert.Equal(t, drift.StatusInsufficient, fr.Status, "empty baseline cannot be tested")
	}

	resp, _ = env.get(t, "/api/v1/drift")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminReload(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/api/v1/admin/reload", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reload models.ReloadResponse
	require.NoError(t, json.Unmarshal(body.Data, &reload))
	assert.True(t, reload.WindowReset)
	require.Len(t, reload.Models, 2)
	for _, m := range reload.Models {
		assert.True(t, m.Loaded)
	}
}

func TestRoot_And_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body.Status)

	resp, body = env.get(t, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-abc-123", resp.Header.Get("X-Request-ID"))

	var env2 envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env2))
	assert.Equal(t, "req-abc-123", env2.Metadata.RequestID)
}
