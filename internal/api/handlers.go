// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sushimsaini/hospital-management/internal/audit"
	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/drift"
	"github.com/sushimsaini/hospital-management/internal/gate"
	"github.com/sushimsaini/hospital-management/internal/inference"
	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/metrics"
	"github.com/sushimsaini/hospital-management/internal/models"
	"github.com/sushimsaini/hospital-management/internal/registry"
	"github.com/sushimsaini/hospital-management/internal/schema"
	"github.com/sushimsaini/hospital-management/internal/validation"
)

// Handler holds the serving dependencies. All fields are set at startup
// and safe for concurrent use.
type Handler struct {
	cfg       *config.Config
	schema    *schema.FeatureSchema
	gate      *gate.Gate
	engine    *inference.Engine
	registry  *registry.Registry
	auditor   *audit.Logger
	monitor   *drift.Monitor
	startedAt time.Time
}

// NewHandler wires the serving façade.
func NewHandler(
	cfg *config.Config,
	s *schema.FeatureSchema,
	g *gate.Gate,
	engine *inference.Engine,
	reg *registry.Registry,
	auditor *audit.Logger,
	monitor *drift.Monitor,
) *Handler {
	return &Handler{
		cfg:       cfg,
		schema:    s,
		gate:      g,
		engine:    engine,
		registry:  reg,
		auditor:   auditor,
		monitor:   monitor,
		startedAt: time.Now().UTC(),
	}
}

// Root describes the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"service":        "hospital-management prediction service",
		"schema_version": h.schema.Version(),
		"tasks":          []string{config.TaskRisk, config.TaskClaim},
		"endpoints": []string{
			"POST /api/v1/predict/{task}",
			"POST /api/v1/predict/{task}/batch",
			"GET /api/v1/health",
			"GET /api/v1/drift",
			"POST /api/v1/drift/evaluate",
			"GET /metrics",
		},
	}, time.Now())
}

// taskFromRequest resolves and checks the {task} route parameter.
func (h *Handler) taskFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	task := chi.URLParam(r, "task")
	if !h.schema.HasTask(task) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND",
			"unknown prediction task: "+task, nil)
		return "", false
	}
	return task, true
}

// PredictSingle handles POST /api/v1/predict/{task}.
func (h *Handler) PredictSingle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	task, ok := h.taskFromRequest(w, r)
	if !ok {
		return
	}

	var record map[string]interface{}
	if err := decodeBody(w, r, &record); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"request body must be a JSON object", nil)
		return
	}

	resp, violations := h.processRecord(r, task, record)
	if violations != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"record rejected by validation gate",
			map[string]interface{}{"violations": violations})
		return
	}

	respondSuccess(w, r, http.StatusOK, resp, started)
}

// PredictBatch handles POST /api/v1/predict/{task}/batch. Records are
// validated and scored independently; one bad record never blocks the rest.
func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	task, ok := h.taskFromRequest(w, r)
	if !ok {
		return
	}

	var req models.BatchPredictRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"request body must be a JSON object with a records array", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), nil)
		return
	}
	if len(req.Records) > h.cfg.API.MaxBatchSize {
		respondError(w, r, http.StatusBadRequest, "BATCH_TOO_LARGE",
			"batch exceeds maximum size",
			map[string]interface{}{
				"max_batch_size": h.cfg.API.MaxBatchSize,
				"got":            len(req.Records),
			})
		return
	}

	metrics.BatchSize.Observe(float64(len(req.Records)))

	resp := models.BatchPredictResponse{
		Total:   len(req.Records),
		Results: make([]models.BatchResult, 0, len(req.Records)),
	}
	for i, record := range req.Records {
		pred, violations := h.processRecord(r, task, record)
		result := models.BatchResult{Index: i}
		if violations != nil {
			result.Violations = violations
			resp.Rejected++
		} else {
			result.Accepted = true
			result.Prediction = pred
			resp.Accepted++
		}
		resp.Results = append(resp.Results, result)
	}

	respondSuccess(w, r, http.StatusOK, resp, started)
}

// processRecord runs one record through gate, engine, drift window and
// audit. Exactly one of the return values is non-nil.
func (h *Handler) processRecord(r *http.Request, task string, record map[string]interface{}) (*models.PredictionResponse, []models.Violation) {
	fingerprint, err := audit.Fingerprint(record)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to fingerprint input record")
	}

	result := h.gate.Check(task, record)
	if !result.Accepted {
		violations := make([]models.Violation, len(result.Violations))
		auditViolations := make([]audit.Violation, len(result.Violations))
		rules := make([]string, len(result.Violations))
		for i, v := range result.Violations {
			violations[i] = models.Violation{Field: v.Field, Rule: string(v.Rule), Message: v.Message}
			auditViolations[i] = audit.Violation{Field: v.Field, Rule: string(v.Rule), Message: v.Message}
			rules[i] = string(v.Rule)
		}

		metrics.RecordRejection(task, rules)
		h.auditor.Log(&audit.Record{
			Task:             task,
			Kind:             audit.KindRejection,
			ModelVersion:     h.cfg.Version(task),
			SchemaVersion:    h.schema.Version(),
			InputFingerprint: fingerprint,
			Violations:       auditViolations,
			RequestID:        logging.RequestIDFromContext(r.Context()),
			CorrelationID:    logging.CorrelationIDFromContext(r.Context()),
		})
		return nil, violations
	}

	h.monitor.Observe(record)
	outcome := h.engine.Predict(task, record)

	kind := audit.KindModel
	if outcome.Fallback {
		kind = audit.KindFallback
	}
	h.auditor.Log(&audit.Record{
		Task:             task,
		Kind:             kind,
		ModelVersion:     outcome.ModelVersion,
		SchemaVersion:    h.schema.Version(),
		InputFingerprint: fingerprint,
		Label:            outcome.Label,
		Probabilities:    outcome.Probabilities,
		FallbackCause:    outcome.FallbackCause,
		RequestID:        logging.RequestIDFromContext(r.Context()),
		CorrelationID:    logging.CorrelationIDFromContext(r.Context()),
	})

	return &models.PredictionResponse{
		Task:             task,
		Label:            outcome.Label,
		Probabilities:    outcome.Probabilities,
		Fallback:         outcome.Fallback,
		FallbackCause:    outcome.FallbackCause,
		ModelVersion:     outcome.ModelVersion,
		SchemaVersion:    h.schema.Version(),
		InputFingerprint: fingerprint,
	}, nil
}

// Health handles GET /api/v1/health. The response is 200 regardless of
// model state; degraded tasks are visible in the body, and the service
// keeps serving fallbacks for them.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	status := models.HealthStatus{
		Status:        models.HealthOK,
		SchemaVersion: h.schema.Version(),
		AuditEnabled:  h.auditor.Enabled(),
		DriftEnabled:  h.monitor.Enabled(),
		StartedAt:     h.startedAt,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	for _, slot := range h.registry.Snapshot() {
		status.Models = append(status.Models, models.ModelHealth{
			Task:    slot.Task,
			Version: slot.Version,
			Loaded:  slot.Usable(),
			State:   string(slot.State),
			Reason:  slot.Reason,
		})
		if !slot.Usable() {
			status.Status = models.HealthDegraded
		}
	}

	respondSuccess(w, r, http.StatusOK, status, started)
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready. Readiness requires the
// schema and the initial registry load; it does not require usable models,
// because degraded serving is still serving.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if len(h.registry.Snapshot()) == 0 {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_READY",
			"model registry has not completed initial load", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "ready"}, time.Now())
}

// Drift handles GET /api/v1/drift, returning the most recent evaluation.
func (h *Handler) Drift(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.LastReport()
	if report == nil {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND",
			"no drift evaluation has run yet", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, report, time.Now())
}

// DriftEvaluate handles POST /api/v1/drift/evaluate, forcing an immediate
// evaluation cycle outside the cron schedule.
func (h *Handler) DriftEvaluate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	report := h.monitor.Evaluate()
	respondSuccess(w, r, http.StatusOK, report, started)
}

// Reload handles POST /api/v1/admin/reload: re-reads every model artifact
// from disk and swaps the registry atomically. The drift window is reset
// because observations accumulated under the old artifacts are not
// comparable.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	slots := h.registry.Reload()
	h.monitor.ResetWindow()

	resp := models.ReloadResponse{ReloadedAt: time.Now().UTC(), WindowReset: true}
	allUsable := true
	for _, slot := range slots {
		metrics.SetModelLoaded(slot.Task, slot.Usable())
		if !slot.Usable() {
			allUsable = false
		}
		resp.Models = append(resp.Models, models.ModelHealth{
			Task:    slot.Task,
			Version: slot.Version,
			Loaded:  slot.Usable(),
			State:   string(slot.State),
			Reason:  slot.Reason,
		})
	}
	if allUsable {
		metrics.ModelReloads.WithLabelValues("full").Inc()
	} else {
		metrics.ModelReloads.WithLabelValues("degraded").Inc()
	}

	logging.Ctx(r.Context()).Info().Bool("all_usable", allUsable).Msg("Model registry reloaded")
	respondSuccess(w, r, http.StatusOK, resp, started)
}
