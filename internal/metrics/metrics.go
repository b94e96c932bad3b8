// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package metrics provides Prometheus metrics for the prediction service.
// All collectors are registered on the default registry via promauto and
// exposed at the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total predictions returned, by task and outcome kind",
		},
		[]string{"task", "kind"}, // kind: "model", "fallback"
	)

	PredictionsByLabel = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_by_label_total",
			Help: "Total predictions returned, by task and predicted label",
		},
		[]string{"task", "label"},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_rejections_total",
			Help: "Total records rejected by the validation gate",
		},
		[]string{"task"},
	)

	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_violations_total",
			Help: "Total field violations reported by the validation gate",
		},
		[]string{"task", "rule"}, // rule: "required", "type", "range", "category"
	)

	InferenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_errors_total",
			Help: "Total model invocations that failed and fell back",
		},
		[]string{"task"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_batch_size",
			Help:    "Number of records per batch prediction request",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		},
	)

	// Model Registry Metrics
	ModelLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_loaded",
			Help: "Whether the task's model artifact is loaded and usable (1) or degraded (0)",
		},
		[]string{"task"},
	)

	ModelReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_reloads_total",
			Help: "Total registry reload operations by outcome",
		},
		[]string{"outcome"}, // "full", "degraded"
	)

	// Audit Metrics
	AuditWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_records_written_total",
			Help: "Total audit records persisted to the store",
		},
	)

	AuditDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_records_dropped_total",
			Help: "Total audit records dropped because the buffer was full",
		},
	)

	AuditWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_errors_total",
			Help: "Total audit store write failures",
		},
	)

	// Drift Monitor Metrics
	DriftPValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drift_p_value",
			Help: "Latest KS test p-value per monitored feature",
		},
		[]string{"feature"},
	)

	DriftAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drift_alerts_total",
			Help: "Total drift evaluations that flagged a feature",
		},
		[]string{"feature"},
	)

	DriftEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drift_escalations_total",
			Help: "Total critical-feature escalations from sustained drift",
		},
	)

	DriftWindowSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drift_window_size",
			Help: "Current number of samples in the drift observation window",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordPrediction records one prediction outcome.
func RecordPrediction(task, kind, label string) {
	PredictionsTotal.WithLabelValues(task, kind).Inc()
	PredictionsByLabel.WithLabelValues(task, label).Inc()
}

// RecordRejection records a gate rejection with its per-rule violations.
func RecordRejection(task string, rules []string) {
	RejectionsTotal.WithLabelValues(task).Inc()
	for _, rule := range rules {
		ViolationsTotal.WithLabelValues(task, rule).Inc()
	}
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetModelLoaded updates the per-task load gauge.
func SetModelLoaded(task string, usable bool) {
	v := 0.0
	if usable {
		v = 1.0
	}
	ModelLoaded.WithLabelValues(task).Set(v)
}
