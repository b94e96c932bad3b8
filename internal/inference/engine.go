// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package inference runs validated records through the task's classifier
// and guarantees an answer. Predict never returns an error to its caller:
// a missing model or a failed model call degrades to the task's documented
// fallback label, with the cause recorded on the outcome.
package inference

import (
	"strings"

	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/metrics"
	"github.com/sushimsaini/hospital-management/internal/model"
)

// Fallback causes reported on degraded outcomes.
const (
	CauseModelUnavailable = "model_unavailable"
	CauseInferenceError   = "inference_error"
)

// Outcome kinds as they appear in responses and audit records.
const (
	KindModel    = "model"
	KindFallback = "fallback"
)

// ClassifierSource resolves the currently usable classifier for a task.
// The model registry implements it.
type ClassifierSource interface {
	Classifier(task string) (model.Classifier, bool)
}

// Outcome is the engine's answer for one record. Label is always set.
// Probabilities is either a full normalized distribution or nil; fallback
// outcomes and probability-less classifiers both leave it nil.
type Outcome struct {
	Task          string
	Label         string
	Probabilities map[string]float64
	Fallback      bool
	FallbackCause string
	ModelVersion  string
}

// fallbackLabels are the conservative safe answers per task. A risk caller
// sees the lowest acuity, a claim caller sees the undecided status; neither
// implies the system observed evidence for the label.
var fallbackLabels = map[string]string{
	config.TaskRisk:  "Low",
	config.TaskClaim: "Pending",
}

// canonicalLabels normalizes classifier output to the published label
// vocabulary. Artifacts exported from older pipelines emit lowercase names
// or bare class indices.
var canonicalLabels = map[string]map[string]string{
	config.TaskRisk: {
		"low": "Low", "0": "Low",
		"medium": "Medium", "1": "Medium",
		"high": "High", "2": "High",
	},
	config.TaskClaim: {
		"paid": "Paid", "0": "Paid",
		"pending": "Pending", "1": "Pending",
		"rejected": "Rejected", "2": "Rejected",
	},
}

// Engine serves predictions for every configured task.
type Engine struct {
	source   ClassifierSource
	versions map[string]string
}

// New creates an engine over a classifier source. Versions are the
// operator-configured model version strings, reported on every outcome so
// audit records pin the deployment that answered.
func New(source ClassifierSource, cfg *config.Config) *Engine {
	return &Engine{
		source: source,
		versions: map[string]string{
			config.TaskRisk:  cfg.Models.RiskVersion,
			config.TaskClaim: cfg.Models.ClaimVersion,
		},
	}
}

// Predict classifies one validated record. The record must have passed the
// gate; the engine does not re-validate.
func (e *Engine) Predict(task string, record map[string]any) Outcome {
	version := e.versions[task]

	classifier, ok := e.source.Classifier(task)
	if !ok {
		return e.fallback(task, version, CauseModelUnavailable)
	}

	pred, err := classifier.Predict(record)
	if err != nil {
		metrics.InferenceErrors.WithLabelValues(task).Inc()
		logging.Error().Err(err).Str("task", task).Msg("Model invocation failed, serving fallback")
		return e.fallback(task, version, CauseInferenceError)
	}

	label := NormalizeLabel(task, pred.Label)
	metrics.RecordPrediction(task, KindModel, label)

	return Outcome{
		Task:          task,
		Label:         label,
		Probabilities: normalizeDistribution(task, pred.Probabilities),
		ModelVersion:  version,
	}
}

// fallback builds the degraded outcome for a task.
func (e *Engine) fallback(task, version, cause string) Outcome {
	label := FallbackLabel(task)
	metrics.RecordPrediction(task, KindFallback, label)

	return Outcome{
		Task:          task,
		Label:         label,
		Fallback:      true,
		FallbackCause: cause,
		ModelVersion:  version,
	}
}

// FallbackLabel returns the safe label served when a task cannot predict.
func FallbackLabel(task string) string {
	if label, ok := fallbackLabels[task]; ok {
		return label
	}
	return "Unknown"
}

// NormalizeLabel maps raw classifier output onto the published vocabulary.
// Unrecognized labels pass through unchanged.
func NormalizeLabel(task, raw string) string {
	if canonical, ok := canonicalLabels[task][strings.ToLower(raw)]; ok {
		return canonical
	}
	return raw
}

// normalizeDistribution renames distribution keys to canonical labels. A
// nil input stays nil; a distribution is never partially renamed into
// collision because canonical names are unique per task.
func normalizeDistribution(task string, probs map[string]float64) map[string]float64 {
	if probs == nil {
		return nil
	}
	out := make(map[string]float64, len(probs))
	for label, p := range probs {
		out[NormalizeLabel(task, label)] = p
	}
	return out
}
