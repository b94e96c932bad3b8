// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package drift watches the distribution of accepted inputs for divergence
// from the training baseline. Each evaluation runs a two-sample
// Kolmogorov-Smirnov test per monitored feature; a p-value below the
// configured significance flags the feature. Sustained flags on the
// critical feature escalate.
package drift

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/metrics"
)

// Status of one feature after an evaluation.
type Status string

const (
	// StatusStable means no significant divergence was detected.
	StatusStable Status = "stable"

	// StatusAlert means the KS test rejected distributional equality.
	StatusAlert Status = "alert"

	// StatusInsufficient means the window has too few samples to test.
	StatusInsufficient Status = "insufficient_data"
)

// FeatureReport is the evaluation result for one feature.
type FeatureReport struct {
	Feature       string  `json:"feature"`
	Status        Status  `json:"status"`
	Statistic     float64 `json:"statistic"`
	PValue        float64 `json:"p_value"`
	ReferenceMean float64 `json:"reference_mean"`
	CurrentMean   float64 `json:"current_mean"`
	ReferenceSize int     `json:"reference_size"`
	CurrentSize   int     `json:"current_size"`
}

// Report is one full evaluation cycle.
type Report struct {
	EvaluatedAt       time.Time       `json:"evaluated_at"`
	Features          []FeatureReport `json:"features"`
	CriticalFeature   string          `json:"critical_feature"`
	ConsecutiveAlerts int             `json:"consecutive_alerts"`
	Escalated         bool            `json:"escalated"`
}

// Monitor owns the observation window, the baseline, and the escalation
// streak. Observe is called on the serving path; Evaluate runs on the
// cron schedule and on demand.
type Monitor struct {
	cfg      config.DriftConfig
	baseline *Baseline
	window   *Window

	mu     sync.Mutex
	streak int
	last   *Report
}

// NewMonitor builds a monitor from configuration and a loaded baseline.
func NewMonitor(cfg config.DriftConfig, baseline *Baseline) *Monitor {
	return &Monitor{
		cfg:      cfg,
		baseline: baseline,
		window:   NewWindow(cfg.Features, cfg.WindowSize),
	}
}

// Enabled reports whether the monitor is active.
func (m *Monitor) Enabled() bool {
	return m.cfg.Enabled
}

// Observe feeds one accepted record into the window.
func (m *Monitor) Observe(record map[string]any) {
	if !m.cfg.Enabled {
		return
	}
	m.window.Observe(record)
	metrics.DriftWindowSize.Set(float64(m.window.Len(m.cfg.CriticalFeature)))
}

// ResetWindow discards accumulated observations.
func (m *Monitor) ResetWindow() {
	m.window.Reset()
}

// Evaluate tests every monitored feature against the baseline and updates
// the escalation streak. The streak counts consecutive evaluations in
// which the critical feature is in Alert; a Stable result resets it, an
// insufficient-data result leaves it unchanged.
func (m *Monitor) Evaluate() Report {
	report := Report{
		EvaluatedAt:     time.Now().UTC(),
		CriticalFeature: m.cfg.CriticalFeature,
		Features:        make([]FeatureReport, 0, len(m.cfg.Features)),
	}

	for _, feature := range m.cfg.Features {
		fr := m.evaluateFeature(feature)
		report.Features = append(report.Features, fr)

		switch fr.Status {
		case StatusAlert:
			metrics.DriftAlerts.WithLabelValues(feature).Inc()
			metrics.DriftPValue.WithLabelValues(feature).Set(fr.PValue)
			logging.Warn().
				Str("feature", feature).
				Float64("statistic", fr.Statistic).
				Float64("p_value", fr.PValue).
				Float64("reference_mean", fr.ReferenceMean).
				Float64("current_mean", fr.CurrentMean).
				Msg("Input drift detected")
		case StatusStable:
			metrics.DriftPValue.WithLabelValues(feature).Set(fr.PValue)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if critical := findFeature(report.Features, m.cfg.CriticalFeature); critical != nil {
		switch critical.Status {
		case StatusAlert:
			m.streak++
		case StatusStable:
			m.streak = 0
		}
	}

	report.ConsecutiveAlerts = m.streak
	report.Escalated = m.streak >= m.cfg.EscalationStreak
	if report.Escalated {
		metrics.DriftEscalations.Inc()
		logging.Error().
			Str("feature", m.cfg.CriticalFeature).
			Int("consecutive_alerts", m.streak).
			Msg("Sustained drift on critical feature, model retraining required")
	}

	m.last = &report
	return report
}

// evaluateFeature runs one KS test.
func (m *Monitor) evaluateFeature(feature string) FeatureReport {
	reference := m.baseline.Samples(feature)
	current := m.window.Snapshot(feature)

	fr := FeatureReport{
		Feature:       feature,
		ReferenceSize: len(reference),
		CurrentSize:   len(current),
	}

	if len(reference) == 0 || len(current) < m.cfg.MinSamples {
		fr.Status = StatusInsufficient
		return fr
	}

	fr.Statistic, fr.PValue = ksTest(reference, current)
	fr.ReferenceMean = stat.Mean(reference, nil)
	fr.CurrentMean = stat.Mean(current, nil)

	if fr.PValue < m.cfg.Significance {
		fr.Status = StatusAlert
	} else {
		fr.Status = StatusStable
	}
	return fr
}

// LastReport returns the most recent evaluation, or nil before the first.
func (m *Monitor) LastReport() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func findFeature(reports []FeatureReport, name string) *FeatureReport {
	for i := range reports {
		if reports[i].Feature == name {
			return &reports[i]
		}
	}
	return nil
}
