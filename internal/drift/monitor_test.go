// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package drift

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushimsaini/hospital-management/internal/config"
)

func driftConfig() config.DriftConfig {
	return config.DriftConfig{
		Enabled:          true,
		Significance:     0.05,
		WindowSize:       500,
		MinSamples:       30,
		Features:         []string{"billed_amount", "age"},
		CriticalFeature:  "billed_amount",
		EscalationStreak: 7,
	}
}

// normalSamples draws deterministic values from N(mean, stddev).
func normalSamples(seed int64, n int, mean, stddev float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + stddev*rng.NormFloat64()
	}
	return out
}

func baselineWith(t *testing.T, features map[string][]float64) *Baseline {
	t.Helper()
	b := &Baseline{version: "1.0.0", features: features}
	return b
}

func feedFeature(m *Monitor, feature string, values []float64) {
	for _, v := range values {
		m.Observe(map[string]any{feature: v})
	}
}

func TestEvaluate_SameDistributionIsStable(t *testing.T) {
	baseline := baselineWith(t, map[string][]float64{
		"billed_amount": normalSamples(1, 400, 1000, 200),
		"age":           normalSamples(2, 400, 50, 15),
	})
	m := NewMonitor(driftConfig(), baseline)

	// Feed the baseline samples themselves; the test must not flag a
	// window drawn from the identical distribution.
	for i := 0; i < 400; i++ {
		m.Observe(map[string]any{
			"billed_amount": baseline.Samples("billed_amount")[i],
			"age":           baseline.Samples("age")[i],
		})
	}

	report := m.Evaluate()
	require.Len(t, report.Features, 2)
	for _, fr := range report.Features {
		assert.Equal(t, StatusStable, fr.Status, "feature %s p=%g", fr.Feature, fr.PValue)
		assert.Greater(t, fr.PValue, 0.05)
	}
	assert.False(t, report.Escalated)
	assert.Zero(t, report.ConsecutiveAlerts)
}

func TestEvaluate_ShiftedDistributionAlerts(t *testing.T) {
	baseline := baselineWith(t, map[string][]float64{
		"billed_amount": normalSamples(3, 400, 1000, 200),
		"age":           normalSamples(4, 400, 50, 15),
	})
	m := NewMonitor(driftConfig(), baseline)

	// Billed amounts tripled, ages identical to the reference.
	feedFeature(m, "billed_amount", normalSamples(5, 300, 3000, 200))
	feedFeature(m, "age", baseline.Samples("age"))

	report := m.Evaluate()

	billed := findFeature(report.Features, "billed_amount")
	require.NotNil(t, billed)
	assert.Equal(t, StatusAlert, billed.Status)
	assert.Less(t, billed.PValue, 1e-6)
	assert.Greater(t, billed.CurrentMean, billed.ReferenceMean)

	age := findFeature(report.Features, "age")
	require.NotNil(t, age)
	assert.Equal(t, StatusStable, age.Status)
}

func TestEvaluate_InsufficientSamples(t *testing.T) {
	baseline := baselineWith(t, map[string][]float64{
		"billed_amount": normalSamples(7, 400, 1000, 200),
		"age":           normalSamples(8, 400, 50, 15),
	})
	m := NewMonitor(driftConfig(), baseline)

	feedFeature(m, "billed_amount", normalSamples(9, 10, 9000, 10))

	report := m.Evaluate()
	billed := findFeature(report.Features, "billed_amount")
	require.NotNil(t, billed)
	assert.Equal(t, StatusInsufficient, billed.Status, "10 samples is below the minimum")
}

func TestEvaluate_EscalationAfterSustainedAlerts(t *testing.T) {
	cfg := driftConfig()
	cfg.EscalationStreak = 3
	baseline := baselineWith(t, map[string][]float64{
		"billed_amount": normalSamples(10, 400, 1000, 200),
		"age":           normalSamples(11, 400, 50, 15),
	})
	m := NewMonitor(cfg, baseline)

	feedFeature(m, "billed_amount", normalSamples(12, 300, 5000, 200))
	feedFeature(m, "age", baseline.Samples("age"))

	var report Report
	for i := 0; i < 3; i++ {
		report = m.Evaluate()
	}
	assert.Equal(t, 3, report.ConsecutiveAlerts)
	assert.True(t, report.Escalated)

	// Recovery: refill the window from the reference samples themselves.
	m.ResetWindow()
	feedFeature(m, "billed_amount", baseline.Samples("billed_amount"))
	report = m.Evaluate()
	assert.Zero(t, report.ConsecutiveAlerts)
	assert.False(t, report.Escalated)
}

func TestEvaluate_InsufficientDataHoldsStreak(t *testing.T) {
	cfg := driftConfig()
	cfg.EscalationStreak = 2
	baseline := baselineWith(t, map[string][]float64{
		"billed_amount": normalSamples(15, 400, 1000, 200),
		"age":           normalSamples(16, 400, 50, 15),
	})
	m := NewMonitor(cfg, baseline)

	feedFeature(m, "billed_amount", normalSamples(17, 300, 5000, 200))
	report := m.Evaluate()
	assert.Equal(t, 1, report.ConsecutiveAlerts)

	// An evaluation without enough fresh data neither extends nor resets.
	m.ResetWindow()
	report = m.Evaluate()
	assert.Equal(t, 1, report.ConsecutiveAlerts)
}

func TestLastReport(t *testing.T) {
	baseline := EmptyBaseline()
	m := NewMonitor(driftConfig(), baseline)

	assert.Nil(t, m.LastReport())
	m.Evaluate()
	require.NotNil(t, m.LastReport())
}

func TestObserve_DisabledIsNoop(t *testing.T) {
	cfg := driftConfig()
	cfg.Enabled = false
	m := NewMonitor(cfg, EmptyBaseline())

	m.Observe(map[string]any{"billed_amount": 100.0})
	assert.Zero(t, m.window.Len("billed_amount"))
}

func TestWindow_RingEviction(t *testing.T) {
	w := NewWindow([]string{"x"}, 3)
	for i := 1; i <= 5; i++ {
		w.Observe(map[string]any{"x": float64(i)})
	}

	assert.Equal(t, 3, w.Len("x"))
	assert.Equal(t, []float64{3, 4, 5}, w.Snapshot("x"))
}

func TestWindow_SkipsNonNumeric(t *testing.T) {
	w := NewWindow([]string{"x"}, 10)
	w.Observe(map[string]any{"x": "not a number"})
	w.Observe(map[string]any{"x": nil})
	w.Observe(map[string]any{"y": 1.0})
	w.Observe(map[string]any{"x": 2})

	assert.Equal(t, 1, w.Len("x"))
	assert.Equal(t, []float64{2}, w.Snapshot("x"))
}

func TestKSTest_Extremes(t *testing.T) {
	same := normalSamples(20, 200, 0, 1)
	_, p := ksTest(same, same)
	assert.InDelta(t, 1.0, p, 1e-6, "identical samples must not be flagged")

	far := normalSamples(21, 200, 100, 1)
	d, p := ksTest(same, far)
	assert.InDelta(t, 1.0, d, 1e-9, "disjoint supports give maximal D")
	assert.Less(t, p, 1e-12)
}

func TestParseBaseline_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"features": `},
		{"empty", `{"features": {}}`},
		{"feature without samples", `{"features": {"age": []}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBaseline([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrBaselineLoad)
		})
	}
}

func TestParseBaseline_Valid(t *testing.T) {
	b, err := ParseBaseline([]byte(`{"version": "2.0.0", "features": {"age": [1, 2, 3]}}`))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", b.Version())
	assert.Len(t, b.Samples("age"), 3)
	assert.Nil(t, b.Samples("ghost"))
}
