// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package inference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/model"
)

// stubClassifier lets tests pin every classifier behavior.
type stubClassifier struct {
	task   string
	labels []string
	proba  bool
	pred   model.Prediction
	err    error
}

func (s *stubClassifier) Task() string                { return s.task }
func (s *stubClassifier) Labels() []string            { return s.labels }
func (s *stubClassifier) SupportsProbabilities() bool { return s.proba }

func (s *stubClassifier) Predict(_ map[string]any) (model.Prediction, error) {
	if s.err != nil {
		return model.Prediction{}, s.err
	}
	return s.pred, nil
}

// stubSource maps tasks to classifiers; absent tasks are unavailable.
type stubSource map[string]model.Classifier

func (s stubSource) Classifier(task string) (model.Classifier, bool) {
	c, ok := s[task]
	return c, ok
}

func testConfig() *config.Config {
	return &config.Config{
		Models: config.ModelsConfig{RiskVersion: "1.2.0", ClaimVersion: "1.1.0"},
	}
}

func TestPredict_ModelWithProbabilities(t *testing.T) {
	source := stubSource{
		config.TaskRisk: &stubClassifier{
			task:  config.TaskRisk,
			proba: true,
			pred: model.Prediction{
				Label:         "High",
				Probabilities: map[string]float64{"Low": 0.1, "Medium": 0.2, "High": 0.7},
			},
		},
	}
	e := New(source, testConfig())

	out := e.Predict(config.TaskRisk, map[string]any{"age": 80.0})

	assert.Equal(t, "High", out.Label)
	assert.False(t, out.Fallback)
	assert.Empty(t, out.FallbackCause)
	assert.Equal(t, "1.2.0", out.ModelVersion)
	require.Len(t, out.Probabilities, 3)
	assert.InDelta(t, 0.7, out.Probabilities["High"], 1e-12)
}

func TestPredict_ModelWithoutProbabilities(t *testing.T) {
	source := stubSource{
		config.TaskClaim: &stubClassifier{
			task: config.TaskClaim,
			pred: model.Prediction{Label: "Rejected"},
		},
	}
	e := New(source, testConfig())

	out := e.Predict(config.TaskClaim, map[string]any{"billed_amount": 900.0})

	assert.Equal(t, "Rejected", out.Label)
	assert.False(t, out.Fallback)
	assert.Nil(t, out.Probabilities, "no distribution means absent, never partial")
}

func TestPredict_NoModelFallsBack(t *testing.T) {
	e := New(stubSource{}, testConfig())

	out := e.Predict(config.TaskRisk, map[string]any{"age": 80.0})
	assert.True(t, out.Fallback)
	assert.Equal(t, "Low", out.Label)
	assert.Equal(t, CauseModelUnavailable, out.FallbackCause)
	assert.Nil(t, out.Probabilities)

	out = e.Predict(config.TaskClaim, map[string]any{"billed_amount": 1.0})
	assert.Equal(t, "Pending", out.Label)
	assert.Equal(t, CauseModelUnavailable, out.FallbackCause)
}

func TestPredict_InferenceErrorFallsBack(t *testing.T) {
	source := stubSource{
		config.TaskRisk: &stubClassifier{
			task: config.TaskRisk,
			err:  errors.New("non-finite score"),
		},
	}
	e := New(source, testConfig())

	out := e.Predict(config.TaskRisk, map[string]any{"age": 80.0})
	assert.True(t, out.Fallback)
	assert.Equal(t, "Low", out.Label)
	assert.Equal(t, CauseInferenceError, out.FallbackCause)
	assert.Equal(t, "1.2.0", out.ModelVersion)
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		task string
		raw  string
		want string
	}{
		{config.TaskRisk, "high", "High"},
		{config.TaskRisk, "2", "High"},
		{config.TaskRisk, "Medium", "Medium"},
		{config.TaskClaim, "paid", "Paid"},
		{config.TaskClaim, "1", "Pending"},
		{config.TaskClaim, "Approved", "Approved"}, // unknown passes through
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLabel(tt.task, tt.raw), "%s/%s", tt.task, tt.raw)
	}
}

func TestPredict_NormalizesDistributionKeys(t *testing.T) {
	source := stubSource{
		config.TaskRisk: &stubClassifier{
			task:  config.TaskRisk,
			proba: true,
			pred: model.Prediction{
				Label:         "2",
				Probabilities: map[string]float64{"0": 0.1, "1": 0.3, "2": 0.6},
			},
		},
	}
	e := New(source, testConfig())

	out := e.Predict(config.TaskRisk, map[string]any{"age": 70.0})
	assert.Equal(t, "High", out.Label)
	assert.InDelta(t, 0.6, out.Probabilities["High"], 1e-12)
	assert.InDelta(t, 0.1, out.Probabilities["Low"], 1e-12)
}

func TestFallbackLabel_UnknownTask(t *testing.T) {
	assert.Equal(t, "Unknown", FallbackLabel("triage"))
}
