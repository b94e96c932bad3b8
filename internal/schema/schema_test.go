// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "version": "1.0.0",
  "fields": {
    "age": {"type": "numeric", "required": true, "min": 0, "max": 120},
    "billed_amount": {"type": "numeric", "required": true, "min": 0.01},
    "length_of_stay_hours": {"type": "numeric", "min": 0},
    "department": {"type": "string", "required": true},
    "visit_type": {"type": "categorical", "required": true, "allowed": ["Inpatient", "Outpatient", "Emergency"]},
    "gender": {"type": "categorical", "allowed": ["F", "M", "Other"]},
    "insurance_provider": {"type": "string", "required": true}
  },
  "tasks": {
    "risk": {"features": ["department", "visit_type", "length_of_stay_hours", "gender", "age"]},
    "claim": {"features": ["department", "billed_amount", "insurance_provider", "age"]}
  }
}`

func TestParse_Valid(t *testing.T) {
	s, err := Parse([]byte(testSchema))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", s.Version())
	assert.True(t, s.HasTask("risk"))
	assert.True(t, s.HasTask("claim"))
	assert.False(t, s.HasTask("triage"))

	spec, err := s.FieldSpecFor("age")
	require.NoError(t, err)
	assert.Equal(t, FieldNumeric, spec.Type)
	assert.True(t, spec.Required)
	require.NotNil(t, spec.Min)
	require.NotNil(t, spec.Max)
	assert.Equal(t, 0.0, *spec.Min)
	assert.Equal(t, 120.0, *spec.Max)
}

func TestParse_OrderingIsDeterministic(t *testing.T) {
	want := []string{"department", "visit_type", "length_of_stay_hours", "gender", "age"}

	// Repeated parses of the same document must give identical orderings;
	// model artifacts are order-sensitive.
	for i := 0; i < 20; i++ {
		s, err := Parse([]byte(testSchema))
		require.NoError(t, err)

		fields, err := s.ExpectedFields("risk")
		require.NoError(t, err)
		assert.Equal(t, want, fields)
	}
}

func TestExpectedFields_ReturnsCopy(t *testing.T) {
	s, err := Parse([]byte(testSchema))
	require.NoError(t, err)

	first, err := s.ExpectedFields("claim")
	require.NoError(t, err)
	first[0] = "tampered"

	second, err := s.ExpectedFields("claim")
	require.NoError(t, err)
	assert.Equal(t, "department", second[0])
}

func TestExpectedFields_UnknownTask(t *testing.T) {
	s, err := Parse([]byte(testSchema))
	require.NoError(t, err)

	_, err = s.ExpectedFields("triage")
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed json", `{"fields": `},
		{"no fields", `{"fields": {}, "tasks": {}}`},
		{"missing type", `{"fields": {"age": {"required": true}}, "tasks": {}}`},
		{"unknown type", `{"fields": {"age": {"type": "tensor"}}, "tasks": {}}`},
		{"inverted bounds", `{"fields": {"age": {"type": "numeric", "min": 120, "max": 0}}, "tasks": {}}`},
		{"categorical without allowed", `{"fields": {"gender": {"type": "categorical"}}, "tasks": {}}`},
		{"task with no features", `{"fields": {"age": {"type": "numeric"}}, "tasks": {"risk": {"features": []}}}`},
		{"task references undefined field", `{"fields": {"age": {"type": "numeric"}}, "tasks": {"risk": {"features": ["ghost"]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrSchemaLoad)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feature_schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", s.Version())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrSchemaLoad)
}
