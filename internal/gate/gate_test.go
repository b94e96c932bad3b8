// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushimsaini/hospital-management/internal/schema"
)

const gateSchema = `{
  "version": "1.0.0",
  "fields": {
    "age": {"type": "numeric", "required": true, "min": 0, "max": 120},
    "billed_amount": {"type": "numeric", "required": true, "min": 0.01},
    "length_of_stay_hours": {"type": "numeric", "min": 0},
    "department": {"type": "string", "required": true},
    "visit_type": {"type": "categorical", "required": true, "allowed": ["Inpatient", "Outpatient", "Emergency"]},
    "gender": {"type": "categorical", "allowed": ["F", "M", "Other"]}
  },
  "tasks": {
    "risk": {"features": ["department", "visit_type", "length_of_stay_hours", "gender", "age"]},
    "claim": {"features": ["department", "billed_amount", "age"]}
  }
}`

func newTestGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	s, err := schema.Parse([]byte(gateSchema))
	require.NoError(t, err)
	return New(s, cfg)
}

func validRiskRecord() Record {
	return Record{
		"department":           "Cardiology",
		"visit_type":           "Inpatient",
		"length_of_stay_hours": 48.0,
		"gender":               "F",
		"age":                  67.0,
	}
}

func TestCheck_AcceptsValidRecord(t *testing.T) {
	g := newTestGate(t, Config{})

	res := g.Check("risk", validRiskRecord())
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Violations)
	assert.Equal(t, "Cardiology", res.Record["department"])
}

func TestCheck_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Record)
		field  string
		rule   Rule
	}{
		{"negative age", func(r Record) { r["age"] = -5.0 }, "age", RuleRange},
		{"age above max", func(r Record) { r["age"] = 130.0 }, "age", RuleRange},
		{"missing required", func(r Record) { delete(r, "department") }, "department", RuleRequired},
		{"explicit null required", func(r Record) { r["visit_type"] = nil }, "visit_type", RuleRequired},
		{"non-numeric age", func(r Record) { r["age"] = "sixty" }, "age", RuleType},
		{"non-string department", func(r Record) { r["department"] = 12.0 }, "department", RuleType},
		{"unknown category", func(r Record) { r["visit_type"] = "Telehealth" }, "visit_type", RuleCategory},
		{"case mismatch rejected by default", func(r Record) { r["visit_type"] = "inpatient" }, "visit_type", RuleCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGate(t, Config{})
			rec := validRiskRecord()
			tt.mutate(rec)

			res := g.Check("risk", rec)
			assert.False(t, res.Accepted)
			require.Len(t, res.Violations, 1)
			assert.Equal(t, tt.field, res.Violations[0].Field)
			assert.Equal(t, tt.rule, res.Violations[0].Rule)
		})
	}
}

func TestCheck_WholeRecordRejection(t *testing.T) {
	g := newTestGate(t, Config{})
	rec := validRiskRecord()
	rec["age"] = -5.0
	rec["visit_type"] = "Telehealth"

	// One bad field is enough to reject; all violations are still reported.
	res := g.Check("risk", rec)
	assert.False(t, res.Accepted)
	assert.Len(t, res.Violations, 2)
	assert.Nil(t, res.Record)
}

func TestCheck_OptionalFieldsMayBeAbsent(t *testing.T) {
	g := newTestGate(t, Config{})
	rec := validRiskRecord()
	delete(rec, "length_of_stay_hours")
	delete(rec, "gender")

	res := g.Check("risk", rec)
	assert.True(t, res.Accepted)
}

func TestCheck_CaseInsensitiveCategoricals(t *testing.T) {
	g := newTestGate(t, Config{CategoricalCaseInsensitive: true})
	rec := validRiskRecord()
	rec["visit_type"] = "INPATIENT"

	res := g.Check("risk", rec)
	assert.True(t, res.Accepted)
}

func TestCheck_TaskScopedFields(t *testing.T) {
	g := newTestGate(t, Config{})

	// billed_amount is a claim feature only; a risk record without it passes.
	res := g.Check("risk", validRiskRecord())
	assert.True(t, res.Accepted)

	claim := Record{
		"department":    "Oncology",
		"billed_amount": 0.0,
		"age":           45.0,
	}
	res = g.Check("claim", claim)
	assert.False(t, res.Accepted)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "billed_amount", res.Violations[0].Field)
	assert.Equal(t, RuleRange, res.Violations[0].Rule)
}

func TestCheck_UnknownTask(t *testing.T) {
	g := newTestGate(t, Config{})

	res := g.Check("triage", validRiskRecord())
	assert.False(t, res.Accepted)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "task", res.Violations[0].Field)
}

func TestCheck_IntegerValuedNumerics(t *testing.T) {
	g := newTestGate(t, Config{})
	rec := validRiskRecord()
	rec["age"] = 67 // decoders that preserve int types must still pass

	res := g.Check("risk", rec)
	assert.True(t, res.Accepted)
}
