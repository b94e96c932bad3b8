// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package gate implements the validation gate: the single enforcement point
// between raw inbound records and the inference engine. Every record is
// checked independently against the feature schema; any violation rejects
// the whole record. The gate is a pure function of record and schema with
// no side effects; nothing downstream re-validates.
package gate

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sushimsaini/hospital-management/internal/schema"
)

// Record is a raw inbound record keyed by field name. Values are
// JSON-decoded: numbers arrive as float64, categoricals and strings as
// string, absent/null fields as missing keys or nil.
type Record map[string]any

// Rule identifies which check a violation came from.
type Rule string

const (
	RuleRequired Rule = "required"
	RuleType     Rule = "type"
	RuleRange    Rule = "range"
	RuleCategory Rule = "category"
)

// FieldViolation describes a single failed check.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// Result is the gate's decision for one record. A record is either accepted
// whole or rejected whole; there is no partial acceptance.
type Result struct {
	Accepted   bool
	Record     Record
	Violations []FieldViolation
}

// Config holds gate policy knobs.
type Config struct {
	// CategoricalCaseInsensitive relaxes categorical matching. The default
	// (false) requires an exact match against the schema's allowed set.
	CategoricalCaseInsensitive bool
}

// Gate validates records for one task against the shared feature schema.
type Gate struct {
	schema *schema.FeatureSchema
	config Config
}

// New creates a gate over the given schema.
func New(s *schema.FeatureSchema, config Config) *Gate {
	return &Gate{schema: s, config: config}
}

// Check applies null, range and category rules for the task's declared
// fields. On any violation the whole record is rejected and the violations
// are returned for the caller to surface; an accepted record may be handed
// to the inference engine without further validation.
func (g *Gate) Check(task string, record Record) Result {
	fields, err := g.schema.ExpectedFields(task)
	if err != nil {
		return Result{
			Violations: []FieldViolation{{
				Field:   "task",
				Rule:    RuleRequired,
				Message: fmt.Sprintf("unknown task %q", task),
			}},
		}
	}

	var violations []FieldViolation
	for _, name := range fields {
		spec, specErr := g.schema.FieldSpecFor(name)
		if specErr != nil {
			continue // Parse guarantees task fields are defined
		}
		if v := g.checkField(name, spec, record); v != nil {
			violations = append(violations, *v)
		}
	}

	if len(violations) > 0 {
		return Result{Violations: violations}
	}
	return Result{Accepted: true, Record: record}
}

// checkField applies the rules for one field. Returns nil when the field passes.
func (g *Gate) checkField(name string, spec schema.FieldSpec, record Record) *FieldViolation {
	value, present := record[name]
	if !present || value == nil {
		if spec.Required {
			return &FieldViolation{
				Field:   name,
				Rule:    RuleRequired,
				Message: fmt.Sprintf("%s is required and must not be null", name),
			}
		}
		return nil
	}

	switch spec.Type {
	case schema.FieldNumeric:
		return checkNumeric(name, spec, value)
	case schema.FieldCategorical:
		return g.checkCategorical(name, spec, value)
	case schema.FieldString:
		if _, ok := value.(string); !ok {
			return &FieldViolation{
				Field:   name,
				Rule:    RuleType,
				Message: fmt.Sprintf("%s must be a string", name),
			}
		}
	}
	return nil
}

// checkNumeric validates type and declared bounds.
func checkNumeric(name string, spec schema.FieldSpec, value any) *FieldViolation {
	num, ok := toFloat(value)
	if !ok {
		return &FieldViolation{
			Field:   name,
			Rule:    RuleType,
			Message: fmt.Sprintf("%s must be numeric", name),
		}
	}

	if spec.Min != nil && num < *spec.Min {
		return &FieldViolation{
			Field:   name,
			Rule:    RuleRange,
			Message: fmt.Sprintf("%s must be >= %g, got %g", name, *spec.Min, num),
		}
	}
	if spec.Max != nil && num > *spec.Max {
		return &FieldViolation{
			Field:   name,
			Rule:    RuleRange,
			Message: fmt.Sprintf("%s must be <= %g, got %g", name, *spec.Max, num),
		}
	}
	return nil
}

// checkCategorical validates membership in the allowed set under the
// configured case policy.
func (g *Gate) checkCategorical(name string, spec schema.FieldSpec, value any) *FieldViolation {
	str, ok := value.(string)
	if !ok {
		return &FieldViolation{
			Field:   name,
			Rule:    RuleType,
			Message: fmt.Sprintf("%s must be a string category", name),
		}
	}

	for _, allowed := range spec.Allowed {
		if str == allowed {
			return nil
		}
		if g.config.CategoricalCaseInsensitive && strings.EqualFold(str, allowed) {
			return nil
		}
	}

	return &FieldViolation{
		Field:   name,
		Rule:    RuleCategory,
		Message: fmt.Sprintf("%s must be one of: %s", name, strings.Join(spec.Allowed, ", ")),
	}
}

// toFloat normalizes JSON numeric representations.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
