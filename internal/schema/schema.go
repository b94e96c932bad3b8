// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package schema implements the feature schema registry: the canonical,
// immutable description of the input fields every prediction request must
// satisfy. The registry is loaded once at startup from a flat JSON artifact
// produced by the training pipeline and is shared read-only by the validation
// gate and the inference engine.
//
// Field ordering is significant. Model artifacts are order-sensitive, so each
// task carries an explicit ordered feature list; ExpectedFields returns it
// unchanged on every call and across process restarts.
package schema

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// FieldType is the semantic type of an input field.
type FieldType string

const (
	FieldNumeric     FieldType = "numeric"
	FieldCategorical FieldType = "categorical"
	FieldString      FieldType = "string"
)

// FieldSpec describes a single input field.
type FieldSpec struct {
	// Type is the semantic type: numeric, categorical or string.
	Type FieldType `json:"type"`

	// Required marks fields that must be present and non-null.
	Required bool `json:"required"`

	// Min and Max bound numeric fields (inclusive). Either may be nil.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Allowed enumerates valid values for categorical fields.
	Allowed []string `json:"allowed,omitempty"`
}

// schemaDocument is the on-disk shape of the feature schema artifact.
type schemaDocument struct {
	Version string               `json:"version"`
	Fields  map[string]FieldSpec `json:"fields"`
	Tasks   map[string]struct {
		Features []string `json:"features"`
	} `json:"tasks"`
}

// FeatureSchema holds the parsed schema. Immutable after Load; safe for
// concurrent reads without locking.
type FeatureSchema struct {
	version      string
	fields       map[string]FieldSpec
	taskFeatures map[string][]string
}

// Load errors. ErrSchemaLoad wraps every failure mode so callers can treat
// schema load failure as a single fatal condition.
var (
	ErrSchemaLoad   = errors.New("feature schema load failed")
	ErrUnknownTask  = errors.New("unknown task")
	ErrUnknownField = errors.New("unknown field")
)

// Load reads and validates the feature schema artifact at path.
// It fails if the file is unreadable, the JSON is malformed, or any field
// definition is structurally invalid (missing type, inverted bounds, task
// referencing an undefined field). This is the only error in the service
// allowed to prevent startup.
func Load(path string) (*FeatureSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrSchemaLoad, path, err)
	}
	return Parse(data)
}

// Parse validates and builds a FeatureSchema from raw JSON.
func Parse(data []byte) (*FeatureSchema, error) {
	var doc schemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaLoad, err)
	}

	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields defined", ErrSchemaLoad)
	}

	for name, spec := range doc.Fields {
		switch spec.Type {
		case FieldNumeric, FieldCategorical, FieldString:
		case "":
			return nil, fmt.Errorf("%w: field %q missing type", ErrSchemaLoad, name)
		default:
			return nil, fmt.Errorf("%w: field %q has unknown type %q", ErrSchemaLoad, name, spec.Type)
		}

		if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
			return nil, fmt.Errorf("%w: field %q has inverted bounds [%g, %g]",
				ErrSchemaLoad, name, *spec.Min, *spec.Max)
		}

		if spec.Type == FieldCategorical && len(spec.Allowed) == 0 {
			return nil, fmt.Errorf("%w: categorical field %q has no allowed values", ErrSchemaLoad, name)
		}
	}

	taskFeatures := make(map[string][]string, len(doc.Tasks))
	for task, def := range doc.Tasks {
		if len(def.Features) == 0 {
			return nil, fmt.Errorf("%w: task %q has no features", ErrSchemaLoad, task)
		}
		for _, f := range def.Features {
			if _, ok := doc.Fields[f]; !ok {
				return nil, fmt.Errorf("%w: task %q references undefined field %q", ErrSchemaLoad, task, f)
			}
		}
		features := make([]string, len(def.Features))
		copy(features, def.Features)
		taskFeatures[task] = features
	}

	return &FeatureSchema{
		version:      doc.Version,
		fields:       doc.Fields,
		taskFeatures: taskFeatures,
	}, nil
}

// Version returns the schema artifact version string.
func (s *FeatureSchema) Version() string {
	return s.version
}

// ExpectedFields returns the ordered feature list for a task. The order is
// exactly the order declared by the artifact, so feature vectors line up with
// the model's fit-time schema on every call and across restarts.
func (s *FeatureSchema) ExpectedFields(task string) ([]string, error) {
	features, ok := s.taskFeatures[task]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	out := make([]string, len(features))
	copy(out, features)
	return out, nil
}

// FieldSpecFor returns the spec for a named field.
func (s *FeatureSchema) FieldSpecFor(name string) (FieldSpec, error) {
	spec, ok := s.fields[name]
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return spec, nil
}

// HasTask reports whether the schema defines the given task.
func (s *FeatureSchema) HasTask(task string) bool {
	_, ok := s.taskFeatures[task]
	return ok
}
