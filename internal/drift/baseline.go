// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package drift

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ErrBaselineLoad wraps every baseline load failure mode.
var ErrBaselineLoad = errors.New("drift baseline load failed")

// Baseline holds the training-time reference samples per feature. It is
// exported by the training pipeline next to the model artifacts and is
// immutable after load.
type Baseline struct {
	version  string
	features map[string][]float64
}

// baselineDocument is the on-disk shape.
type baselineDocument struct {
	Version  string               `json:"version"`
	Features map[string][]float64 `json:"features"`
}

// LoadBaseline reads the reference sample file at path. A missing or
// malformed baseline is not fatal to the service; the caller decides
// whether to run with drift monitoring degraded.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrBaselineLoad, path, err)
	}
	return ParseBaseline(data)
}

// ParseBaseline validates and builds a Baseline from raw JSON.
func ParseBaseline(data []byte) (*Baseline, error) {
	var doc baselineDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaselineLoad, err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrBaselineLoad)
	}
	for name, samples := range doc.Features {
		if len(samples) == 0 {
			return nil, fmt.Errorf("%w: feature %q has no samples", ErrBaselineLoad, name)
		}
	}
	return &Baseline{version: doc.Version, features: doc.Features}, nil
}

// EmptyBaseline returns a baseline with no features. Every evaluation
// against it reports insufficient data.
func EmptyBaseline() *Baseline {
	return &Baseline{features: map[string][]float64{}}
}

// Version returns the baseline artifact version string.
func (b *Baseline) Version() string {
	return b.version
}

// Samples returns the reference values for a feature, or nil when the
// baseline does not cover it. Callers must not mutate the result.
func (b *Baseline) Samples(feature string) []float64 {
	return b.features[feature]
}
