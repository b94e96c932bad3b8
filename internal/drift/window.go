// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package drift

import (
	"sync"
)

// series is a fixed-capacity ring of the most recent observations.
type series struct {
	buf  []float64
	next int
	full bool
}

func (s *series) add(v float64) {
	s.buf[s.next] = v
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.full = true
	}
}

func (s *series) len() int {
	if s.full {
		return len(s.buf)
	}
	return s.next
}

// snapshot copies the series oldest-first.
func (s *series) snapshot() []float64 {
	n := s.len()
	out := make([]float64, 0, n)
	if s.full {
		out = append(out, s.buf[s.next:]...)
	}
	out = append(out, s.buf[:s.next]...)
	return out
}

// Window accumulates the most recent N values of each monitored feature
// from accepted records. Rejected records never reach the window; the
// monitor compares what the models actually scored against the training
// baseline.
type Window struct {
	mu       sync.Mutex
	capacity int
	features map[string]*series
	order    []string
}

// NewWindow creates a window over the named features.
func NewWindow(features []string, capacity int) *Window {
	w := &Window{
		capacity: capacity,
		features: make(map[string]*series, len(features)),
		order:    append([]string(nil), features...),
	}
	for _, f := range features {
		w.features[f] = &series{buf: make([]float64, capacity)}
	}
	return w
}

// Observe extracts the monitored features present in an accepted record.
// Non-numeric or absent values are skipped; one record may contribute to
// some features and not others.
func (w *Window) Observe(record map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for name, s := range w.features {
		value, ok := record[name]
		if !ok || value == nil {
			continue
		}
		if num, ok := toFloat(value); ok {
			s.add(num)
		}
	}
}

// Snapshot returns a copy of a feature's current observations, oldest
// first. An unmonitored feature returns nil.
func (w *Window) Snapshot(feature string) []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.features[feature]
	if !ok {
		return nil
	}
	return s.snapshot()
}

// Len returns the number of observations held for a feature.
func (w *Window) Len(feature string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.features[feature]
	if !ok {
		return 0
	}
	return s.len()
}

// Features returns the monitored feature names in configuration order.
func (w *Window) Features() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Reset clears all observations. Used after a model reload, when the new
// artifacts make accumulated observations incomparable.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for name := range w.features {
		w.features[name] = &series{buf: make([]float64, w.capacity)}
	}
}

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
	default:
		return 0, false
	}
}
