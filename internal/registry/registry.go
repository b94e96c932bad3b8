// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package registry owns the lifecycle of the served model artifacts. Each
// task has one slot; a slot is Loaded only when its artifact was read AND
// decoded successfully, so health output reflects true usability rather
// than file existence. Loading never fails the process: a bad or missing
// artifact leaves its slot in a degraded state and the inference engine
// falls back.
//
// Reload builds a complete new slot table off to the side and swaps it in
// with a single atomic pointer store. In-flight requests keep the table
// they started with.
package registry

import (
	"errors"
	"io/fs"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/model"
)

// SlotState describes the usability of one model slot.
type SlotState string

const (
	// StateLoaded means the artifact decoded into a usable classifier.
	StateLoaded SlotState = "loaded"

	// StateMissing means the artifact file does not exist.
	StateMissing SlotState = "missing"

	// StateFailed means the artifact exists but did not decode.
	StateFailed SlotState = "failed"
)

// Reasons reported for degraded slots.
const (
	ReasonMissing = "artifact missing"
	ReasonDecode  = "load error"
)

// Slot is the immutable load outcome for one task.
type Slot struct {
	Task       string
	Version    string
	Path       string
	State      SlotState
	Reason     string
	Classifier model.Classifier
	LoadedAt   time.Time
}

// Usable reports whether the slot holds a classifier ready for inference.
func (s Slot) Usable() bool {
	return s.State == StateLoaded && s.Classifier != nil
}

// table is one atomic generation of slots.
type table struct {
	slots map[string]Slot
}

// Registry serves classifiers by task from the current slot table.
type Registry struct {
	models  config.ModelsConfig
	current atomic.Pointer[table]

	// loadFile is swappable for tests.
	loadFile func(path string) (model.Classifier, error)
}

// New creates an empty registry. Call Reload before serving.
func New(models config.ModelsConfig) *Registry {
	r := &Registry{models: models, loadFile: model.LoadFile}
	r.current.Store(&table{slots: map[string]Slot{}})
	return r
}

// Reload loads every task's artifact into a fresh table and swaps it in.
// It never returns an error; per-slot outcomes are recorded in the table
// and logged. The previous table stays intact until the swap, so a reload
// that degrades a slot still leaves concurrent requests consistent.
func (r *Registry) Reload() []Slot {
	specs := []struct {
		task    string
		path    string
		version string
	}{
		{config.TaskRisk, r.models.RiskPath(), r.models.RiskVersion},
		{config.TaskClaim, r.models.ClaimPath(), r.models.ClaimVersion},
	}

	slots := make(map[string]Slot, len(specs))
	for _, spec := range specs {
		slots[spec.task] = r.loadSlot(spec.task, spec.path, spec.version)
	}

	r.current.Store(&table{slots: slots})
	return r.Snapshot()
}

// loadSlot attempts one artifact and classifies the outcome.
func (r *Registry) loadSlot(task, path, version string) Slot {
	slot := Slot{
		Task:     task,
		Version:  version,
		Path:     path,
		LoadedAt: time.Now().UTC(),
	}

	c, err := r.loadFile(path)
	switch {
	case err == nil && c.Task() != task:
		slot.State = StateFailed
		slot.Reason = ReasonDecode
		logging.Warn().
			Str("task", task).
			Str("path", path).
			Str("artifact_task", c.Task()).
			Msg("Model artifact trained for a different task")
	case err == nil:
		slot.State = StateLoaded
		slot.Classifier = c
		logging.Info().
			Str("task", task).
			Str("path", path).
			Str("version", version).
			Bool("probabilities", c.SupportsProbabilities()).
			Msg("Model loaded")
	case isNotExist(err):
		slot.State = StateMissing
		slot.Reason = ReasonMissing
		logging.Warn().
			Str("task", task).
			Str("path", path).
			Msg("Model artifact missing, task will serve fallbacks")
	default:
		slot.State = StateFailed
		slot.Reason = ReasonDecode
		logging.Error().
			Err(err).
			Str("task", task).
			Str("path", path).
			Msg("Model artifact failed to decode, task will serve fallbacks")
	}

	return slot
}

// isNotExist distinguishes a missing artifact from a broken one. LoadFile
// wraps the underlying read error, so unwrap-aware matching is required.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Classifier returns the usable classifier for a task, or false when the
// slot is degraded or the task is unknown.
func (r *Registry) Classifier(task string) (model.Classifier, bool) {
	slot, ok := r.current.Load().slots[task]
	if !ok || !slot.Usable() {
		return nil, false
	}
	return slot.Classifier, true
}

// SlotFor returns the current slot for a task.
func (r *Registry) SlotFor(task string) (Slot, bool) {
	slot, ok := r.current.Load().slots[task]
	return slot, ok
}

// Snapshot returns all slots ordered by task name.
func (r *Registry) Snapshot() []Slot {
	slots := r.current.Load().slots
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Task < out[j].Task })
	return out
}

// AllUsable reports whether every slot holds a usable classifier.
func (r *Registry) AllUsable() bool {
	slots := r.current.Load().slots
	if len(slots) == 0 {
		return false
	}
	for _, slot := range slots {
		if !slot.Usable() {
			return false
		}
	}
	return true
}
