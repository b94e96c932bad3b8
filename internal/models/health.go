// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package models

import (
	"time"
)

// Health statuses.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// ModelHealth reports the true usability of one model slot. Loaded is true
// only when the artifact was read and decoded into a working classifier,
// never merely because the file exists.
type ModelHealth struct {
	Task    string `json:"task"`
	Version string `json:"version"`
	Loaded  bool   `json:"loaded"`
	State   string `json:"state"`
	Reason  string `json:"reason,omitempty"`
}

// HealthStatus is the full health report. The service stays "ok" in the
// HTTP sense even when degraded; degraded means some tasks serve fallbacks.
type HealthStatus struct {
	Status        string        `json:"status"`
	SchemaVersion string        `json:"schema_version"`
	Models        []ModelHealth `json:"models"`
	AuditEnabled  bool          `json:"audit_enabled"`
	DriftEnabled  bool          `json:"drift_enabled"`
	StartedAt     time.Time     `json:"started_at"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

// ReloadResponse reports the outcome of an admin-triggered model reload.
type ReloadResponse struct {
	Models      []ModelHealth `json:"models"`
	WindowReset bool          `json:"window_reset"`
	ReloadedAt  time.Time     `json:"reloaded_at"`
}
