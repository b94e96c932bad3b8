// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package drift

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/sushimsaini/hospital-management/internal/logging"
)

// Scheduler runs Evaluate on a cron schedule. It implements suture.Service
// so the supervisor owns its lifecycle.
type Scheduler struct {
	monitor  *Monitor
	schedule string
}

// NewScheduler validates the cron expression up front so a bad schedule
// fails at startup instead of silently never firing.
func NewScheduler(monitor *Monitor, schedule string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("drift schedule %q: %w", schedule, err)
	}
	return &Scheduler{monitor: monitor, schedule: schedule}, nil
}

// Serve runs evaluation cycles until the context is canceled.
func (s *Scheduler) Serve(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		report := s.monitor.Evaluate()
		logging.Debug().
			Int("features", len(report.Features)).
			Int("consecutive_alerts", report.ConsecutiveAlerts).
			Bool("escalated", report.Escalated).
			Msg("Scheduled drift evaluation completed")
	})
	if err != nil {
		return fmt.Errorf("drift schedule %q: %w", s.schedule, err)
	}

	c.Start()
	logging.Info().Str("schedule", s.schedule).Msg("Drift evaluation scheduler started")

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "drift-scheduler"
}
