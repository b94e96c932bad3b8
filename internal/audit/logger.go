// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

// Package audit records every prediction outcome to an append-only store.
// Writes happen on a single background goroutine behind a bounded buffer,
// so the serving path never blocks on audit I/O. When the buffer is full
// the record is dropped and counted; audit failure never fails a request.
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/sushimsaini/hospital-management/internal/config"
	"github.com/sushimsaini/hospital-management/internal/logging"
	"github.com/sushimsaini/hospital-management/internal/metrics"
)

// writeTimeout bounds one store write.
const writeTimeout = 5 * time.Second

// Logger is the async audit writer.
type Logger struct {
	config     config.AuditConfig
	store      Store
	recordChan chan *Record
	stopChan   chan struct{}
	done       chan struct{}
}

// NewLogger starts an audit logger over the given store. A nil store with
// auditing enabled is a programming error; pass Enabled=false to disable.
func NewLogger(store Store, cfg config.AuditConfig) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	l := &Logger{
		config:     cfg,
		store:      store,
		recordChan: make(chan *Record, cfg.BufferSize),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	go l.writeLoop()
	return l
}

// Enabled reports whether records are being accepted.
func (l *Logger) Enabled() bool {
	return l.config.Enabled
}

// Log enqueues one record without blocking. The record's ID and timestamp
// are filled if unset. A full buffer drops the record and increments the
// drop counter; the caller never sees an error.
func (l *Logger) Log(record *Record) {
	if !l.config.Enabled {
		return
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	select {
	case l.recordChan <- record:
	default:
		metrics.AuditDropped.Inc()
		logging.Warn().
			Str("task", record.Task).
			Str("kind", string(record.Kind)).
			Msg("Audit buffer full, dropping record")
	}
}

// writeLoop drains the buffer until Close.
func (l *Logger) writeLoop() {
	defer close(l.done)

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case record := <-l.recordChan:
					l.write(record)
				default:
					return
				}
			}
		case record := <-l.recordChan:
			l.write(record)
		}
	}
}

// write persists one record and optionally mirrors it to the service log.
func (l *Logger) write(record *Record) {
	if l.config.LogToStdout {
		if data, err := json.Marshal(record); err == nil {
			logging.Info().RawJSON("record", data).Msg("Audit record")
		}
	}

	if l.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := l.store.Save(ctx, record); err != nil {
		metrics.AuditWriteErrors.Inc()
		logging.Error().Err(err).Str("record_id", record.ID).Msg("Failed to save audit record")
		return
	}
	metrics.AuditWritten.Inc()
}

// Close stops accepting records, drains the buffer, and closes the store.
func (l *Logger) Close() error {
	close(l.stopChan)
	<-l.done
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}
