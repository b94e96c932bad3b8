// Hospital Management - Prediction Serving and Model Governance
// Copyright 2026 Sushim Saini (sushimsaini)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sushimsaini/hospital-management

package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Store persists audit records. Implementations must be safe for use from
// the logger's single writer goroutine plus Close from another goroutine.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Close() error
}

// FileStore appends records to a JSONL file, one JSON object per line.
// Append-only flat files are the system of record; rotation and retention
// are left to the operator.
type FileStore struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileStore opens (creating if needed) the JSONL file at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	return &FileStore{file: f}, nil
}

// Save writes one record as a single line. The line is written with one
// Write call so concurrent process restarts cannot interleave partial rows.
func (s *FileStore) Save(_ context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("audit store: closed")
	}
	_, err = s.file.Write(append(data, '\n'))
	return err
}

// Close flushes and closes the underlying file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// MemoryStore keeps records in memory. For tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends a copy of the record.
func (s *MemoryStore) Save(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *record)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Records returns a copy of everything saved so far.
func (s *MemoryStore) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of saved records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
