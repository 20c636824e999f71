// Package audit appends structured activity records for every executed
// copy and delete. The engine only writes entries; reading the log back
// is the caller's business.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/shelfsync/shelfsync/pkg/logging"
)

// Kind categorizes an activity entry
type Kind string

const (
	// KindSync is a file copied during reconciliation
	KindSync Kind = "sync"
	// KindCopy is a file copied outside a sync run
	KindCopy Kind = "copy"
	// KindDelete is a file removed (duplicate elimination)
	KindDelete Kind = "delete"
)

// Entry is one activity record
type Entry struct {
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	Path        string    `json:"path"`
	Bytes       int64     `json:"bytes"`
	Count       int       `json:"count"`
	Actor       string    `json:"actor,omitempty"`
	Time        time.Time `json:"time"`
}

// Sink receives activity entries. Implementations must tolerate being
// called from concurrent executors.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// NullSink discards every entry
type NullSink struct{}

// Record does nothing
func (NullSink) Record(ctx context.Context, entry Entry) {}

// LoggerSink writes entries through a structured logger
type LoggerSink struct {
	logger logging.Logger
}

// NewLoggerSink creates a sink appending entries via logger
func NewLoggerSink(logger logging.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Record logs the entry at info level
func (s *LoggerSink) Record(ctx context.Context, entry Entry) {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	s.logger.Info(ctx, "activity", logging.Fields{
		"kind":        string(entry.Kind),
		"description": entry.Description,
		"path":        entry.Path,
		"bytes":       entry.Bytes,
		"count":       entry.Count,
		"actor":       entry.Actor,
	})
}

// MemorySink accumulates entries in memory, used by tests
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// Record appends the entry
func (s *MemorySink) Record(ctx context.Context, entry Entry) {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

// Entries returns a copy of the accumulated entries
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
