package audit

// Package audit receives before/after snapshots of every ledger mutation so
// postings stay attributable to an actor. The default recorder emits
// structured log records; a store-backed recorder can replace it without
// touching the services.

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event is one attributable mutation.
type Event struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	// Old and New are snapshots of the mutated entity; Old is nil on create,
	// New is nil on delete.
	Old any
	New any
	At  time.Time
}

// Recorder consumes audit events. Implementations must not fail the business
// operation: errors are logged and swallowed by callers.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Logger writes events as structured slog records.
type Logger struct {
	log *slog.Logger
}

// NewLogger wraps l; a nil logger falls back to slog.Default.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l}
}

// Record implements Recorder.
func (a *Logger) Record(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	a.log.InfoContext(ctx, "audit",
		"actor", e.Actor,
		"action", e.Action,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
		"old", compact(e.Old),
		"new", compact(e.New),
		"at", e.At.Format(time.RFC3339),
	)
}

func compact(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "unserializable"
	}
	return string(b)
}

// Nop discards all events. Used by tests.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
