package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Action is the kind of write that produced an event.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
)

// Event describes a completed write to one record.
type Event struct {
	Action Action    `json:"action"`
	Entity string    `json:"entity"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
}

// Sink receives events after the storage layer commits a write.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// Nop drops every event.
type Nop struct{}

// Record discards e.
func (Nop) Record(context.Context, Event) {}

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging at info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record logs e at info level with its entity, id and time.
func (s *LogSink) Record(ctx context.Context, e Event) {
	s.logger.InfoContext(ctx, "record "+string(e.Action),
		slog.String("entity", e.Entity),
		slog.Int64("id", e.ID),
		slog.Time("at", e.At),
	)
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Record appends e to the in-memory list.
func (r *Recorder) Record(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
