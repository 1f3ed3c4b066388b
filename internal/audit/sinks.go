package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// LogSink writes events to the structured log only.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event Event) error {
	args := []any{
		"log_type", "audit",
		"action", event.Action,
		"timestamp", event.Timestamp,
	}
	if event.RegistrationID != "" {
		args = append(args, "registration_id", event.RegistrationID)
	}
	if event.Actor != "" {
		args = append(args, "actor", event.Actor)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	for _, k := range sortedKeys(event.Details) {
		args = append(args, k, event.Details[k])
	}
	s.logger.InfoContext(ctx, event.Action, args...)
	return nil
}

// MemorySink keeps events in memory for tests and single-process runs.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Actions lists the action of every appended event in order.
func (s *MemorySink) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
