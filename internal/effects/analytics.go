package effects

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Analytics event names.
const (
	EventUserLoggedOut     = "user_logged_out"
	EventUserLoggedIn      = "user_logged_in"
	EventPageView          = "page_view"
	EventErrorNotification = "error_notification"
)

// Analytics receives the events produced by the effects runner.
type Analytics interface {
	Record(event string, payload map[string]any)
}

// LogAnalytics writes events to a structured logger.
type LogAnalytics struct {
	Logger *slog.Logger
}

// Record implements Analytics.
func (a LogAnalytics) Record(event string, payload map[string]any) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]any, 0, 2+2*len(payload))
	attrs = append(attrs, "event", event)
	for _, k := range slices.Sorted(maps.Keys(payload)) {
		attrs = append(attrs, k, payload[k])
	}
	logger.Info("analytics", attrs...)
}

// Event is one recorded analytics event.
type Event struct {
	Name    string         `json:"name" yaml:"name"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// MemoryAnalytics keeps events in memory. Used by tests and the scenario
// harness.
type MemoryAnalytics struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Analytics.
func (a *MemoryAnalytics) Record(event string, payload map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, Event{Name: event, Payload: maps.Clone(payload)})
}

// Events returns a copy of the recorded events, oldest first.
func (a *MemoryAnalytics) Events() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.events)
}

// Names returns the recorded event names, oldest first.
func (a *MemoryAnalytics) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, len(a.events))
	for i, e := range a.events {
		names[i] = e.Name
	}
	return names
}

// Multi fans an event out to several sinks.
type Multi []Analytics

// Record implements Analytics.
func (m Multi) Record(event string, payload map[string]any) {
	for _, a := range m {
		a.Record(event, payload)
	}
}
