package testutil

import (
	"sync"

	"github.com/roach88/cardbook/internal/event"
)

// EventSink collects published events. Its Handle method can be passed to
// Subscribe from any number of goroutines.
type EventSink struct {
	mu     sync.Mutex
	events []event.Event
}

// NewEventSink creates an empty sink.
func NewEventSink() *EventSink {
	return &EventSink{}
}

// Handle records e.
func (s *EventSink) Handle(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of everything recorded, in arrival order.
func (s *EventSink) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Kinds returns the kinds of the recorded events, in arrival order.
func (s *EventSink) Kinds() []event.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Kind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

// Count returns how many events of kind were recorded for userID.
// A negative userID counts every user.
func (s *EventSink) Count(kind event.Kind, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Kind == kind && (userID < 0 || e.UserID == userID) {
			n++
		}
	}
	return n
}

// Reset drops everything recorded.
func (s *EventSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
