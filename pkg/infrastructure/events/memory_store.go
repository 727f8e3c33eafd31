package events

import (
	"context"
	"sync"
)

// Handler observes events after they are recorded
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
	types   map[string]bool // nil matches every type
}

// InMemoryEventStore records published events per stream, numbering each
// stream from 1, and hands them to subscribers in publish order.
type InMemoryEventStore struct {
	mu      sync.RWMutex
	streams map[string][]Event
	all     []Event

	subMu  sync.Mutex
	subs   []subscription
	nextID int
}

var _ Publisher = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{streams: make(map[string][]Event)}
}

// Publish records the events, then notifies subscribers synchronously.
func (s *InMemoryEventStore) Publish(_ context.Context, events ...Event) error {
	recorded := make([]Event, 0, len(events))

	s.mu.Lock()
	for _, e := range events {
		env := envelopeOf(e)
		env.EventVersion = len(s.streams[env.Stream]) + 1
		s.streams[env.Stream] = append(s.streams[env.Stream], env)
		s.all = append(s.all, env)
		recorded = append(recorded, env)
	}
	s.mu.Unlock()

	s.subMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.Unlock()
	for _, e := range recorded {
		for _, sub := range subs {
			if sub.types == nil || sub.types[e.Type()] {
				sub.handler(e)
			}
		}
	}
	return nil
}

// Subscribe registers h for the given event types, or for every type when
// none are named. The returned func removes the subscription.
func (s *InMemoryEventStore) Subscribe(h Handler, eventTypes ...string) (unsubscribe func()) {
	var types map[string]bool
	if len(eventTypes) > 0 {
		types = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			types[t] = true
		}
	}

	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, handler: h, types: types})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Stream returns one aggregate's events from version onward (1-based)
func (s *InMemoryEventStore) Stream(streamID string, fromVersion int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return nil
	}
	return append([]Event(nil), events[fromVersion-1:]...)
}

// All returns every recorded event in publish order
func (s *InMemoryEventStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.all...)
}

// EventsOfType returns every recorded event of one type in publish order.
func (s *InMemoryEventStore) EventsOfType(eventType string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Event
	for _, e := range s.all {
		if e.Type() == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}
