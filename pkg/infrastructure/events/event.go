package events

import (
	"context"
	"time"
)

// Event is a committed domain fact. StreamID names the aggregate it belongs
// to ("order-<id>", "batch-<id>"); Version is its position in that stream.
type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

// Envelope is the wire form of an Event
type Envelope struct {
	EventType    string      `json:"type"`
	Stream       string      `json:"stream"`
	EventData    interface{} `json:"data"`
	EventTime    time.Time   `json:"timestamp"`
	EventVersion int         `json:"version"`
}

func (e Envelope) Type() string         { return e.EventType }
func (e Envelope) StreamID() string     { return e.Stream }
func (e Envelope) Data() interface{}    { return e.EventData }
func (e Envelope) Timestamp() time.Time { return e.EventTime }
func (e Envelope) Version() int         { return e.EventVersion }

// NewEvent stamps an unversioned event; stores assign the stream version.
func NewEvent(eventType, streamID string, data interface{}) Event {
	return Envelope{
		EventType: eventType,
		Stream:    streamID,
		EventData: data,
		EventTime: time.Now().UTC(),
	}
}

func envelopeOf(e Event) Envelope {
	if env, ok := e.(Envelope); ok {
		return env
	}
	return Envelope{
		EventType:    e.Type(),
		Stream:       e.StreamID(),
		EventData:    e.Data(),
		EventTime:    e.Timestamp(),
		EventVersion: e.Version(),
	}
}

// Publisher delivers committed domain events. Delivery is best effort: the
// state change the events describe has already been committed.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// MultiPublisher fans events out to several publishers, returning the first error.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, events ...Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, events...); err != nil && first == nil {
			first = err
		}
	}
	return first
}
