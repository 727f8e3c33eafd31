package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventStore_VersionsPerStream(t *testing.T) {
	store := NewInMemoryEventStore()
	orderID := uuid.New()
	stream := "order-" + orderID.String()

	require.NoError(t, store.Publish(context.Background(),
		NewEvent(OrderCreatedEvent, stream, nil),
		NewEvent(OrderReleasedEvent, stream, nil),
		NewEvent(BatchReceivedEvent, "batch-1", nil),
	))

	events := store.Stream(stream, 1)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version())
	assert.Equal(t, 2, events[1].Version())
	assert.Equal(t, OrderReleasedEvent, events[1].Type())

	assert.Len(t, store.Stream(stream, 2), 1)
	assert.Empty(t, store.Stream(stream, 3))
	assert.Equal(t, 1, store.Stream("batch-1", 0)[0].Version())

	assert.Len(t, store.All(), 3)
	assert.Len(t, store.EventsOfType(BatchReceivedEvent), 1)
}

func TestInMemoryEventStore_Subscribe(t *testing.T) {
	store := NewInMemoryEventStore()
	var released, everything []string
	stopReleased := store.Subscribe(func(e Event) { released = append(released, e.StreamID()) }, OrderReleasedEvent)
	store.Subscribe(func(e Event) { everything = append(everything, e.Type()) })

	ctx := context.Background()
	require.NoError(t, store.Publish(ctx,
		NewEvent(OrderCreatedEvent, "order-1", nil),
		NewEvent(OrderReleasedEvent, "order-1", nil),
	))
	assert.Equal(t, []string{"order-1"}, released)
	assert.Equal(t, []string{OrderCreatedEvent, OrderReleasedEvent}, everything)

	stopReleased()
	require.NoError(t, store.Publish(ctx, NewEvent(OrderReleasedEvent, "order-2", nil)))
	assert.Equal(t, []string{"order-1"}, released)
	assert.Len(t, everything, 3)
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, ...Event) error { return f.err }

func TestMultiPublisher_DeliversToAll(t *testing.T) {
	first := NewInMemoryEventStore()
	second := NewInMemoryEventStore()
	boom := errors.New("redis down")

	err := MultiPublisher{first, failingPublisher{boom}, second}.Publish(context.Background(),
		NewEvent(BOMActivatedEvent, "bom-1", nil))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.EventsOfType(BOMActivatedEvent), 1)
	assert.Len(t, second.EventsOfType(BOMActivatedEvent), 1)
}
