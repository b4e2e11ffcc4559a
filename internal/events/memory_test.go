package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil/internal/logging"
)

func TestMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	received := make(chan []byte, 1)
	require.NoError(t, bus.Subscribe(SubjectViewed, func(data []byte) error {
		received <- data
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), SubjectViewed, []byte(`{"actor":"bob"}`)))

	select {
	case data := <-received:
		assert.JSONEq(t, `{"actor":"bob"}`, string(data))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestMemoryBusDoubleSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	noop := func([]byte) error { return nil }
	require.NoError(t, bus.Subscribe(SubjectApproved, noop))
	assert.Error(t, bus.Subscribe(SubjectApproved, noop))
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(SubjectDenied, func([]byte) error { return nil }))
	require.NoError(t, bus.Unsubscribe(SubjectDenied))
	assert.Error(t, bus.Unsubscribe(SubjectDenied))
}

func TestEmitStampsAndDelivers(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	received := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(SubjectRequested, func(data []byte) error {
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		received <- ev
		return nil
	}))

	Emit(context.Background(), bus, logging.Global(), Event{
		Subject:   SubjectRequested,
		Actor:     "bob",
		Target:    "alice",
		PhotoID:   "sunset.png",
		RequestID: "r1",
	})

	select {
	case ev := <-received:
		assert.Equal(t, "bob", ev.Actor)
		assert.Equal(t, "alice", ev.Target)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
