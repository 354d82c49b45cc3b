package controlapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mettagrid/internal/events"
)

func TestManager_SubscribeForwardsThroughEventRepository(t *testing.T) {
	bus := events.NewInMemoryEventBus()
	defer bus.Close()
	m := NewManager(bus)

	received := make(chan events.Event, 1)
	m.Subscribe(events.EventTypeEpisodeStarted, func(ctx context.Context, event events.Event) error {
		received <- event
		return nil
	})

	evt := events.NewEpisodeStartedEvent("episode1", 2, 5, 5, 42)
	assert.NoError(t, bus.Publish(context.Background(), evt))

	select {
	case got := <-received:
		assert.Equal(t, "episode1", got.GetEpisodeID())
		assert.Equal(t, events.EventTypeEpisodeStarted, got.GetType())
	case <-time.After(time.Second):
		t.Fatal("expected to receive event within 1 second")
	}
}

func TestManager_SubscribeIsNoOpWithoutBus(t *testing.T) {
	m := NewManager(nil)

	// Must not panic even though there is no bus backing the repository.
	m.Subscribe(events.EventTypeEpisodeStarted, func(ctx context.Context, event events.Event) error {
		return nil
	})
}
