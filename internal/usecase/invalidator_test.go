package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidatorCoalesces(t *testing.T) {
	b := NewBroadcaster(16)
	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	inv := NewInvalidator(50*time.Millisecond, b, logger.NewNoOp())
	defer inv.Stop()

	for i := 0; i < 10; i++ {
		inv.TileLoaded(tile.NewKey("osm", 1, 0, 0))
	}
	inv.TileFailed(tile.NewKey("osm", 1, 1, 0), tile.ReasonNotFound)

	select {
	case e := <-events:
		assert.Equal(t, EventRedraw, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no redraw")
	}

	select {
	case e := <-events:
		t.Fatalf("unexpected event %v", e)
	case <-time.After(150 * time.Millisecond):
	}

	inv.TileLoaded(tile.NewKey("osm", 1, 0, 1))
	select {
	case e := <-events:
		assert.Equal(t, EventRedraw, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no second redraw")
	}
}

func TestInvalidatorForwardsWarnings(t *testing.T) {
	b := NewBroadcaster(16)
	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	inv := NewInvalidator(time.Hour, b, logger.NewNoOp())
	inv.FailureWarning("osm", 51)
	inv.BackendUnusable("world", errors.New("archive missing"))

	first := <-events
	assert.Equal(t, EventFailureWarning, first.Type)
	assert.Equal(t, "osm", first.Source)
	assert.False(t, first.Time.IsZero())

	second := <-events
	assert.Equal(t, EventBackendUnusable, second.Type)
	assert.Equal(t, "archive missing", second.Message)
}

func TestBroadcasterDropsForSlowSubscribers(t *testing.T) {
	b := NewBroadcaster(1)
	events, unsubscribe := b.Subscribe()

	b.Publish(Event{Type: EventRedraw})
	b.Publish(Event{Type: EventRedraw})

	require.Len(t, events, 1)
	unsubscribe()
	unsubscribe()

	_, open := <-events
	assert.True(t, open)
	_, open = <-events
	assert.False(t, open)
}
