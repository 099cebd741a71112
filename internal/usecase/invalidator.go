package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/metrics"
)

// Notifier receives the facade's asynchronous notifications.
type Notifier interface {
	TileLoaded(k tile.Key)
	TileFailed(k tile.Key, reason tile.Reason)
	FailureWarning(source string, failures int64)
	BackendUnusable(source string, err error)
}

// Invalidator turns tile notifications into redraw events. Notifications arriving
// within one window collapse into a single redraw.
type Invalidator struct {
	window time.Duration
	events *Broadcaster
	logger logger.Logger

	mu    sync.Mutex
	timer *time.Timer
}

var _ Notifier = (*Invalidator)(nil)

func NewInvalidator(window time.Duration, events *Broadcaster, l logger.Logger) *Invalidator {
	return &Invalidator{
		window: window,
		events: events,
		logger: l,
	}
}

func (i *Invalidator) TileLoaded(tile.Key) {
	i.schedule()
}

// TileFailed also redraws: the pass after a failure may pick a substitute.
func (i *Invalidator) TileFailed(tile.Key, tile.Reason) {
	i.schedule()
}

func (i *Invalidator) FailureWarning(source string, failures int64) {
	i.logger.Warn("too many tile failures", "source", source, "failures", failures)
	i.events.Publish(Event{
		Type:    EventFailureWarning,
		Source:  source,
		Message: fmt.Sprintf("%d tiles of %s failed to load", failures, source),
	})
}

func (i *Invalidator) BackendUnusable(source string, err error) {
	i.logger.Error("tile backend unusable", "source", source, "error", err)
	i.events.Publish(Event{
		Type:    EventBackendUnusable,
		Source:  source,
		Message: err.Error(),
	})
}

func (i *Invalidator) schedule() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.timer != nil {
		return
	}
	i.timer = time.AfterFunc(i.window, i.fire)
}

func (i *Invalidator) fire() {
	i.mu.Lock()
	i.timer = nil
	i.mu.Unlock()

	metrics.Redraws.Inc()
	i.events.Publish(Event{Type: EventRedraw})
}

// Stop drops a scheduled redraw.
func (i *Invalidator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
}
