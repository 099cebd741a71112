package usecase

import (
	"sync"
	"time"
)

type EventType string

const (
	EventRedraw          EventType = "redraw"
	EventFailureWarning  EventType = "failure_warning"
	EventBackendUnusable EventType = "backend_unusable"
)

type Event struct {
	Type    EventType `json:"type"`
	Source  string    `json:"source,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Broadcaster fans events out to subscribers. Slow subscribers lose events
// rather than block the publisher.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewBroadcaster(buffer int) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
	}
}

func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
