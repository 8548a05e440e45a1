// Package events distributes profile change notifications to in-process
// subscribers, primarily the SSE endpoint that keeps dashboard views fresh.
package events

import (
	"sync"

	"driverportal/internal/profile"
)

// Kind discriminates what happened to the profile.
type Kind string

const (
	KindCreated Kind = "profile.created"
	KindUpdated Kind = "profile.updated"
)

// Event is one profile change notification.
type Event struct {
	Kind    Kind            `json:"kind"`
	Profile profile.Profile `json:"profile"`
}

// Bus fans profile events out to subscribers. Delivery is best effort: a
// subscriber whose channel is full misses the event rather than blocking the
// publisher.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	buffer      int
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]chan Event),
		buffer:      8,
	}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the subscription; the channel is closed by it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
