package event

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Bus fans mutation events out to every subscribed viewer connection. It is
// owned by the process entry point and injected into the mutation handlers
// and the push transport; there is no package-level instance.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Envelope
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]chan Envelope),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan Envelope) {
	id := ulid.Make().String()
	ch := make(chan Envelope, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast wraps the payload in an envelope and delivers it to every
// subscriber. Delivery is fire-and-forget: a subscriber whose buffer is full
// loses the event rather than blocking the rest.
func (b *Bus) Broadcast(p Payload) {
	env := Envelope{
		Type:      p.EventKind(),
		Data:      p.Data(),
		Timestamp: time.Now().UnixMilli(),
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- env:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
