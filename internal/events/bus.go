package events

import (
	"sync"

	"github.com/flipwatch/flipwatch/internal/telemetry"
)

// Handler processes an event. Returning an error logs it but does not stop dispatch.
type Handler func(Event) error

// Bus is a synchronous in-process event bus carrying the feed's raw
// snapshots and the engine's derived events. Subscribers are invoked in
// registration order on the publisher's goroutine; handlers that must
// not block the tick path (network submits) hand off to their own
// goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish dispatches an event to all registered handlers for its type.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(e); err != nil {
			// One failing handler must not block the rest of the chain.
			telemetry.Warnf("bus: %s handler: %v", e.Type, err)
		}
	}
}
