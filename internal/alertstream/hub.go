// Package alertstream fans alert feed updates out to live subscribers.
package alertstream

import (
	"sync"

	"github.com/matthewbaird/rentaldesk/internal/alert"
)

// Listener receives each published feed. It must not block.
type Listener func(alerts []alert.Alert)

// Hub owns the set of registered listeners. Listeners live as long as the
// hub or until they unsubscribe.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[int]Listener)}
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub) Subscribe(fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
		})
	}
}

// Publish hands alerts to every listener.
func (h *Hub) Publish(alerts []alert.Alert) {
	h.mu.Lock()
	fns := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(alerts)
	}
}

// Len returns the number of listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
