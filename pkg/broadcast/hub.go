package broadcast

import (
	"sync"

	"helixrecruit/pkg/domain"
)

const subscriberBuffer = 8

// Hub fans a sequence update out to every locally connected subscriber.
// Delivery is fire-and-forget: a subscriber that cannot keep up misses
// updates rather than blocking the broadcast.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Sequence]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan domain.Sequence]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber disconnects.
func (h *Hub) Subscribe() (<-chan domain.Sequence, func()) {
	ch := make(chan domain.Sequence, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers the sequence to every subscriber. Having no subscribers
// is not an error.
func (h *Hub) Broadcast(seq domain.Sequence) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- seq:
		default:
		}
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
