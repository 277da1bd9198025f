package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans progress events out to the stream subscribers connected to
// this process. The bus forwarder feeds Broadcast; each SSE client
// holds one subscription. A subscriber that falls behind loses events
// rather than blocking the forwarder.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

type subscriber struct {
	userID uuid.UUID
	ch     chan ProgressEvent
}

func NewHub() *Hub {
	return &Hub{subs: map[int]subscriber{}}
}

// Subscribe registers a listener for one user's events. The cancel
// func must be called when the client disconnects; it closes the
// returned channel.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscriber{userID: userID, ch: ch}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return ch, cancel
}

// Broadcast delivers an event to every subscriber watching that user.
func (h *Hub) Broadcast(ev ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		if s.userID != ev.UserID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}
