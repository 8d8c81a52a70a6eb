package http

import (
	"context"
	"sync"

	"xforce-progression/internal/domain"
)

// Hub delivers progression events to the websocket connections of the user
// they belong to. It satisfies app.Notifier.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.ProgressionEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan domain.ProgressionEvent]struct{})}
}

// Subscribe returns a channel receiving userID's events.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(userID string) (<-chan domain.ProgressionEvent, func()) {
	ch := make(chan domain.ProgressionEvent, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.ProgressionEvent]struct{})
		h.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[userID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, userID)
		}
	}
	return ch, cancel
}

// Notify never blocks: a subscriber with a full buffer loses its oldest event.
func (h *Hub) Notify(_ context.Context, event domain.ProgressionEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[event.UserID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Connections returns the number of open subscriptions for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[userID])
}
