package realtime

import (
	"sync"

	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

// Hub fans messages out to the SSE subscribers connected to this process.
// Slow subscribers are skipped rather than blocking the publisher.
type Hub struct {
	log *logger.Logger

	mu   sync.RWMutex
	subs map[string]map[chan Message]struct{}
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:  log.With("service", "RealtimeHub"),
		subs: make(map[string]map[chan Message]struct{}),
	}
}

// Subscribe registers a channel for the given user and returns it together
// with an unsubscribe func. The channel is closed on unsubscribe.
func (h *Hub) Subscribe(userID string) (<-chan Message, func()) {
	ch := make(chan Message, 16)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Message]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[msg.UserID] {
		select {
		case ch <- msg:
		default:
			h.log.Warn("dropping realtime message for slow subscriber", "user_id", msg.UserID, "event", msg.Event)
		}
	}
}
