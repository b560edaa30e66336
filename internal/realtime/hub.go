package realtime

import (
	"log"
	"sync"

	"teamtasks/internal/models"
)

// Hub fans inbox events out to every open stream of a user.
type Hub struct {
	mu    sync.RWMutex
	users map[int64]map[chan models.NotificationEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[int64]map[chan models.NotificationEvent]struct{}),
	}
}

// Subscribe registers a stream for userID. The returned cancel func must be
// called once the stream ends; it closes the channel.
func (h *Hub) Subscribe(userID int64, buffer int) (<-chan models.NotificationEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.NotificationEvent, buffer)

	h.mu.Lock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan models.NotificationEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.users[userID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.users, userID)
				}
			}
			close(ch)
		})
	}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (h *Hub) Publish(userID int64, evt models.NotificationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.users[userID] {
		select {
		case ch <- evt:
		default:
			log.Printf("[hub][drop] user=%d index=%d", userID, evt.Index)
		}
	}
}

// Subscribers reports the number of open streams for userID.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
