package pubsub

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a live alert pushed to a user's open connections.
type Event struct {
	Type  string    `json:"type"`
	Title string    `json:"title"`
	Body  string    `json:"body,omitempty"`
	At    time.Time `json:"at"`
}

const subscriberBuffer = 16

// Hub fans events out to every live connection of a user
type Hub struct {
	subscriptions    map[uuid.UUID][]chan Event
	subscriptionsMux sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[uuid.UUID][]chan Event),
	}
}

// Subscribe registers a new buffered channel for userID. The returned
// function unregisters and closes it.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.subscriptionsMux.Lock()
	h.subscriptions[userID] = append(h.subscriptions[userID], ch)
	h.subscriptionsMux.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.unregister(userID, ch)
			close(ch)
		})
	}
}

func (h *Hub) unregister(userID uuid.UUID, ch chan Event) {
	h.subscriptionsMux.Lock()
	defer h.subscriptionsMux.Unlock()

	subs := h.subscriptions[userID]
	for i, sub := range subs {
		if sub == ch {
			h.subscriptions[userID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(h.subscriptions[userID]) == 0 {
		delete(h.subscriptions, userID)
	}
}

// BroadcastToUser delivers event to every subscriber of userID and returns
// how many received it. Full subscribers are skipped.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event Event) int {
	h.subscriptionsMux.RLock()
	defer h.subscriptionsMux.RUnlock()

	delivered := 0
	for _, ch := range h.subscriptions[userID] {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// SubscriberCount returns the number of live connections for userID.
func (h *Hub) SubscriberCount(userID uuid.UUID) int {
	h.subscriptionsMux.RLock()
	defer h.subscriptionsMux.RUnlock()
	return len(h.subscriptions[userID])
}
