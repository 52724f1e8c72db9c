package notification

import (
	"sync"

	"forumpipe/pkg/metrics"
)

const subscriberBuffer = 16

// Hub fans newly materialized notifications out to the recipient's open streams. Delivery is best
// effort: a subscriber whose buffer is full misses the push and picks the record up on its next list.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan NotificationResponse]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan NotificationResponse]struct{})}
}

func (h *Hub) Subscribe(userID string) chan NotificationResponse {
	ch := make(chan NotificationResponse, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[chan NotificationResponse]struct{})
		h.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	metrics.WebSocketConnections.Inc()
	return ch
}

func (h *Hub) Unsubscribe(userID string, ch chan NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[userID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(h.subscribers, userID)
	}
	metrics.WebSocketConnections.Dec()
}

// Publish returns the number of streams the notification was handed to.
func (h *Hub) Publish(userID string, n NotificationResponse) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[userID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
