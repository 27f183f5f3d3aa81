// Package events is the in-process half of the Event Sink (C12): a
// publish/subscribe fan-out that every component (scheduler, roster
// poller, chunker, summary builder) publishes Events to, and that
// any number of local subscribers (an admission API SSE stream, a
// catchup buffer) can drain independently.
package events

import (
	"context"
	"strconv"
	"sync"

	"github.com/codeready-toolchain/meetingbot/pkg/models"
)

// subscriberBuffer bounds how many unconsumed events a slow subscriber
// may accumulate before new events are dropped for it rather than
// blocking the publisher.
const subscriberBuffer = 256

// Hub fans out published events to every active subscriber. It never
// blocks a publisher on a slow or absent subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan models.Event
	nextID      int
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan models.Event)}
}

// Publish delivers event to every current subscriber. A subscriber
// whose buffer is full has the event dropped for it; Publish itself
// never errors and never blocks.
func (h *Hub) Publish(ctx context.Context, event models.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber and returns its event channel
// and an unsubscribe function. The channel is closed by unsubscribe;
// callers must keep draining it until then to avoid leaking the
// Hub's internal bookkeeping.
func (h *Hub) Subscribe() (<-chan models.Event, func()) {
	h.mu.Lock()
	id := h.nextKey()
	ch := make(chan models.Event, subscriberBuffer)
	h.subscribers[id] = ch
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if existing, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(existing)
		}
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

// SubscriberCount reports the number of active subscribers, for health
// reporting and tests.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// nextKey must be called with mu held.
func (h *Hub) nextKey() string {
	h.nextID++
	return strconv.Itoa(h.nextID)
}
