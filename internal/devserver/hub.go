package devserver

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

// Subscriber is one websocket client with its compiled query
type Subscriber struct {
	ID    uuid.UUID
	Query Query

	ch      chan []byte
	dropped atomic.Uint64
}

// Messages delivers encoded events; it is closed when the hub drops the
// subscriber.
func (s *Subscriber) Messages() <-chan []byte {
	return s.ch
}

// Dropped counts events skipped because the subscriber was too slow
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Hub fans events out to subscribers. Delivery never blocks: a subscriber
// whose buffer is full loses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
	buffer      int
	closed      bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates a hub whose subscribers buffer up to buffer messages
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]*Subscriber),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber for q. It returns nil after Close.
func (h *Hub) Subscribe(q Query) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	sub := &Subscriber{ID: uuid.New(), Query: q, ch: make(chan []byte, h.buffer)}
	h.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes the subscriber and closes its channel
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(sub.ch)
	}
}

// Broadcast delivers ev to every matching subscriber and returns how many
// received it.
func (h *Hub) Broadcast(ev *event.Event, payload []byte) int {
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subscribers {
		if !sub.Query.Match(ev) {
			continue
		}
		select {
		case sub.ch <- payload:
			delivered++
		default:
			sub.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
	return delivered
}

// Len returns the number of subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Published counts broadcast events
func (h *Hub) Published() uint64 {
	return h.published.Load()
}

// Dropped counts deliveries skipped on full buffers
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close drops every subscriber and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		close(sub.ch)
	}
}
