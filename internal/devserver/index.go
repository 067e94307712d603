package devserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

var (
	// ErrNilEvent is returned when a nil event is indexed
	ErrNilEvent = errors.New("event cannot be nil")
)

// StateExpired is set on events removed from the index by TTL
const StateExpired = "expired"

// Index keeps the latest event for every host and service.
// It is safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	events map[string]*event.Event
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{events: make(map[string]*event.Event)}
}

// Put replaces the event stored under ev's host and service
func (idx *Index) Put(ev *event.Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.events[ev.Key()] = ev
	return nil
}

// Search returns the indexed events matching q, ordered by host then service
func (idx *Index) Search(q Query) []*event.Event {
	idx.mu.RLock()
	out := make([]*event.Event, 0, len(idx.events))
	for _, ev := range idx.events {
		if q.Match(ev) {
			out = append(out, ev)
		}
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Host != out[j].Host {
			return out[i].Host < out[j].Host
		}
		return out[i].Service < out[j].Service
	})
	return out
}

// Expire removes every event whose TTL has passed at now and returns
// copies of them with state set to expired.
func (idx *Index) Expire(now time.Time) []*event.Event {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var expired []*event.Event
	for key, ev := range idx.events {
		if !ev.Expired(now) {
			continue
		}
		delete(idx.events, key)

		gone := *ev
		gone.State = StateExpired
		gone.Metric = nil
		expiredAt := now.UTC()
		gone.Time = &expiredAt
		expired = append(expired, &gone)
	}
	return expired
}

// Len returns the number of indexed events
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.events)
}
