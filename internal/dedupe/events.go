// ABOUTME: Bounded TTL set of chat event ids already handled
// ABOUTME: Sync retries and reconnects can redeliver events; Seen marks and reports repeats atomically

package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type eventEntry struct {
	expires time.Time
	element *list.Element
}

// Events remembers event ids for a TTL, holding at most maxSize of them.
// When full, the oldest id is forgotten first.
type Events struct {
	mu      sync.Mutex
	entries map[string]*eventEntry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewEvents creates an empty event id set.
func NewEvents(ttl time.Duration, maxSize int) *Events {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Events{
		entries: make(map[string]*eventEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Seen reports whether eventID was handled within the TTL. If it wasn't,
// it is recorded and Seen returns false, so exactly one caller proceeds.
func (e *Events) Seen(eventID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if entry, ok := e.entries[eventID]; ok {
		if now.Before(entry.expires) {
			return true
		}
		e.order.Remove(entry.element)
		delete(e.entries, eventID)
	}

	if len(e.entries) >= e.maxSize {
		if front := e.order.Front(); front != nil {
			id, _ := front.Value.(string)
			e.order.Remove(front)
			delete(e.entries, id)
		}
	}

	e.entries[eventID] = &eventEntry{
		expires: now.Add(e.ttl),
		element: e.order.PushBack(eventID),
	}
	return false
}

// Len returns how many ids are currently remembered, expired or not.
func (e *Events) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Sweep forgets expired ids and returns how many were removed.
func (e *Events) Sweep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	removed := 0
	// Entries are in insertion order with a fixed TTL, so expiry is monotonic.
	for front := e.order.Front(); front != nil; front = e.order.Front() {
		id, _ := front.Value.(string)
		if now.Before(e.entries[id].expires) {
			break
		}
		e.order.Remove(front)
		delete(e.entries, id)
		removed++
	}
	return removed
}

// Run sweeps expired ids every interval until ctx is done.
func (e *Events) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}
