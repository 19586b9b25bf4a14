// ABOUTME: Non-blocking per-key guard for work that should not overlap
// ABOUTME: Used to drop a shop sign refresh while another is in flight for the same room

package dedupe

import "sync"

// Guard lets at most one holder per key proceed at a time.
type Guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{busy: make(map[string]struct{})}
}

// TryAcquire claims key. It returns false without blocking if key is already
// held; otherwise the returned release func must be called when done.
func (g *Guard) TryAcquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.busy[key]; held {
		return nil, false
	}
	g.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, true
}
