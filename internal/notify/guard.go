// Package notify provides an idempotency guard for one-shot notifications.
// Proactive nudges (standups, re-engagement DMs) are fire-and-forget side
// effects; the guard keys them by sender+event so a learner never receives
// the same nudge twice inside the dedupe window, regardless of transport.
package notify

import (
	"sync"
	"time"

	"peerloop/internal/logging"
)

// Guard tracks recently issued one-shot notifications.
type Guard struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	maxSize int
	now     func() time.Time // overridable for tests
}

// NewGuard creates a guard with the given dedupe window.
func NewGuard(ttl time.Duration) *Guard {
	return &Guard{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: 10000,
		now:     time.Now,
	}
}

// key builds the idempotency key for a sender/event pair.
func key(sender, event string) string {
	return sender + "|" + event
}

// ShouldSend reports whether the notification may be issued, and records it
// when allowed. A second call inside the window returns false.
func (g *Guard) ShouldSend(sender, event string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key(sender, event)
	if issued, ok := g.seen[k]; ok && g.now().Sub(issued) < g.ttl {
		logging.Notify("suppressed duplicate %s for %s", event, sender)
		return false
	}

	if len(g.seen) >= g.maxSize {
		g.evictExpired()
	}
	g.seen[k] = g.now()
	return true
}

// Reset forgets a sender/event pair, allowing the next send through.
func (g *Guard) Reset(sender, event string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key(sender, event))
}

// evictExpired drops entries older than the window. Called with the lock
// held.
func (g *Guard) evictExpired() {
	cutoff := g.now().Add(-g.ttl)
	for k, issued := range g.seen {
		if issued.Before(cutoff) {
			delete(g.seen, k)
		}
	}
}
