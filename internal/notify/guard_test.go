package notify

import (
	"sync"
	"testing"
	"time"
)

// fakeClock drives the guard's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestGuard(ttl time.Duration) (*Guard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	g := NewGuard(ttl)
	g.now = clock.Now
	return g, clock
}

func TestShouldSendOncePerWindow(t *testing.T) {
	g, clock := newTestGuard(20 * time.Hour)

	if !g.ShouldSend("l1", "daily_standup") {
		t.Fatal("first send should be allowed")
	}
	if g.ShouldSend("l1", "daily_standup") {
		t.Fatal("duplicate inside the window should be suppressed")
	}

	clock.Advance(19 * time.Hour)
	if g.ShouldSend("l1", "daily_standup") {
		t.Fatal("still inside the window")
	}

	clock.Advance(2 * time.Hour)
	if !g.ShouldSend("l1", "daily_standup") {
		t.Fatal("window elapsed, send should be allowed again")
	}
}

func TestKeysAreScopedBySenderAndEvent(t *testing.T) {
	g, _ := newTestGuard(time.Hour)

	g.ShouldSend("l1", "daily_standup")

	if !g.ShouldSend("l2", "daily_standup") {
		t.Error("different sender must not be suppressed")
	}
	if !g.ShouldSend("l1", "re_engagement") {
		t.Error("different event must not be suppressed")
	}
}

func TestReset(t *testing.T) {
	g, _ := newTestGuard(time.Hour)

	g.ShouldSend("l1", "daily_standup")
	g.Reset("l1", "daily_standup")
	if !g.ShouldSend("l1", "daily_standup") {
		t.Error("reset should allow the next send")
	}
}

func TestEvictionKeepsLiveEntries(t *testing.T) {
	g, clock := newTestGuard(time.Hour)
	g.maxSize = 2

	g.ShouldSend("old", "e")
	clock.Advance(2 * time.Hour) // "old" expires
	g.ShouldSend("live", "e")
	g.ShouldSend("another", "e") // triggers eviction of "old"

	if g.ShouldSend("live", "e") {
		t.Error("live entry evicted")
	}
	if !g.ShouldSend("old", "e") {
		t.Error("expired entry should have been evicted and re-allowed")
	}
}

func TestGuardIsConcurrencySafe(t *testing.T) {
	g, _ := newTestGuard(time.Hour)

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- g.ShouldSend("l1", "daily_standup")
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("exactly one concurrent send should win, got %d", count)
	}
}
