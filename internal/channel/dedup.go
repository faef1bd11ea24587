package channel

import (
	"sync"
	"time"
)

// dedupCache is a TTL set of recently seen message identifiers. A server
// buffering layer may redeliver the same event across reconnects; checking
// identifiers here makes client-observed delivery idempotent without
// server-side sequencing.
type dedupCache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func newDedupCache(window time.Duration) *dedupCache {
	return &dedupCache{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// isDuplicate reports whether the key was seen within the retention window.
// A first sighting is recorded with the current timestamp. An entry older
// than the window counts as a first sighting again.
func (c *dedupCache) isDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.seen[key]; ok && now.Sub(at) <= c.window {
		return true
	}
	c.seen[key] = now
	return false
}

// sweep removes entries older than the retention window.
func (c *dedupCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.window)
	for key, at := range c.seen {
		if at.Before(cutoff) {
			delete(c.seen, key)
		}
	}
}

func (c *dedupCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
