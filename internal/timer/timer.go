// Package timer provides a keyed registry of cancellable one-shot timers.
//
// Keys are arbitrary strings; the engine scopes them by room code so all
// pending timers of a room can be swept in one call when its phase moves
// on. A timer replaced or cancelled before firing never runs its
// callback, even if the underlying runtime timer had already fired and
// was waiting on the registry lock.
package timer

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	t   *time.Timer
	gen uint64
}

type Coordinator struct {
	mu     sync.Mutex
	gen    uint64
	timers map[string]*entry
}

func NewCoordinator() *Coordinator {
	return &Coordinator{timers: make(map[string]*entry)}
}

// Schedule arms fn to run once after d, replacing any pending timer
// under the same key. The callback runs on its own goroutine.
func (c *Coordinator) Schedule(key string, d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.timers[key]; ok {
		prev.t.Stop()
	}

	c.gen++
	gen := c.gen
	e := &entry{gen: gen}
	e.t = time.AfterFunc(d, func() {
		c.mu.Lock()
		cur, ok := c.timers[key]
		if !ok || cur.gen != gen {
			// Replaced or cancelled while we waited on the lock.
			c.mu.Unlock()
			return
		}
		delete(c.timers, key)
		c.mu.Unlock()
		fn()
	})
	c.timers[key] = e
}

// Cancel stops the pending timer under key, if any.
func (c *Coordinator) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.timers[key]; ok {
		e.t.Stop()
		delete(c.timers, key)
	}
}

// CancelPrefix stops every pending timer whose key starts with prefix.
func (c *Coordinator) CancelPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.timers {
		if strings.HasPrefix(key, prefix) {
			e.t.Stop()
			delete(c.timers, key)
		}
	}
}

// Active reports whether a timer is pending under key.
func (c *Coordinator) Active(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.timers[key]
	return ok
}

// Len returns the number of pending timers.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
