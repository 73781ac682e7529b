// internal/poller/subscribe.go
package poller

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/status"
)

// Subscribe registers fn for every published snapshot.
// The returned func removes it; calling it again is a no-op.
// When the last subscriber leaves, the link is closed and Run stops ticking
// until someone subscribes again.
func (c *Coordinator) Subscribe(fn func(status.Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}
}

// Listeners returns the current subscriber count.
func (c *Coordinator) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Coordinator) unsubscribe(id uint64) {
	c.mu.Lock()
	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			break
		}
	}
	last := len(c.listeners) == 0
	c.mu.Unlock()

	if last {
		c.log.Debug("no listeners left, closing link")
		c.closeLink()
	}
}

// snapshotListeners copies the listener set. Caller holds c.mu.
func (c *Coordinator) snapshotListeners() []listener {
	if len(c.listeners) == 0 {
		return nil
	}
	out := make([]listener, len(c.listeners))
	copy(out, c.listeners)
	return out
}

// publish delivers snap outside any lock. Each listener gets its own copy.
func (c *Coordinator) publish(targets []listener, snap status.Snapshot) {
	for _, l := range targets {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("listener panicked", zap.Any("panic", r))
				}
			}()
			l.fn(snap.Copy())
		}()
	}
}
