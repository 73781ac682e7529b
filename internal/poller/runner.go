// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run drives ticks until ctx is done or the coordinator is closed.
// One goroutine. No overlap: a slow tick delays the next one, the ticker
// drops what was missed. Ticks are skipped while nobody is subscribed.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.tick(ctx)
		case <-c.refresh:
			c.tick(ctx)
		}
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	if c.Listeners() == 0 || c.isClosed() || ctx.Err() != nil {
		return
	}
	c.PollOnce(ctx)
}
