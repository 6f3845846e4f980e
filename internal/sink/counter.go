package sink

import (
	"sync"

	"github.com/zboralski/cryptotap/internal/trace"
)

// Counter counts records by primary tag without keeping them.
type Counter struct {
	mu    sync.Mutex
	total int
	byTag map[trace.Tag]int
}

func NewCounter() *Counter {
	return &Counter{byTag: make(map[trace.Tag]int)}
}

func (c *Counter) Emit(string) {}

func (c *Counter) EmitRecord(r *trace.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.byTag[r.Tags.Primary()]++
}

// Len returns the number of records seen.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// ByTag returns a copy of the per-tag counts.
func (c *Counter) ByTag() map[trace.Tag]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[trace.Tag]int, len(c.byTag))
	for t, n := range c.byTag {
		out[t] = n
	}
	return out
}
