package sink

import (
	"sync"

	"github.com/zboralski/cryptotap/internal/trace"
)

// Collector keeps records in memory, up to a limit. It backs tests and the
// demo summary; it is not a persistence layer.
type Collector struct {
	mu      sync.Mutex
	records []*trace.Record
	lines   []string
	limit   int
}

// NewCollector keeps at most limit records; limit <= 0 means unbounded.
func NewCollector(limit int) *Collector {
	return &Collector{limit: limit}
}

func (c *Collector) Emit(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *Collector) EmitRecord(r *trace.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && len(c.records) >= c.limit {
		return
	}
	c.records = append(c.records, r)
}

// Records returns a copy of the collected records.
func (c *Collector) Records() []*trace.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*trace.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Lines returns the plain lines emitted directly.
func (c *Collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// ByTag groups record counts by primary tag.
func (c *Collector) ByTag() map[trace.Tag]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[trace.Tag]int)
	for _, r := range c.records {
		out[r.Tags.Primary()]++
	}
	return out
}

// Len returns the number of collected records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Reset drops everything collected.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
	c.lines = nil
}
