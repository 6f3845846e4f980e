package sink

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zboralski/cryptotap/internal/trace"
)

// Writer is an async, non-blocking line sink. Entries are queued on a
// buffered channel and written by one goroutine that flushes on a ticker. A
// record is queued as one entry so its lines are never split by concurrent
// callers. When the queue is full the entry is dropped and its lines counted;
// instrumented code never waits on output.
type Writer struct {
	ch     chan []string
	done   chan struct{}
	writer *bufio.Writer
	format func(string) string
	flush  time.Duration

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBuffer sets the queue length (default 2048).
func WithBuffer(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.ch = make(chan []string, n)
		}
	}
}

// WithFlushInterval sets how often buffered output is flushed (default 50ms).
func WithFlushInterval(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.flush = d
		}
	}
}

// WithFormat applies fn to every line before it is written, e.g. colorizing.
func WithFormat(fn func(string) string) WriterOption {
	return func(w *Writer) { w.format = fn }
}

// NewWriter starts a writer on out. Close it to drain the queue.
func NewWriter(out io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{
		ch:     make(chan []string, 2048),
		done:   make(chan struct{}),
		writer: bufio.NewWriterSize(out, 64*1024),
		flush:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	ticker := time.NewTicker(w.flush)
	defer ticker.Stop()
	for {
		select {
		case lines, ok := <-w.ch:
			if !ok {
				w.writer.Flush()
				close(w.done)
				return
			}
			for _, line := range lines {
				if w.format != nil {
					line = w.format(line)
				}
				w.writer.WriteString(line)
				w.writer.WriteByte('\n')
			}
		case <-ticker.C:
			w.writer.Flush()
		}
	}
}

// Emit queues a line, dropping it if the queue is full or the writer closed.
func (w *Writer) Emit(line string) {
	w.queue([]string{line})
}

// EmitRecord queues the rendered record as a single entry.
func (w *Writer) EmitRecord(r *trace.Record) {
	w.queue(r.Lines())
}

func (w *Writer) queue(lines []string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(int64(len(lines)))
		return
	}
	select {
	case w.ch <- lines:
	default:
		w.dropped.Add(int64(len(lines)))
	}
}

// Dropped returns how many lines were discarded.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Close drains queued lines, flushes and stops the writer. It is idempotent.
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()
	<-w.done
}
