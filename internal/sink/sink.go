// Package sink provides destinations for capture output: an async line writer,
// a zap-backed structured sink, an in-memory collector and a redacting
// wrapper. Every sink satisfies hooks.Sink; most also take whole records.
package sink

import (
	"github.com/zboralski/cryptotap/internal/hooks"
	"github.com/zboralski/cryptotap/internal/trace"
)

// forward hands r to s as a record if s accepts records, else as lines.
func forward(s hooks.Sink, r *trace.Record) {
	if rs, ok := s.(hooks.RecordSink); ok {
		rs.EmitRecord(r)
		return
	}
	for _, line := range r.Lines() {
		s.Emit(line)
	}
}

// Multi fans out to several sinks.
type Multi []hooks.Sink

func (m Multi) Emit(line string) {
	for _, s := range m {
		s.Emit(line)
	}
}

func (m Multi) EmitRecord(r *trace.Record) {
	for _, s := range m {
		forward(s, r)
	}
}
