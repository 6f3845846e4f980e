package sink

import (
	"go.uber.org/zap"

	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/trace"
)

// LogSink writes captures as structured zap entries, one per record with one
// field per rendered label.
type LogSink struct {
	log *glog.Logger
}

// NewLogSink creates a sink on l, or on the global logger if l is nil.
func NewLogSink(l *glog.Logger) *LogSink {
	if l == nil {
		l = glog.Get()
	}
	return &LogSink{log: l}
}

func (s *LogSink) Emit(line string) {
	s.log.Capture("", line)
}

func (s *LogSink) EmitRecord(r *trace.Record) {
	fields := make([]zap.Field, 0, len(r.Fields)+4)
	fields = append(fields,
		zap.String("id", r.ID.String()),
		glog.Binding(r.Binding),
		zap.Strings("tags", r.Tags.Strings()),
	)
	for _, f := range r.Fields {
		fields = append(fields, zap.String(f.Label, f.Value))
	}
	if r.Stack != "" {
		fields = append(fields, zap.String("stack", r.Stack))
	}
	s.log.Info("capture", fields...)
}
