package agent

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/zboralski/cryptotap/internal/hooks"
	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/trace"
)

// ErrUnknownBinding indicates a capture for a binding the catalog does not
// define.
var ErrUnknownBinding = errors.New("unknown binding")

// ScriptError is an uncaught error reported by the agent script.
type ScriptError struct {
	Description string
	Stack       string
}

func (e *ScriptError) Error() string {
	return "agent script: " + e.Description
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithChannels sets the enabled channels.
func WithChannels(chs hooks.Channels) DispatcherOption {
	return func(d *Dispatcher) { d.channels.Store(&chs) }
}

// WithLogger sets the logger; the global logger is used otherwise.
func WithLogger(l *glog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

// Dispatcher replays remote captures through catalog observers. The remote
// hook already called its original; the dispatcher only renders.
type Dispatcher struct {
	catalog  *hooks.Catalog
	sink     hooks.Sink
	log      *glog.Logger
	channels atomic.Pointer[hooks.Channels]

	received atomic.Int64
	faults   atomic.Int64
}

// NewDispatcher creates a dispatcher rendering with cat and emitting to sink.
func NewDispatcher(cat *hooks.Catalog, sink hooks.Sink, opts ...DispatcherOption) *Dispatcher {
	if sink == nil {
		sink = hooks.Discard
	}
	d := &Dispatcher{catalog: cat, sink: sink}
	none := hooks.NewChannels()
	d.channels.Store(&none)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) logger() *glog.Logger {
	if d.log != nil {
		return d.log
	}
	return glog.Get()
}

// SetChannels replaces the enabled channels.
func (d *Dispatcher) SetChannels(chs hooks.Channels) {
	d.channels.Store(&chs)
}

// Received returns how many captures were dispatched.
func (d *Dispatcher) Received() int64 { return d.received.Load() }

// Faults returns how many observer failures were recovered.
func (d *Dispatcher) Faults() int64 { return d.faults.Load() }

// Handle processes one raw agent message. Log messages are forwarded to the
// logger; script errors are returned as *ScriptError.
func (d *Dispatcher) Handle(data []byte) error {
	m, err := Decode(data)
	if err != nil {
		return err
	}

	switch m.Kind {
	case KindLog:
		d.logger().Info("agent", zap.String("level", m.Level), zap.String("msg", m.Text))
		return nil
	case KindError:
		return &ScriptError{Description: m.Text, Stack: m.Stack}
	}

	if m.Payload == nil {
		d.logger().Info("agent", zap.String("msg", m.Text))
		return nil
	}
	c, err := DecodeCapture(m.Payload)
	if err != nil {
		return err
	}
	return d.Dispatch(c)
}

// Dispatch renders one capture and emits its record.
func (d *Dispatcher) Dispatch(c *Capture) error {
	def, ok := d.catalog.ByName(c.Binding)
	if !ok {
		return fmt.Errorf("%s: %w", c.Binding, ErrUnknownBinding)
	}
	d.received.Add(1)

	defer func() {
		if p := recover(); p != nil {
			d.faults.Add(1)
			d.logger().ObserverFault(c.Binding, p)
		}
	}()

	chs := *d.channels.Load()
	hc := hooks.NewCapture(def.Key(), def.Category, nil, c.Args, c.Result, chs)
	if def.Observer != nil {
		def.Observer(hc)
	}

	rec := hc.Record()
	if chs.Enabled(hooks.ChanStack) {
		rec.Stack = c.Stack
	}
	hooks.Emit(d.sink, rec, func(r *trace.Record) {
		trace.DefaultEnricher(r)
		r.AddTag(trace.Remote)
	})
	return nil
}
