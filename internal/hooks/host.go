package hooks

import (
	"github.com/zboralski/cryptotap/internal/trace"
)

// TypeHandle is a host's reference to a resolved target type.
type TypeHandle interface {
	Name() string
}

// Callable is one method implementation. Constructors and instance methods
// receive the object in this; static methods receive nil. A non-nil error is
// a fault raised by the implementation.
type Callable func(this any, args []any) (any, error)

// Host is the instrumentation runtime the registry installs into. It owns the
// real dispatch table; the registry only swaps entries in it.
type Host interface {
	ResolveType(name string) (TypeHandle, error)
	Overload(t TypeHandle, method string, sig Signature) (Callable, error)
	// SetImplementation installs impl for the overload. A nil impl restores
	// the original.
	SetImplementation(t TypeHandle, method string, sig Signature, impl Callable) error
	StackTrace() string
}

// Interceptable is one overload whose original can be called and whose
// installed implementation can be replaced and restored.
type Interceptable interface {
	Original() Callable
	Install(replacement Callable) error
	Restore() error
}

// overload adapts a Host overload to Interceptable.
type overload struct {
	host     Host
	handle   TypeHandle
	key      Key
	original Callable
}

// NewOverload resolves key on host and captures its original implementation.
func NewOverload(host Host, key Key) (Interceptable, error) {
	handle, err := host.ResolveType(key.Type)
	if err != nil {
		return nil, &BindError{Key: key, Op: "resolve", Err: err}
	}
	orig, err := host.Overload(handle, key.Method, key.Signature)
	if err != nil {
		return nil, &BindError{Key: key, Op: "overload", Err: err}
	}
	return &overload{host: host, handle: handle, key: key, original: orig}, nil
}

func (o *overload) Original() Callable {
	return o.original
}

func (o *overload) Install(replacement Callable) error {
	if err := o.host.SetImplementation(o.handle, o.key.Method, o.key.Signature, replacement); err != nil {
		return &BindError{Key: o.key, Op: "install", Err: err}
	}
	return nil
}

func (o *overload) Restore() error {
	if err := o.host.SetImplementation(o.handle, o.key.Method, o.key.Signature, nil); err != nil {
		return &BindError{Key: o.key, Op: "restore", Err: err}
	}
	return nil
}

// Sink receives rendered diagnostic lines. Emit must not block the caller
// meaningfully.
type Sink interface {
	Emit(line string)
}

// RecordSink is implemented by sinks that want whole records instead of lines.
type RecordSink interface {
	Sink
	EmitRecord(r *trace.Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string)

func (f SinkFunc) Emit(line string) { f(line) }

// Discard drops every line.
var Discard Sink = SinkFunc(func(string) {})
