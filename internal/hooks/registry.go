// Package hooks provides the interception registry: per (type, method,
// overload) bindings that call the original implementation, hand its inputs
// and result to an observer, and return the result unchanged.
//
// Features:
//   - Pass-through trampolines: original results and errors reach the caller untouched
//   - Observer and sink failures are recovered and logged, never propagated
//   - Re-binding swaps the observer atomically; the installed trampoline stays
//   - Self-registering catalog definitions via init() (see Catalog)
package hooks

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/trace"
)

// State is the lifecycle state of a binding.
type State int

const (
	Unbound State = iota
	Bound
)

func (s State) String() string {
	if s == Bound {
		return "bound"
	}
	return "unbound"
}

// Binding is one installed interception. It owns exactly one observer.
type Binding struct {
	key      Key
	category string
	target   Interceptable
	observer atomic.Pointer[Observer]
	reg      *Registry
}

// Key returns the binding key.
func (b *Binding) Key() Key {
	return b.key
}

// Original returns the implementation the trampoline forwards to.
func (b *Binding) Original() Callable {
	return b.target.Original()
}

// invoke is the trampoline installed into the host.
func (b *Binding) invoke(this any, args []any) (any, error) {
	r := b.reg
	chs := r.Channels()

	var stack string
	if chs.Enabled(ChanStack) {
		stack = r.stackTrace(b)
	}

	result, err := b.target.Original()(this, args)
	if err != nil {
		r.logger().Fault(b.key.String(), err)
		return result, err
	}

	r.observe(b, this, args, result, stack, chs)
	return result, nil
}

// Option configures a Registry.
type Option func(*Registry)

// WithChannels sets the initially enabled channels.
func WithChannels(chs Channels) Option {
	return func(r *Registry) { r.channels.Store(&chs) }
}

// WithLogger sets the logger; the global logger is used otherwise.
func WithLogger(l *glog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithEnricher replaces trace.DefaultEnricher.
func WithEnricher(e trace.Enricher) Option {
	return func(r *Registry) { r.enrich = e }
}

// Registry holds the active bindings for one host.
type Registry struct {
	mu       sync.Mutex
	bindings map[Key]*Binding

	host     Host
	sink     Sink
	log      *glog.Logger
	enrich   trace.Enricher
	channels atomic.Pointer[Channels]
	faults   atomic.Int64
}

// NewRegistry creates a registry that installs into host and emits to sink.
func NewRegistry(host Host, sink Sink, opts ...Option) *Registry {
	if sink == nil {
		sink = Discard
	}
	r := &Registry{
		bindings: make(map[Key]*Binding),
		host:     host,
		sink:     sink,
		enrich:   trace.DefaultEnricher,
	}
	none := NewChannels()
	r.channels.Store(&none)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind installs obs for key. The first Bind resolves the overload and installs
// a trampoline; binding an already bound key only swaps the observer.
func (r *Registry) Bind(key Key, obs Observer) error {
	return r.bind(key, "", obs)
}

// BindDefinition binds a catalog definition.
func (r *Registry) BindDefinition(def Definition) error {
	return r.bind(def.Key(), def.Category, def.Observer)
}

func (r *Registry) bind(key Key, category string, obs Observer) error {
	if !key.Signature.Valid() {
		return &BindError{Key: key, Op: "resolve", Err: ErrInvalidKey}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.bindings[key]; ok {
		b.observer.Store(&obs)
		r.logger().Bound(key.String(), true)
		return nil
	}

	target, err := NewOverload(r.host, key)
	if err != nil {
		return err
	}

	b := &Binding{key: key, category: category, target: target, reg: r}
	b.observer.Store(&obs)
	if err := target.Install(b.invoke); err != nil {
		return err
	}
	r.bindings[key] = b
	r.logger().Bound(key.String(), false)
	return nil
}

// Unbind restores the original implementation for key.
func (r *Registry) Unbind(key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbindLocked(key)
}

func (r *Registry) unbindLocked(key Key) error {
	b, ok := r.bindings[key]
	if !ok {
		return &BindError{Key: key, Op: "restore", Err: ErrNotBound}
	}
	if err := b.target.Restore(); err != nil {
		return err
	}
	delete(r.bindings, key)
	r.logger().Unbound(key.String())
	return nil
}

// RestoreAll unbinds every binding. Failures are combined; bindings that
// failed to restore stay bound.
func (r *Registry) RestoreAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for _, key := range r.sortedKeysLocked() {
		err = multierr.Append(err, r.unbindLocked(key))
	}
	return err
}

// State returns the state of key.
func (r *Registry) State(key Key) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[key]; ok {
		return Bound
	}
	return Unbound
}

// Lookup returns the active binding for key.
func (r *Registry) Lookup(key Key) (*Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[key]
	return b, ok
}

// Count returns the number of active bindings.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// Keys returns the active binding keys in sorted order.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedKeysLocked()
}

func (r *Registry) sortedKeysLocked() []Key {
	keys := make([]Key, 0, len(r.bindings))
	for k := range r.bindings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Channels returns the enabled channel set.
func (r *Registry) Channels() Channels {
	return *r.channels.Load()
}

// SetChannels replaces the enabled channel set. Invocations in flight keep
// the set they started with.
func (r *Registry) SetChannels(chs Channels) {
	r.channels.Store(&chs)
}

// Faults returns how many observer or sink failures were recovered.
func (r *Registry) Faults() int64 {
	return r.faults.Load()
}

func (r *Registry) logger() *glog.Logger {
	if r.log != nil {
		return r.log
	}
	return glog.Get()
}

// stackTrace asks the host for the current stack. It is a debug side channel,
// so a failing host yields an empty trace.
func (r *Registry) stackTrace(b *Binding) (stack string) {
	defer func() {
		if p := recover(); p != nil {
			r.faults.Add(1)
			r.logger().ObserverFault(b.key.String(), p)
			stack = ""
		}
	}()
	return r.host.StackTrace()
}

// observe runs the observer and emits the record. Nothing here may reach the
// instrumented caller.
func (r *Registry) observe(b *Binding, this any, args []any, result any, stack string, chs Channels) {
	defer func() {
		if p := recover(); p != nil {
			r.faults.Add(1)
			r.logger().ObserverFault(b.key.String(), p)
		}
	}()

	c := NewCapture(b.key, b.category, this, args, result, chs)
	if obs := b.observer.Load(); obs != nil && *obs != nil {
		(*obs)(c)
	}

	rec := c.Record()
	rec.Stack = stack
	Emit(r.sink, rec, r.enrich)
}

// Emit enriches a non-empty record and hands it to sink.
func Emit(sink Sink, rec *trace.Record, enrich trace.Enricher) {
	if rec.Empty() {
		return
	}
	if enrich != nil {
		enrich(rec)
	}
	if rs, ok := sink.(RecordSink); ok {
		rs.EmitRecord(rec)
		return
	}
	for _, line := range rec.Lines() {
		sink.Emit(line)
	}
}

// String summarizes the registry for debugging.
func (r *Registry) String() string {
	return fmt.Sprintf("hooks.Registry{bindings: %d, channels: %v}", r.Count(), r.Channels().List())
}
