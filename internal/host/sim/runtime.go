// Package sim is an in-process managed runtime with a swappable method
// dispatch table. It ships Go implementations of the Java crypto classes the
// catalog targets, so sessions can be exercised without a device.
//
// Every call goes through the dispatch table. Installing an implementation
// replaces the table entry; the original stays reachable through Overload.
package sim

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zboralski/cryptotap/internal/hooks"
)

// Class is a loaded type. It is the runtime's hooks.TypeHandle.
type Class struct {
	name    string
	methods map[method]*slot
}

// Name returns the fully qualified class name.
func (c *Class) Name() string {
	return c.name
}

type method struct {
	name string
	desc string // comma separated parameter descriptors
}

type slot struct {
	original hooks.Callable
	current  hooks.Callable
}

// Runtime is the dispatch table. All methods are safe for concurrent use.
type Runtime struct {
	mu      sync.RWMutex
	classes map[string]*Class
	calls   atomic.Int64
}

// New returns an empty runtime.
func New() *Runtime {
	return &Runtime{classes: make(map[string]*Class)}
}

// NewStandard returns a runtime with the JCA classes and the AES helper loaded.
func NewStandard() *Runtime {
	rt := New()
	loadJCA(rt)
	loadHelper(rt)
	return rt
}

// Define adds or replaces a method implementation, loading the class if
// needed. Replacing a method resets any installed implementation.
func (rt *Runtime) Define(typ, name, desc string, impl hooks.Callable) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	c, ok := rt.classes[typ]
	if !ok {
		c = &Class{name: typ, methods: make(map[method]*slot)}
		rt.classes[typ] = c
	}
	c.methods[method{name, desc}] = &slot{original: impl, current: impl}
}

// Unload removes a class. Calls to it fail with NoClassDefFoundError.
func (rt *Runtime) Unload(typ string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.classes, typ)
}

// Classes returns the loaded class names in sorted order.
func (rt *Runtime) Classes() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]string, 0, len(rt.classes))
	for name := range rt.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Calls returns the number of dispatched invocations.
func (rt *Runtime) Calls() int64 {
	return rt.calls.Load()
}

// ResolveType implements hooks.Host.
func (rt *Runtime) ResolveType(name string) (hooks.TypeHandle, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	c, ok := rt.classes[name]
	if !ok {
		return nil, fmt.Errorf("class %s: %w", name, hooks.ErrTypeNotFound)
	}
	return c, nil
}

// Overload implements hooks.Host. It returns the original implementation,
// regardless of what is installed.
func (rt *Runtime) Overload(t hooks.TypeHandle, name string, sig hooks.Signature) (hooks.Callable, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	s, err := rt.slotLocked(t, name, sig.String())
	if err != nil {
		return nil, err
	}
	return s.original, nil
}

// SetImplementation implements hooks.Host.
func (rt *Runtime) SetImplementation(t hooks.TypeHandle, name string, sig hooks.Signature, impl hooks.Callable) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	s, err := rt.slotLocked(t, name, sig.String())
	if err != nil {
		return err
	}
	if impl == nil {
		impl = s.original
	}
	s.current = impl
	return nil
}

func (rt *Runtime) slotLocked(t hooks.TypeHandle, name, desc string) (*slot, error) {
	c, ok := t.(*Class)
	if !ok || rt.classes[c.name] != c {
		return nil, fmt.Errorf("class %v: %w", t, hooks.ErrTypeNotFound)
	}
	s, ok := c.methods[method{name, desc}]
	if !ok {
		return nil, fmt.Errorf("%s.%s(%s): %w", c.name, name, desc, hooks.ErrOverloadNotFound)
	}
	return s, nil
}

// StackTrace implements hooks.Host. Frames are rendered like a managed
// runtime's throwable dump.
func (rt *Runtime) StackTrace() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	sb.WriteString("java.lang.Throwable\n")
	for {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "\tat %s(%s:%d)\n", f.Function, filepath.Base(f.File), f.Line)
		if !more {
			break
		}
	}
	return sb.String()
}

// Invoke dispatches through the table. The lock is released before the
// implementation runs so installed trampolines may call back into the runtime.
func (rt *Runtime) Invoke(typ, name, desc string, this any, args []any) (any, error) {
	rt.mu.RLock()
	c, ok := rt.classes[typ]
	if !ok {
		rt.mu.RUnlock()
		return nil, throw(NoClassDefFound, "%s", typ)
	}
	s, ok := c.methods[method{name, desc}]
	var impl hooks.Callable
	if ok {
		impl = s.current
	}
	rt.mu.RUnlock()

	if impl == nil {
		return nil, throw(NoSuchMethod, "%s.%s(%s)", typ, name, desc)
	}
	rt.calls.Add(1)
	return impl(this, args)
}

// New allocates an object of typ and runs the constructor overload sig.
func (rt *Runtime) New(typ string, sig hooks.Signature, args ...any) (*Object, error) {
	if err := sig.Check(args); err != nil {
		return nil, throw(IllegalArgument, "%v", err)
	}
	obj := &Object{class: typ}
	if _, err := rt.Invoke(typ, hooks.Constructor, sig.String(), obj, args); err != nil {
		return nil, err
	}
	return obj, nil
}

// Call invokes an instance method overload on obj.
func (rt *Runtime) Call(obj *Object, name string, sig hooks.Signature, args ...any) (any, error) {
	if obj == nil {
		return nil, throw(NullPointer, "invoke %s on null", name)
	}
	if err := sig.Check(args); err != nil {
		return nil, throw(IllegalArgument, "%v", err)
	}
	return rt.Invoke(obj.class, name, sig.String(), obj, args)
}

// CallStatic invokes a static method overload.
func (rt *Runtime) CallStatic(typ, name string, sig hooks.Signature, args ...any) (any, error) {
	if err := sig.Check(args); err != nil {
		return nil, throw(IllegalArgument, "%v", err)
	}
	return rt.Invoke(typ, name, sig.String(), nil, args)
}

// CallDesc invokes an instance method by raw descriptor. It reaches methods
// outside the Signature set, such as Cipher.init.
func (rt *Runtime) CallDesc(obj *Object, name, desc string, args ...any) (any, error) {
	if obj == nil {
		return nil, throw(NullPointer, "invoke %s on null", name)
	}
	return rt.Invoke(obj.class, name, desc, obj, args)
}
