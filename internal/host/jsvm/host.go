// Package jsvm hosts target types written in JavaScript on a goja runtime.
//
// Scripts declare classes with defineClass(name, methods). Each method is a
// property named "method(descriptors)", e.g. "update([B)", so overloads of
// one method live side by side. Installing an implementation replaces the
// property; restoring puts the original function value back.
//
// A goja runtime is single-threaded. Entry points (Eval, Invoke, Construct
// and the hooks.Host methods) serialize on one mutex. Callables returned by
// Overload and the installed trampolines run inside a script call that
// already holds it.
package jsvm

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/zboralski/cryptotap/internal/hooks"
	glog "github.com/zboralski/cryptotap/internal/log"
)

// ErrNotCallable is returned when a method property is not a function.
var ErrNotCallable = errors.New("property is not callable")

// Class is a script-defined type. It is the host's hooks.TypeHandle.
type Class struct {
	name string
	obj  *goja.Object
}

// Name returns the class name passed to defineClass.
func (c *Class) Name() string {
	return c.name
}

type slotKey struct {
	class string
	prop  string
}

// Host is a goja-backed hooks.Host.
type Host struct {
	mu        sync.Mutex
	vm        *goja.Runtime
	classes   map[string]*Class
	originals map[slotKey]goja.Value // saved while an implementation is installed
	log       *glog.Logger
}

// New creates a host with an empty runtime.
func New() *Host {
	h := &Host{
		vm:        goja.New(),
		classes:   make(map[string]*Class),
		originals: make(map[slotKey]goja.Value),
		log:       glog.Get(),
	}
	h.vm.Set("defineClass", h.defineClass)
	h.vm.Set("log", func(msg string) {
		h.log.Debug(msg, glog.Fn("jsvm"))
	})
	return h
}

// PropName renders the property a method overload is stored under.
func PropName(method string, sig hooks.Signature) string {
	return method + "(" + sig.String() + ")"
}

// defineClass(name, methods) registers methods as the class object.
func (h *Host) defineClass(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	obj, ok := call.Argument(1).(*goja.Object)
	if name == "" || !ok {
		panic(h.vm.NewTypeError("defineClass(name, methods): bad arguments"))
	}
	h.classes[name] = &Class{name: name, obj: obj}
	return obj
}

// Eval runs a script.
func (h *Host) Eval(name, src string) (goja.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vm.RunScript(name, src)
}

// Invoke calls a method overload with this as the receiver.
func (h *Host) Invoke(typ, method string, sig hooks.Signature, this any, args ...any) (goja.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.classes[typ]
	if !ok {
		return nil, fmt.Errorf("class %s: %w", typ, hooks.ErrTypeNotFound)
	}
	fn, err := h.method(c, PropName(method, sig))
	if err != nil {
		return nil, err
	}
	return fn(h.toValue(this), h.toValues(args)...)
}

// Construct allocates an object and runs the constructor overload sig on it.
func (h *Host) Construct(typ string, sig hooks.Signature, args ...any) (*goja.Object, error) {
	h.mu.Lock()
	obj := h.vm.NewObject()
	h.mu.Unlock()

	if _, err := h.Invoke(typ, hooks.Constructor, sig, obj, args...); err != nil {
		return nil, err
	}
	return obj, nil
}

func (h *Host) method(c *Class, prop string) (goja.Callable, error) {
	v := c.obj.Get(prop)
	if v == nil || goja.IsUndefined(v) {
		return nil, fmt.Errorf("%s.%s: %w", c.name, prop, hooks.ErrOverloadNotFound)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", c.name, prop, ErrNotCallable)
	}
	return fn, nil
}

// toValue passes script values through untouched so receivers and buffers
// keep their identity.
func (h *Host) toValue(v any) goja.Value {
	if jv, ok := v.(goja.Value); ok {
		return jv
	}
	if v == nil {
		return goja.Undefined()
	}
	return h.vm.ToValue(v)
}

func (h *Host) toValues(args []any) []goja.Value {
	out := make([]goja.Value, len(args))
	for i, a := range args {
		out[i] = h.toValue(a)
	}
	return out
}

// ResolveType implements hooks.Host.
func (h *Host) ResolveType(name string) (hooks.TypeHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.classes[name]
	if !ok {
		return nil, fmt.Errorf("class %s: %w", name, hooks.ErrTypeNotFound)
	}
	return c, nil
}

// Overload implements hooks.Host. The returned Callable must only be invoked
// while a script call is running, as trampolines do.
func (h *Host) Overload(t hooks.TypeHandle, method string, sig hooks.Signature) (hooks.Callable, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, err := h.class(t)
	if err != nil {
		return nil, err
	}
	prop := PropName(method, sig)
	var fn goja.Callable
	if orig, ok := h.originals[slotKey{c.name, prop}]; ok {
		fn, _ = goja.AssertFunction(orig)
	} else if fn, err = h.method(c, prop); err != nil {
		return nil, err
	}

	return func(this any, args []any) (any, error) {
		res, err := fn(h.toValue(this), h.toValues(args)...)
		if err != nil {
			return nil, err
		}
		return res, nil
	}, nil
}

// SetImplementation implements hooks.Host.
func (h *Host) SetImplementation(t hooks.TypeHandle, method string, sig hooks.Signature, impl hooks.Callable) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, err := h.class(t)
	if err != nil {
		return err
	}
	prop := PropName(method, sig)
	key := slotKey{c.name, prop}

	if impl == nil {
		orig, ok := h.originals[key]
		if !ok {
			return nil
		}
		delete(h.originals, key)
		return c.obj.Set(prop, orig)
	}

	if _, ok := h.originals[key]; !ok {
		if _, err := h.method(c, prop); err != nil {
			return err
		}
		h.originals[key] = c.obj.Get(prop)
	}
	return c.obj.Set(prop, h.trampoline(impl))
}

// trampoline exposes impl as a script function. Faults are rethrown as the
// original thrown value when there is one.
func (h *Host) trampoline(impl hooks.Callable) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a
		}
		res, err := impl(call.This, args)
		if err != nil {
			var ex *goja.Exception
			if errors.As(err, &ex) {
				panic(ex.Value())
			}
			panic(h.vm.NewGoError(err))
		}
		return h.toValue(res)
	}
}

func (h *Host) class(t hooks.TypeHandle) (*Class, error) {
	c, ok := t.(*Class)
	if !ok || h.classes[c.name] != c {
		return nil, fmt.Errorf("class %v: %w", t, hooks.ErrTypeNotFound)
	}
	return c, nil
}

// StackTrace implements hooks.Host. It reports the script call stack and is
// only meaningful inside a script call.
func (h *Host) StackTrace() string {
	frames := h.vm.CaptureCallStack(0, nil)
	var sb strings.Builder
	for _, f := range frames {
		p := f.Position()
		fmt.Fprintf(&sb, "\tat %s (%s:%d:%d)\n", f.FuncName(), f.SrcName(), p.Line, p.Column)
	}
	return sb.String()
}
