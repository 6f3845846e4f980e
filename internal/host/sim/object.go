package sim

import (
	"fmt"
	"sync"
)

// Exception classes raised by the built-in implementations.
const (
	IllegalArgument  = "java.lang.IllegalArgumentException"
	IllegalState     = "java.lang.IllegalStateException"
	NullPointer      = "java.lang.NullPointerException"
	NoSuchMethod     = "java.lang.NoSuchMethodError"
	NoClassDefFound  = "java.lang.NoClassDefFoundError"
	NoSuchAlgorithm  = "java.security.NoSuchAlgorithmException"
	InvalidKey       = "java.security.InvalidKeyException"
	BadPadding       = "javax.crypto.BadPaddingException"
	IllegalBlockSize = "javax.crypto.IllegalBlockSizeException"
)

// Exception is a fault raised inside the runtime.
type Exception struct {
	Class   string
	Message string
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.Class
	}
	return e.Class + ": " + e.Message
}

func throw(class, format string, args ...any) error {
	return &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Object is an instance of a runtime class. Its state is only touched by the
// class's own implementations.
type Object struct {
	class string
	mu    sync.Mutex
	state any
}

// Class returns the object's class name.
func (o *Object) Class() string {
	return o.class
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%p", o.class, o)
}

// receiver returns this as an object with state of type T, locked. Callers
// must unlock.
func receiver[T any](this any) (*Object, T, error) {
	var zero T
	o, ok := this.(*Object)
	if !ok || o == nil {
		return nil, zero, throw(NullPointer, "receiver is %T", this)
	}
	o.mu.Lock()
	s, ok := o.state.(T)
	if !ok {
		o.mu.Unlock()
		return nil, zero, throw(IllegalState, "%s not initialized", o.class)
	}
	return o, s, nil
}

// construct sets the state of a freshly allocated object.
func construct(this any, state any) error {
	o, ok := this.(*Object)
	if !ok || o == nil {
		return throw(NullPointer, "constructor receiver is %T", this)
	}
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
	return nil
}
