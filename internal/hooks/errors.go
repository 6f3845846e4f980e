package hooks

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrTypeNotFound indicates the host has no type by the requested name.
	ErrTypeNotFound = errors.New("type not found")

	// ErrOverloadNotFound indicates the type has no method with the requested signature.
	ErrOverloadNotFound = errors.New("overload not found")

	// ErrNotBound indicates an unbind of a key that has no active binding.
	ErrNotBound = errors.New("not bound")

	// ErrBadArguments indicates arguments that do not match an overload signature.
	ErrBadArguments = errors.New("arguments do not match signature")

	// ErrInvalidKey indicates a binding key that cannot be parsed.
	ErrInvalidKey = errors.New("invalid binding key")
)

// BindError wraps a host or registry failure with the binding it concerns.
type BindError struct {
	Key Key
	Op  string // "resolve", "overload", "install", "restore"
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
