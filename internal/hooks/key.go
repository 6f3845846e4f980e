package hooks

import (
	"fmt"
	"strings"
)

// Constructor is the method name hosts use for constructors.
const Constructor = "$init"

// Key identifies one overload of one method on one target type.
type Key struct {
	Type      string
	Method    string
	Signature Signature
}

// String renders the key as "Type.Method(params)".
func (k Key) String() string {
	return k.Type + "." + k.Method + "(" + k.Signature.String() + ")"
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Key{}, fmt.Errorf("%q: %w", s, ErrInvalidKey)
	}
	dot := strings.LastIndexByte(s[:open], '.')
	if dot <= 0 || dot == open-1 {
		return Key{}, fmt.Errorf("%q: %w", s, ErrInvalidKey)
	}
	sig, err := ParseSignature(s[open+1 : len(s)-1])
	if err != nil {
		return Key{}, err
	}
	return Key{Type: s[:dot], Method: s[dot+1 : open], Signature: sig}, nil
}
