package hooks

import (
	"math"
	"math/big"
	"strings"
)

// exporter is implemented by script engine values that wrap a Go value.
type exporter interface {
	Export() any
}

// Unwrap returns the Go value behind a script engine value, or v itself.
func Unwrap(v any) any {
	if e, ok := v.(exporter); ok {
		return e.Export()
	}
	return v
}

// ToString returns v as a string.
func ToString(v any) (string, bool) {
	s, ok := Unwrap(v).(string)
	return s, ok
}

// ToBytes converts the byte-array shapes hosts hand over into a fresh []byte.
// Signed values (a Java byte[]) and numbers from JSON or a JS engine are
// accepted; values outside 0-255 wrap modulo 256.
func ToBytes(v any) ([]byte, bool) {
	switch b := Unwrap(v).(type) {
	case []byte:
		out := make([]byte, len(b))
		copy(out, b)
		return out, true
	case []int8:
		out := make([]byte, len(b))
		for i, x := range b {
			out[i] = byte(x)
		}
		return out, true
	case []int64:
		out := make([]byte, len(b))
		for i, x := range b {
			out[i] = byte(x)
		}
		return out, true
	case []int:
		out := make([]byte, len(b))
		for i, x := range b {
			out[i] = byte(x)
		}
		return out, true
	case []any:
		out := make([]byte, len(b))
		for i, x := range b {
			n, ok := ToInt(x)
			if !ok {
				return nil, false
			}
			out[i] = byte(n)
		}
		return out, true
	}
	return nil, false
}

// ToInt converts integral numbers of any width, and integral floats, to int.
func ToInt(v any) (int, bool) {
	switch n := Unwrap(v).(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// ToBigInt accepts *big.Int or a hex string (optionally "0x"-prefixed or
// negative), the form agents use to ship arbitrary-precision integers.
func ToBigInt(v any) (*big.Int, bool) {
	switch n := Unwrap(v).(type) {
	case *big.Int:
		return new(big.Int).Set(n), true
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(n, "-"), "0x")
		x, ok := new(big.Int).SetString(s, 16)
		if !ok {
			return nil, false
		}
		if strings.HasPrefix(n, "-") {
			x.Neg(x)
		}
		return x, true
	}
	return nil, false
}
