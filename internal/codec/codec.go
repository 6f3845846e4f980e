// Package codec renders opaque byte buffers (keys, IVs, digests, ciphertext) as
// text, hex and Base64, and converts between those representations.
//
// Every function is pure and safe for concurrent use. Text here means the
// code-unit view a managed runtime has of a string: one code unit per byte when
// decoding, big-endian code-unit bytes when encoding. It is not UTF-8.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedInput is returned when input cannot be interpreted under the
// operation's contract, such as an odd-length hex string.
var ErrMalformedInput = errors.New("malformed input")

// Encoding names a representation of byte data.
type Encoding int

const (
	Raw Encoding = iota
	Text
	Hex
	Base64
)

var encodingNames = map[Encoding]string{
	Raw:    "raw",
	Text:   "text",
	Hex:    "hex",
	Base64: "base64",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("encoding(%d)", int(e))
}

// ParseEncoding maps a name ("raw", "text", "hex", "base64") to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for enc, n := range encodingNames {
		if n == lower {
			return enc, nil
		}
	}
	return Raw, fmt.Errorf("unknown encoding %q: %w", name, ErrMalformedInput)
}

// Encode renders b in the given encoding.
func Encode(enc Encoding, b []byte) string {
	switch enc {
	case Text:
		return BytesToString(b)
	case Hex:
		return BytesToHex(b)
	case Base64:
		return BytesToBase64(b)
	default:
		return fmt.Sprint(b)
	}
}
