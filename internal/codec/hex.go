package codec

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// BytesToHex renders b as lowercase hex, two characters per byte.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// SignedToHex renders a signed byte buffer (a Java byte[]) as hex. Negative
// values are normalized to 0-255 first.
func SignedToHex(b []int8) string {
	out := make([]byte, len(b))
	for i, v := range b {
		out[i] = byte(int(v) & 0xff)
	}
	return BytesToHex(out)
}

// HexToBytes decodes pairs of hex digits. An odd-length input is malformed.
//
// Pairs are not validated: each pair takes the value of its leading hex
// digits, and a pair that starts with a non-hex character decodes to 0.
// Diagnostic callers get a best-effort buffer instead of a rejection.
func HexToBytes(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hex length %d is odd: %w", len(s), ErrMalformedInput)
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		out[i] = parseHexPair(s[2*i], s[2*i+1])
	}
	return out, nil
}

func parseHexPair(hi, lo byte) byte {
	h, ok := hexValue(hi)
	if !ok {
		return 0
	}
	l, ok := hexValue(lo)
	if !ok {
		return h
	}
	return h<<4 | l
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// IsHex reports whether s is a non-empty, even-length run of hex digits.
func IsHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if _, ok := hexValue(s[i]); !ok {
			return false
		}
	}
	return true
}

// StringToHex renders the code-unit bytes of s as hex.
func StringToHex(s string) string {
	return BytesToHex(StringToBytes(s))
}

// HexToBase64 re-encodes a hex string as Base64. Embedded line breaks are
// removed before decoding.
func HexToBase64(s string) (string, error) {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	b, err := HexToBytes(s)
	if err != nil {
		return "", err
	}
	return BytesToBase64(b), nil
}

// Base64ToHex re-encodes a Base64 string as hex using the lenient decoder.
func Base64ToHex(s string) string {
	return BytesToHex(Base64ToBytes(s))
}
