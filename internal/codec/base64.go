package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// base64Values maps an input byte to its sextet, or -1.
var base64Values = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(base64Alphabet); i++ {
		t[base64Alphabet[i]] = int8(i)
	}
	return t
}()

// BytesToBase64 renders b as standard Base64 with '=' padding.
func BytesToBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64ToBytes decodes s leniently. Trailing whitespace is ignored, characters
// outside the alphabet are skipped while a sextet is being read, and '=' or
// the end of input stops decoding and returns what was accumulated.
//
// Use Base64ToBytesStrict when input must be rejected instead.
func Base64ToBytes(s string) []byte {
	s = strings.TrimRight(s, " \t\r\n")
	out := make([]byte, 0, len(s)*3/4)
	pos := 0

	// next returns the next sextet, or -1 when the group must end.
	next := func(stopOnPad bool) int8 {
		for pos < len(s) {
			c := s[pos]
			pos++
			if stopOnPad && c == '=' {
				return -1
			}
			if v := base64Values[c]; v >= 0 {
				return v
			}
		}
		return -1
	}

	for pos < len(s) {
		a := next(false)
		if a < 0 {
			break
		}
		b := next(false)
		if b < 0 {
			break
		}
		out = append(out, byte(a)<<2|byte(b)>>4)

		c := next(true)
		if c < 0 {
			break
		}
		out = append(out, byte(b&0x0f)<<4|byte(c)>>2)

		d := next(true)
		if d < 0 {
			break
		}
		out = append(out, byte(c&0x03)<<6|byte(d))
	}
	return out
}

// Base64ToBytesStrict decodes standard padded Base64 and rejects anything else.
func Base64ToBytesStrict(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimRight(s, " \t\r\n"))
	if err != nil {
		return nil, fmt.Errorf("base64: %v: %w", err, ErrMalformedInput)
	}
	return b, nil
}
