package codec

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// CJK Unified Ideographs rendered by MixedTextToHex as UTF-8.
const (
	cjkFirst = 0x4e00
	cjkLast  = 0x9fa5
)

// StringToBytes dumps the UTF-16 code units of s. A unit below 256 becomes one
// byte; any other unit becomes its two big-endian bytes.
func StringToBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units))
	for _, u := range units {
		if u > 0xff {
			out = append(out, byte(u>>8))
		}
		out = append(out, byte(u))
	}
	return out
}

// BytesToString maps each byte to the code point of the same value (Latin-1).
func BytesToString(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// ISO-8859-1 defines all 256 bytes; keep a per-byte fallback anyway.
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes)
	}
	return string(s)
}

// MixedTextToHex renders s as compact hex. ASCII characters become two hex
// digits. Characters in U+4E00..U+9FA5 become their percent-encoded UTF-8
// bytes with the '%' removed. Other code units use their minimal hex form,
// padded to an even width.
func MixedTextToHex(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if r >= cjkFirst && r <= cjkLast {
			b.WriteString(strings.ReplaceAll(url.PathEscape(string(r)), "%", ""))
			continue
		}
		for _, u := range utf16.Encode([]rune{r}) {
			h := fmt.Sprintf("%x", u)
			if len(h)%2 != 0 {
				b.WriteByte('0')
			}
			b.WriteString(h)
		}
	}
	return b.String()
}
