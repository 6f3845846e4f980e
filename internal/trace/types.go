// Package trace provides the capture record produced for each intercepted call.
package trace

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Delimiter separates records in line-oriented output.
const Delimiter = "======================================"

// Tag represents a capture category.
// Tags are stored without # prefix; the prefix is added on rendering.
type Tag string

// Standard tags for capture records.
const (
	Key     Tag = "key"
	Mac     Tag = "mac"
	Digest  Tag = "digest"
	IV      Tag = "iv"
	Cipher  Tag = "cipher"
	RSA     Tag = "rsa"
	KeySpec Tag = "keyspec"
	Helper  Tag = "helper"
	Crypto  Tag = "crypto"
	Remote  Tag = "remote"
)

// Tags is a collection of tags with helper methods.
type Tags []Tag

// Has returns true if the tag collection contains the given tag.
func (t Tags) Has(tag Tag) bool {
	for _, x := range t {
		if x == tag {
			return true
		}
	}
	return false
}

// Add adds a tag if not already present.
func (t *Tags) Add(tag Tag) {
	if !t.Has(tag) {
		*t = append(*t, tag)
	}
}

// Strings returns tags as strings with # prefix for display.
func (t Tags) Strings() []string {
	out := make([]string, len(t))
	for i, tag := range t {
		out[i] = "#" + string(tag)
	}
	return out
}

// Primary returns the first tag or empty string if none.
func (t Tags) Primary() Tag {
	if len(t) > 0 {
		return t[0]
	}
	return ""
}

// Field is one rendered label/value pair.
type Field struct {
	Label string
	Value string
}

// Record is the capture of a single intercepted invocation. Records are
// streamed to a sink and never retained.
type Record struct {
	ID        uuid.UUID
	Binding   string // e.g. "javax.crypto.Mac.doFinal([B)"
	Tags      Tags
	Fields    []Field
	Stack     string
	Timestamp time.Time
}

// NewRecord creates a record for a binding with the given primary category.
func NewRecord(binding, category string) *Record {
	r := &Record{
		ID:        uuid.New(),
		Binding:   binding,
		Timestamp: time.Now(),
	}
	if category != "" {
		r.Tags = Tags{Tag(category)}
	}
	return r
}

// AddTag adds a tag to the record.
func (r *Record) AddTag(tag Tag) {
	r.Tags.Add(tag)
}

// Add appends a field.
func (r *Record) Add(label, value string) {
	r.Fields = append(r.Fields, Field{Label: label, Value: value})
}

// Empty reports whether the record has nothing to show.
func (r *Record) Empty() bool {
	return len(r.Fields) == 0 && r.Stack == ""
}

// PrimaryTag returns the primary (first) tag with # prefix.
func (r *Record) PrimaryTag() string {
	if len(r.Tags) > 0 {
		return "#" + string(r.Tags[0])
	}
	return ""
}

// Lines renders the record: a delimiter, the stack if captured, then one
// "label: value" line per field.
func (r *Record) Lines() []string {
	lines := make([]string, 0, len(r.Fields)+2)
	lines = append(lines, Delimiter)
	if r.Stack != "" {
		lines = append(lines, strings.TrimRight(r.Stack, "\n"))
	}
	for _, f := range r.Fields {
		lines = append(lines, f.Label+": "+f.Value)
	}
	return lines
}

// Enricher enriches records based on their binding.
type Enricher func(r *Record)

// DefaultEnricher adds tags derived from the target type of the binding.
func DefaultEnricher(r *Record) {
	typ := r.Binding
	if i := strings.IndexByte(typ, '('); i >= 0 {
		typ = typ[:i]
	}

	switch {
	case strings.Contains(typ, "SecretKeySpec"):
		r.AddTag(Key)
	case strings.Contains(typ, ".Mac."):
		r.AddTag(Mac)
	case strings.Contains(typ, "MessageDigest"):
		r.AddTag(Digest)
	case strings.Contains(typ, "IvParameterSpec"):
		r.AddTag(IV)
	case strings.Contains(typ, ".Cipher."):
		r.AddTag(Cipher)
	case strings.Contains(typ, "RSAPublicKeySpec"):
		r.AddTag(RSA)
		r.AddTag(KeySpec)
	case strings.Contains(typ, "EncodedKeySpec"):
		r.AddTag(KeySpec)
	default:
		return
	}
	r.AddTag(Crypto)
}
