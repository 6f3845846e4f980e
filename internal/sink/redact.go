package sink

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zboralski/cryptotap/internal/hooks"
	"github.com/zboralski/cryptotap/internal/trace"
)

// Redactor masks sensitive values before they reach a sink. Values of fields
// whose label starts with one of the configured labels are masked whole;
// everything else is scanned for the configured patterns.
type Redactor struct {
	patterns []*regexp.Regexp
	labels   []string
}

// NewRedactor compiles patterns. Labels are matched as prefixes, so "key"
// covers "key text" and "key hex".
func NewRedactor(patterns, labels []string) (*Redactor, error) {
	r := &Redactor{labels: labels}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// Contains reports whether s matches any pattern.
func (r *Redactor) Contains(s string) bool {
	for _, re := range r.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Redact replaces every pattern match in s with '*' of the same length.
func (r *Redactor) Redact(s string) string {
	for _, re := range r.patterns {
		s = re.ReplaceAllStringFunc(s, func(m string) string {
			return strings.Repeat("*", len(m))
		})
	}
	return s
}

func (r *Redactor) maskLabel(label string) bool {
	for _, l := range r.labels {
		if strings.HasPrefix(label, l) {
			return true
		}
	}
	return false
}

// Field redacts one rendered value.
func (r *Redactor) Field(label, value string) string {
	if r.maskLabel(label) {
		return strings.Repeat("*", len(value))
	}
	return r.Redact(value)
}

// Wrap returns a sink that redacts before forwarding to next.
func (r *Redactor) Wrap(next hooks.Sink) hooks.Sink {
	return &redacting{r: r, next: next}
}

type redacting struct {
	r    *Redactor
	next hooks.Sink
}

// Emit only sees pre-rendered lines; "label: value" lines get label masking.
func (s *redacting) Emit(line string) {
	if label, value, ok := strings.Cut(line, ": "); ok && s.r.maskLabel(label) {
		s.next.Emit(label + ": " + strings.Repeat("*", len(value)))
		return
	}
	s.next.Emit(s.r.Redact(line))
}

func (s *redacting) EmitRecord(rec *trace.Record) {
	out := *rec
	out.Fields = make([]trace.Field, len(rec.Fields))
	for i, f := range rec.Fields {
		out.Fields[i] = trace.Field{Label: f.Label, Value: s.r.Field(f.Label, f.Value)}
	}
	forward(s.next, &out)
}
