package hooks

import (
	"math/big"
	"strconv"

	"github.com/zboralski/cryptotap/internal/codec"
	"github.com/zboralski/cryptotap/internal/trace"
)

// Observer renders one successful invocation. It runs after the original
// returned and must not retain the Capture.
type Observer func(c *Capture)

// Capture is the observer's view of one invocation: its arguments, its result
// and a record to add rendered fields to.
type Capture struct {
	Key    Key
	This   any
	Args   []any
	Result any

	channels Channels
	record   *trace.Record
}

// NewCapture builds a capture with its own record. Registries and remote
// dispatchers call this; observers only receive it.
func NewCapture(key Key, category string, this any, args []any, result any, chs Channels) *Capture {
	return &Capture{
		Key:      key,
		This:     this,
		Args:     args,
		Result:   result,
		channels: chs,
		record:   trace.NewRecord(key.String(), category),
	}
}

// Record returns the record built so far.
func (c *Capture) Record() *trace.Record {
	return c.record
}

// Enabled reports whether ch is on for this capture.
func (c *Capture) Enabled(ch Channel) bool {
	return c.channels.Enabled(ch)
}

// ArgBytes returns argument i as a byte buffer copy, or nil.
func (c *Capture) ArgBytes(i int) []byte {
	if i >= len(c.Args) {
		return nil
	}
	b, _ := ToBytes(c.Args[i])
	return b
}

// ArgString returns argument i as a string, or "".
func (c *Capture) ArgString(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	s, _ := ToString(c.Args[i])
	return s
}

// ArgInt returns argument i as an int, or 0.
func (c *Capture) ArgInt(i int) int {
	if i >= len(c.Args) {
		return 0
	}
	n, _ := ToInt(c.Args[i])
	return n
}

// ArgBigInt returns argument i as a big integer, or nil.
func (c *Capture) ArgBigInt(i int) *big.Int {
	if i >= len(c.Args) {
		return nil
	}
	n, _ := ToBigInt(c.Args[i])
	return n
}

// ResultBytes returns the result as a byte buffer copy, or nil.
func (c *Capture) ResultBytes() []byte {
	b, _ := ToBytes(c.Result)
	return b
}

// ResultString returns the result as a string, or "".
func (c *Capture) ResultString() string {
	s, _ := ToString(c.Result)
	return s
}

// Text adds a plain field when ch is enabled.
func (c *Capture) Text(ch Channel, label, value string) {
	if !c.channels.Enabled(ch) {
		return
	}
	c.record.Add(label, value)
}

// Buffer adds one field per encoding when ch is enabled. Labels are suffixed
// with the encoding name, e.g. "key hex".
func (c *Capture) Buffer(ch Channel, label string, b []byte, encs ...codec.Encoding) {
	if !c.channels.Enabled(ch) {
		return
	}
	if len(encs) == 0 {
		encs = []codec.Encoding{codec.Hex}
	}
	for _, enc := range encs {
		c.record.Add(label+" "+enc.String(), codec.Encode(enc, b))
	}
}

// Range adds an "offset|length" field when ch is enabled.
func (c *Capture) Range(ch Channel, label string, offset, length int) {
	c.Text(ch, label, strconv.Itoa(offset)+"|"+strconv.Itoa(length))
}
