package agent

import (
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrBadMessage indicates agent output that is not a well-formed message.
var ErrBadMessage = errors.New("bad agent message")

// Kind is the agent message type.
type Kind int

const (
	KindSend  Kind = iota // payload from send()
	KindLog               // console output
	KindError             // uncaught script error
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindLog:
		return "log"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message is one decoded agent message.
type Message struct {
	Kind    Kind
	Payload []byte // raw JSON payload of a send
	Text    string // log text, error description or a plain string send
	Level   string // log level
	Stack   string // error stack
}

// Decode parses the JSON envelope the instrumentation runtime wraps around
// every message.
func Decode(data []byte) (*Message, error) {
	typ, err := jsonparser.GetString(data, "type")
	if err != nil {
		return nil, fmt.Errorf("%w: type: %v", ErrBadMessage, err)
	}

	switch typ {
	case "send":
		payload, vt, _, err := jsonparser.Get(data, "payload")
		if err != nil {
			return nil, fmt.Errorf("%w: payload: %v", ErrBadMessage, err)
		}
		if vt == jsonparser.String {
			text, _ := jsonparser.ParseString(payload)
			return &Message{Kind: KindSend, Text: text}, nil
		}
		return &Message{Kind: KindSend, Payload: payload}, nil
	case "log":
		text, _ := jsonparser.GetString(data, "payload")
		level, _ := jsonparser.GetString(data, "level")
		return &Message{Kind: KindLog, Text: text, Level: level}, nil
	case "error":
		desc, _ := jsonparser.GetString(data, "description")
		stack, _ := jsonparser.GetString(data, "stack")
		return &Message{Kind: KindError, Text: desc, Stack: stack}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrBadMessage, typ)
}

// Capture is the payload a hook sends after its original returned.
type Capture struct {
	Binding string
	Args    []any
	Result  any
	Stack   string
}

// DecodeCapture parses a send payload into a capture. Byte arrays arrive as
// arrays of numbers and become []any; the catalog's argument conversions
// accept that shape.
func DecodeCapture(payload []byte) (*Capture, error) {
	binding, err := jsonparser.GetString(payload, "binding")
	if err != nil {
		return nil, fmt.Errorf("%w: binding: %v", ErrBadMessage, err)
	}
	c := &Capture{Binding: binding}

	args, vt, _, err := jsonparser.Get(payload, "args")
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError) || vt == jsonparser.Null:
	case err != nil:
		return nil, fmt.Errorf("%w: args: %v", ErrBadMessage, err)
	case vt != jsonparser.Array:
		return nil, fmt.Errorf("%w: args is %s", ErrBadMessage, vt)
	default:
		v, err := convert(args, vt)
		if err != nil {
			return nil, fmt.Errorf("%w: args: %v", ErrBadMessage, err)
		}
		c.Args, _ = v.([]any)
	}

	if res, vt, _, err := jsonparser.Get(payload, "result"); err == nil {
		if c.Result, err = convert(res, vt); err != nil {
			return nil, fmt.Errorf("%w: result: %v", ErrBadMessage, err)
		}
	}

	c.Stack, _ = jsonparser.GetString(payload, "stack")
	return c, nil
}

// convert turns one JSON value into a Go value: strings, int64 or float64
// numbers, bools, nil and []any.
func convert(data []byte, vt jsonparser.ValueType) (any, error) {
	switch vt {
	case jsonparser.String:
		return jsonparser.ParseString(data)
	case jsonparser.Number:
		if n, err := jsonparser.ParseInt(data); err == nil {
			return n, nil
		}
		return jsonparser.ParseFloat(data)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(data)
	case jsonparser.Null, jsonparser.NotExist:
		return nil, nil
	case jsonparser.Array:
		out := []any{}
		var inner error
		_, err := jsonparser.ArrayEach(data, func(value []byte, vt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			v, err := convert(value, vt)
			if err != nil {
				inner = err
				return
			}
			out = append(out, v)
		})
		if err != nil {
			return nil, err
		}
		return out, inner
	}
	return nil, fmt.Errorf("unsupported value %s", vt)
}
