package hooks

import (
	"fmt"
	"sort"
	"strings"
)

// Channel names an independently toggleable group of diagnostic output.
// Every channel is off unless enabled.
type Channel string

const (
	ChanStack     Channel = "stack"     // call stack before the original runs
	ChanAlgorithm Channel = "algorithm" // algorithm and transformation names
	ChanKey       Channel = "key"       // key material
	ChanIV        Channel = "iv"        // initialization vectors
	ChanInput     Channel = "input"     // data fed to update/doFinal/digest
	ChanOutput    Channel = "output"    // results of doFinal/digest
	ChanRSA       Channel = "rsa"       // public key specs
	ChanHelper    Channel = "helper"    // third-party helper classes
)

var knownChannels = []Channel{
	ChanStack, ChanAlgorithm, ChanKey, ChanIV, ChanInput, ChanOutput, ChanRSA, ChanHelper,
}

// KnownChannels returns every channel name.
func KnownChannels() []Channel {
	out := make([]Channel, len(knownChannels))
	copy(out, knownChannels)
	return out
}

// Channels is an immutable set of enabled channels.
type Channels struct {
	on map[Channel]bool
}

// NewChannels enables exactly the given channels.
func NewChannels(chs ...Channel) Channels {
	on := make(map[Channel]bool, len(chs))
	for _, ch := range chs {
		on[ch] = true
	}
	return Channels{on: on}
}

// AllChannels enables every known channel.
func AllChannels() Channels {
	return NewChannels(knownChannels...)
}

// ParseChannels accepts channel names; "all" enables everything.
func ParseChannels(names []string) (Channels, error) {
	var chs []Channel
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if n == "all" {
			return AllChannels(), nil
		}
		if !isKnown(Channel(n)) {
			return Channels{}, fmt.Errorf("unknown channel %q", n)
		}
		chs = append(chs, Channel(n))
	}
	return NewChannels(chs...), nil
}

func isKnown(ch Channel) bool {
	for _, k := range knownChannels {
		if k == ch {
			return true
		}
	}
	return false
}

// Enabled reports whether ch is on.
func (c Channels) Enabled(ch Channel) bool {
	return c.on[ch]
}

// With returns a copy with ch enabled.
func (c Channels) With(ch Channel) Channels {
	return NewChannels(append(c.List(), ch)...)
}

// List returns the enabled channels in sorted order.
func (c Channels) List() []Channel {
	out := make([]Channel, 0, len(c.on))
	for ch, on := range c.on {
		if on {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
