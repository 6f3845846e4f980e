package jca

import (
	"github.com/zboralski/cryptotap/internal/codec"
	"github.com/zboralski/cryptotap/internal/hooks"
)

func registerMac() {
	register(TypeMac, "getInstance", hooks.SigString, observeAlgorithm)
	register(TypeMac, "update", hooks.SigBytes, observeUpdate)
	register(TypeMac, "update", hooks.SigBytesRange, observeUpdateRange)
	register(TypeMac, "doFinal", hooks.SigNone, observeFinal("doFinal"))
	register(TypeMac, "doFinal", hooks.SigBytes, observeFinal("doFinal"))
}

// observeAlgorithm renders the name passed to a getInstance factory.
func observeAlgorithm(c *hooks.Capture) {
	c.Text(hooks.ChanAlgorithm, "algorithm", c.ArgString(0))
	if len(c.Args) > 1 {
		c.Text(hooks.ChanAlgorithm, "provider", c.ArgString(1))
	}
}

// update(byte[] input)
func observeUpdate(c *hooks.Capture) {
	c.Buffer(hooks.ChanInput, "update", c.ArgBytes(0), codec.Text)
	if out := c.ResultBytes(); len(out) > 0 {
		c.Buffer(hooks.ChanOutput, "update result", out, codec.Hex)
	}
}

// update(byte[] input, int offset, int len)
func observeUpdateRange(c *hooks.Capture) {
	off, n := c.ArgInt(1), c.ArgInt(2)
	c.Buffer(hooks.ChanInput, "update", window(c.ArgBytes(0), off, n), codec.Text)
	c.Range(hooks.ChanInput, "update range", off, n)
	if out := c.ResultBytes(); len(out) > 0 {
		c.Buffer(hooks.ChanOutput, "update result", out, codec.Hex)
	}
}

// observeFinal renders doFinal/digest with or without a last input buffer.
func observeFinal(name string) hooks.Observer {
	return func(c *hooks.Capture) {
		if len(c.Args) > 0 {
			c.Buffer(hooks.ChanInput, name+" input", c.ArgBytes(0), codec.Text)
		}
		c.Buffer(hooks.ChanOutput, name+" result", c.ResultBytes(), codec.Hex, codec.Base64)
	}
}
