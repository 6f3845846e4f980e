package jca

import (
	"github.com/zboralski/cryptotap/internal/codec"
	"github.com/zboralski/cryptotap/internal/hooks"
)

func registerKeys() {
	register(TypeSecretKeySpec, hooks.Constructor, hooks.SigBytesString, observeSecretKey)
	register(TypeIvParameter, hooks.Constructor, hooks.SigBytes, observeIV)
	register(TypeX509KeySpec, hooks.Constructor, hooks.SigBytes, observeX509)
	register(TypeRSAPublicSpec, hooks.Constructor, hooks.SigBigIntPair, observeRSAPublic)
}

// SecretKeySpec(byte[] key, String algorithm)
func observeSecretKey(c *hooks.Capture) {
	c.Text(hooks.ChanAlgorithm, "algorithm", c.ArgString(1))
	c.Buffer(hooks.ChanKey, "key", c.ArgBytes(0), codec.Text, codec.Hex)
}

// IvParameterSpec(byte[] iv)
func observeIV(c *hooks.Capture) {
	c.Buffer(hooks.ChanIV, "iv", c.ArgBytes(0), codec.Text, codec.Hex)
}

// X509EncodedKeySpec(byte[] encoded)
func observeX509(c *hooks.Capture) {
	c.Buffer(hooks.ChanRSA, "x509 key", c.ArgBytes(0), codec.Base64)
}

// RSAPublicKeySpec(BigInteger modulus, BigInteger publicExponent)
func observeRSAPublic(c *hooks.Capture) {
	if !c.Enabled(hooks.ChanRSA) {
		return
	}
	if n := c.ArgBigInt(0); n != nil {
		c.Text(hooks.ChanRSA, "rsa modulus", n.Text(16))
		c.Buffer(hooks.ChanRSA, "rsa modulus", n.Bytes(), codec.Base64)
	}
	if e := c.ArgBigInt(1); e != nil {
		c.Text(hooks.ChanRSA, "rsa exponent", e.Text(16))
	}
}
