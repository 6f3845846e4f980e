// Package jca provides catalog definitions for the standard Java crypto
// surface: key and IV specs, Mac, MessageDigest, Cipher and public key specs.
package jca

import (
	"github.com/zboralski/cryptotap/internal/hooks"
)

// Category is the catalog category of every definition in this package.
const Category = "jca"

// Target types.
const (
	TypeSecretKeySpec = "javax.crypto.spec.SecretKeySpec"
	TypeMac           = "javax.crypto.Mac"
	TypeMessageDigest = "java.security.MessageDigest"
	TypeIvParameter   = "javax.crypto.spec.IvParameterSpec"
	TypeCipher        = "javax.crypto.Cipher"
	TypeX509KeySpec   = "java.security.spec.X509EncodedKeySpec"
	TypeRSAPublicSpec = "java.security.spec.RSAPublicKeySpec"
)

func init() {
	registerKeys()
	registerMac()
	registerDigest()
	registerCipher()
}

func register(typ, method string, sig hooks.Signature, obs hooks.Observer) {
	hooks.RegisterFunc(Category, typ, method, sig, obs)
}

// window returns b[off:off+n] clamped to b.
func window(b []byte, off, n int) []byte {
	if off < 0 {
		off = 0
	}
	if off > len(b) {
		off = len(b)
	}
	if n < 0 || n > len(b)-off {
		n = len(b) - off
	}
	return b[off : off+n]
}
