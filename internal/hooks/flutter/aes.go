// Package flutter provides catalog definitions for the AES helper shipped by
// the flutter_aes_ecb_pkcs5 plugin.
package flutter

import (
	"github.com/zboralski/cryptotap/internal/codec"
	"github.com/zboralski/cryptotap/internal/hooks"
)

// Category is the catalog category of the helper definitions.
const Category = "flutter"

// TypeAesSecurity is the plugin's helper class. Both methods take and return
// strings; ciphertext is hex.
const TypeAesSecurity = "com.smallbuer.flutter_aes_ecb_pkcs5.AesSecurity"

func init() {
	hooks.RegisterFunc(Category, TypeAesSecurity, "encrypt", hooks.SigStringPair, observeEncrypt)
	hooks.RegisterFunc(Category, TypeAesSecurity, "decrypt", hooks.SigStringPair, observeDecrypt)
}

// encrypt(String plaintext, String key) -> hex ciphertext
func observeEncrypt(c *hooks.Capture) {
	c.Text(hooks.ChanHelper, "encrypt input", c.ArgString(0))
	c.Text(hooks.ChanHelper, "key", c.ArgString(1))
	c.Text(hooks.ChanHelper, "result", c.ResultString())
	renderHex(c, "result base64", c.ResultString())
}

// decrypt(String hexCiphertext, String key) -> plaintext, which some plugin
// builds return hex encoded.
func observeDecrypt(c *hooks.Capture) {
	c.Text(hooks.ChanHelper, "decrypt input", c.ArgString(0))
	renderHex(c, "input base64", c.ArgString(0))
	c.Text(hooks.ChanHelper, "key", c.ArgString(1))
	result := c.ResultString()
	c.Text(hooks.ChanHelper, "result", result)
	if codec.IsHex(result) {
		b, _ := codec.HexToBytes(result)
		c.Text(hooks.ChanHelper, "result text", codec.BytesToString(b))
	}
}

// renderHex re-encodes hex text as Base64. Malformed hex renders the error so
// a truncated capture still yields a line.
func renderHex(c *hooks.Capture, label, hex string) {
	if !c.Enabled(hooks.ChanHelper) || hex == "" {
		return
	}
	b64, err := codec.HexToBase64(hex)
	if err != nil {
		c.Text(hooks.ChanHelper, label, "<"+err.Error()+">")
		return
	}
	c.Text(hooks.ChanHelper, label, b64)
}
