package sim

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"strings"

	"github.com/zboralski/cryptotap/internal/hooks"
)

type cipherState struct {
	transformation string
	chain          string // "CBC" or "ECB"
	padded         bool

	opmode int
	block  cipher.Block
	iv     []byte
	mode   cipher.BlockMode
	buf    []byte
}

func loadCipher(rt *Runtime) {
	rt.Define(Cipher, "getInstance", hooks.SigString.String(), cipherGetInstance)
	rt.Define(Cipher, "init", DescInitKey, cipherInit)
	rt.Define(Cipher, "init", DescInitKeyIV, cipherInit)
	rt.Define(Cipher, "update", descBytes, cipherUpdate)
	rt.Define(Cipher, "update", descBytesRange, cipherUpdate)
	rt.Define(Cipher, "doFinal", descNone, cipherDoFinal)
	rt.Define(Cipher, "doFinal", descBytes, cipherDoFinal)
	rt.Define(Cipher, "getIV", descNone, cipherGetIV)
}

// parseTransformation accepts "AES", "AES/ECB/PKCS5Padding",
// "AES/CBC/PKCS5Padding" and the NoPadding variants.
func parseTransformation(t string) (chain string, padded bool, ok bool) {
	parts := strings.Split(strings.ToUpper(t), "/")
	if parts[0] != "AES" {
		return "", false, false
	}
	switch len(parts) {
	case 1:
		return "ECB", true, true
	case 3:
	default:
		return "", false, false
	}
	switch parts[1] {
	case "ECB", "CBC":
	default:
		return "", false, false
	}
	switch parts[2] {
	case "PKCS5PADDING", "PKCS7PADDING":
		return parts[1], true, true
	case "NOPADDING":
		return parts[1], false, true
	}
	return "", false, false
}

func cipherGetInstance(_ any, args []any) (any, error) {
	t, _ := args[0].(string)
	chain, padded, ok := parseTransformation(t)
	if !ok {
		return nil, throw(NoSuchAlgorithm, "Cannot find any provider supporting %s", t)
	}
	return &Object{class: Cipher, state: &cipherState{transformation: t, chain: chain, padded: padded}}, nil
}

func cipherInit(this any, args []any) (any, error) {
	if len(args) < 2 {
		return nil, throw(IllegalArgument, "init takes a mode and a key")
	}
	opmode, _ := hooks.ToInt(args[0])
	if opmode != EncryptMode && opmode != DecryptMode {
		return nil, throw(IllegalArgument, "Invalid operation mode %v", args[0])
	}
	key, err := keyBytes(args[1])
	if err != nil {
		return nil, err
	}
	var iv []byte
	if len(args) > 2 {
		if iv, err = ivBytes(args[2]); err != nil {
			return nil, err
		}
	}

	o, c, err := receiver[*cipherState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, throw(InvalidKey, "Invalid AES key length: %d bytes", len(key))
	}
	if c.chain == "CBC" {
		switch {
		case iv == nil && opmode == DecryptMode:
			return nil, throw(InvalidKey, "Parameters missing")
		case iv == nil:
			iv = make([]byte, aes.BlockSize)
			if _, err := rand.Read(iv); err != nil {
				return nil, throw(IllegalState, "%v", err)
			}
		case len(iv) != aes.BlockSize:
			return nil, throw(InvalidKey, "Wrong IV length: must be 16 bytes long")
		}
	}

	c.opmode, c.block, c.iv = opmode, block, iv
	c.reset()
	return nil, nil
}

func ivBytes(v any) ([]byte, error) {
	o, s, err := receiver[*ivSpec](v)
	if err != nil {
		return nil, throw(IllegalArgument, "not an IvParameterSpec: %v", v)
	}
	defer o.mu.Unlock()
	return s.iv, nil
}

// reset returns the cipher to the state right after init.
func (c *cipherState) reset() {
	c.buf = c.buf[:0]
	encrypt := c.opmode == EncryptMode
	switch {
	case c.chain == "CBC" && encrypt:
		c.mode = cipher.NewCBCEncrypter(c.block, c.iv)
	case c.chain == "CBC":
		c.mode = cipher.NewCBCDecrypter(c.block, c.iv)
	case encrypt:
		c.mode = ecbEncrypter{c.block}
	default:
		c.mode = ecbDecrypter{c.block}
	}
}

// process runs every complete block that is safe to emit. A decrypting,
// padded cipher holds back its last block until doFinal.
func (c *cipherState) process() []byte {
	bs := c.block.BlockSize()
	n := len(c.buf) / bs * bs
	if c.opmode == DecryptMode && c.padded && n == len(c.buf) && n > 0 {
		n -= bs
	}
	out := make([]byte, n)
	c.mode.CryptBlocks(out, c.buf[:n])
	c.buf = append(c.buf[:0], c.buf[n:]...)
	return out
}

func cipherUpdate(this any, args []any) (any, error) {
	o, c, err := receiver[*cipherState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	if c.mode == nil {
		return nil, throw(IllegalState, "Cipher not initialized")
	}
	b, err := input(args)
	if err != nil {
		return nil, err
	}
	c.buf = append(c.buf, b...)
	return c.process(), nil
}

func cipherDoFinal(this any, args []any) (any, error) {
	o, c, err := receiver[*cipherState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	if c.mode == nil {
		return nil, throw(IllegalState, "Cipher not initialized")
	}
	b, err := input(args)
	if err != nil {
		return nil, err
	}
	c.buf = append(c.buf, b...)
	defer c.reset()

	bs := c.block.BlockSize()
	if c.opmode == EncryptMode && c.padded {
		c.buf = pkcs5Pad(c.buf, bs)
	}
	if len(c.buf)%bs != 0 {
		return nil, throw(IllegalBlockSize, "Input length not multiple of %d bytes", bs)
	}
	out := make([]byte, len(c.buf))
	c.mode.CryptBlocks(out, c.buf)
	if c.opmode == DecryptMode && c.padded {
		if out, err = pkcs5Unpad(out, bs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cipherGetIV(this any, _ []any) (any, error) {
	o, c, err := receiver[*cipherState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	if c.iv == nil {
		return nil, nil
	}
	return append([]byte(nil), c.iv...), nil
}

func pkcs5Pad(b []byte, bs int) []byte {
	n := bs - len(b)%bs
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs5Unpad(b []byte, bs int) ([]byte, error) {
	if len(b) == 0 || len(b)%bs != 0 {
		return nil, throw(BadPadding, "Given final block not properly padded")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > bs {
		return nil, throw(BadPadding, "Given final block not properly padded")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, throw(BadPadding, "Given final block not properly padded")
		}
	}
	return b[:len(b)-n], nil
}

// aesECB runs a one-shot AES/ECB/PKCS5Padding operation.
func aesECB(key, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, throw(InvalidKey, "Invalid AES key length: %d bytes", len(key))
	}
	bs := block.BlockSize()
	if encrypt {
		data = pkcs5Pad(append([]byte(nil), data...), bs)
		out := make([]byte, len(data))
		ecbEncrypter{block}.CryptBlocks(out, data)
		return out, nil
	}
	if len(data)%bs != 0 {
		return nil, throw(IllegalBlockSize, "Input length not multiple of %d bytes", bs)
	}
	out := make([]byte, len(data))
	ecbDecrypter{block}.CryptBlocks(out, data)
	return pkcs5Unpad(out, bs)
}

type ecbEncrypter struct{ b cipher.Block }

func (e ecbEncrypter) BlockSize() int { return e.b.BlockSize() }

func (e ecbEncrypter) CryptBlocks(dst, src []byte) {
	bs := e.b.BlockSize()
	for i := 0; i < len(src); i += bs {
		e.b.Encrypt(dst[i:i+bs], src[i:i+bs])
	}
}

type ecbDecrypter struct{ b cipher.Block }

func (d ecbDecrypter) BlockSize() int { return d.b.BlockSize() }

func (d ecbDecrypter) CryptBlocks(dst, src []byte) {
	bs := d.b.BlockSize()
	for i := 0; i < len(src); i += bs {
		d.b.Decrypt(dst[i:i+bs], src[i:i+bs])
	}
}
