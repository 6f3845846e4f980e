package sim

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"math/big"
	"strings"

	"github.com/zboralski/cryptotap/internal/hooks"
)

// Class names of the built-in JCA surface.
const (
	SecretKeySpec      = "javax.crypto.spec.SecretKeySpec"
	IvParameterSpec    = "javax.crypto.spec.IvParameterSpec"
	Mac                = "javax.crypto.Mac"
	MessageDigest      = "java.security.MessageDigest"
	Cipher             = "javax.crypto.Cipher"
	X509EncodedKeySpec = "java.security.spec.X509EncodedKeySpec"
	RSAPublicKeySpec   = "java.security.spec.RSAPublicKeySpec"
)

// Descriptors of methods outside the Signature set.
const (
	DescKey        = "java.security.Key"
	DescInitKey    = "int,java.security.Key"
	DescInitKeyIV  = "int,java.security.Key,java.security.spec.AlgorithmParameterSpec"
	EncryptMode    = 1
	DecryptMode    = 2
	descNone       = ""
	descBytes      = "[B"
	descBytesRange = "[B,int,int"
)

var digests = map[string]func() hash.Hash{
	"MD5":     md5.New,
	"SHA-1":   sha1.New,
	"SHA1":    sha1.New,
	"SHA-256": sha256.New,
	"SHA-384": sha512.New384,
	"SHA-512": sha512.New,
}

var macs = map[string]func() hash.Hash{
	"HMACMD5":    md5.New,
	"HMACSHA1":   sha1.New,
	"HMACSHA256": sha256.New,
	"HMACSHA384": sha512.New384,
	"HMACSHA512": sha512.New,
}

type secretKey struct {
	key []byte
	alg string
}

type ivSpec struct {
	iv []byte
}

type encodedKey struct {
	der []byte
}

type rsaSpec struct {
	n, e *big.Int
}

type macState struct {
	alg     string
	newHash func() hash.Hash
	h       hash.Hash
}

type digestState struct {
	alg string
	h   hash.Hash
}

func loadJCA(rt *Runtime) {
	rt.Define(SecretKeySpec, hooks.Constructor, hooks.SigBytesString.String(), newSecretKey)
	rt.Define(SecretKeySpec, "getEncoded", descNone, secretKeyEncoded)
	rt.Define(IvParameterSpec, hooks.Constructor, descBytes, newIVSpec)
	rt.Define(X509EncodedKeySpec, hooks.Constructor, descBytes, newEncodedKey)
	rt.Define(RSAPublicKeySpec, hooks.Constructor, hooks.SigBigIntPair.String(), newRSASpec)

	rt.Define(Mac, "getInstance", hooks.SigString.String(), macGetInstance)
	rt.Define(Mac, "init", DescKey, macInit)
	rt.Define(Mac, "update", descBytes, macUpdate)
	rt.Define(Mac, "update", descBytesRange, macUpdate)
	rt.Define(Mac, "doFinal", descNone, macDoFinal)
	rt.Define(Mac, "doFinal", descBytes, macDoFinal)

	rt.Define(MessageDigest, "getInstance", hooks.SigString.String(), digestGetInstance)
	rt.Define(MessageDigest, "getInstance", hooks.SigStringPair.String(), digestGetInstance)
	rt.Define(MessageDigest, "update", descBytes, digestUpdate)
	rt.Define(MessageDigest, "update", descBytesRange, digestUpdate)
	rt.Define(MessageDigest, "digest", descNone, digestDigest)
	rt.Define(MessageDigest, "digest", descBytes, digestDigest)

	loadCipher(rt)
}

// input returns the byte buffer of an update-style call: the whole first
// argument, or the window named by offset and length.
func input(args []any) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	b, ok := hooks.ToBytes(args[0])
	if !ok {
		return nil, throw(IllegalArgument, "input is %T", args[0])
	}
	if len(args) < 3 {
		return b, nil
	}
	off, ok1 := hooks.ToInt(args[1])
	n, ok2 := hooks.ToInt(args[2])
	if !ok1 || !ok2 || off < 0 || n < 0 || off+n > len(b) {
		return nil, throw(IllegalArgument, "Bad arguments")
	}
	return b[off : off+n], nil
}

func newSecretKey(this any, args []any) (any, error) {
	key, _ := hooks.ToBytes(args[0])
	alg, _ := args[1].(string)
	if len(key) == 0 {
		return nil, throw(IllegalArgument, "Empty key")
	}
	if alg == "" {
		return nil, throw(IllegalArgument, "Algorithm is null")
	}
	return nil, construct(this, &secretKey{key: key, alg: alg})
}

func secretKeyEncoded(this any, _ []any) (any, error) {
	o, k, err := receiver[*secretKey](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	return append([]byte(nil), k.key...), nil
}

// keyBytes extracts the raw key of a SecretKeySpec argument.
func keyBytes(v any) ([]byte, error) {
	o, k, err := receiver[*secretKey](v)
	if err != nil {
		return nil, throw(InvalidKey, "not a secret key: %v", v)
	}
	defer o.mu.Unlock()
	return k.key, nil
}

func newIVSpec(this any, args []any) (any, error) {
	iv, ok := hooks.ToBytes(args[0])
	if !ok || iv == nil {
		return nil, throw(IllegalArgument, "IV buffer missing")
	}
	return nil, construct(this, &ivSpec{iv: iv})
}

func newEncodedKey(this any, args []any) (any, error) {
	der, _ := hooks.ToBytes(args[0])
	return nil, construct(this, &encodedKey{der: der})
}

func newRSASpec(this any, args []any) (any, error) {
	n, _ := hooks.ToBigInt(args[0])
	e, _ := hooks.ToBigInt(args[1])
	return nil, construct(this, &rsaSpec{n: n, e: e})
}

func macGetInstance(_ any, args []any) (any, error) {
	alg, _ := args[0].(string)
	fn, ok := macs[strings.ToUpper(alg)]
	if !ok {
		return nil, throw(NoSuchAlgorithm, "Algorithm %s not available", alg)
	}
	return &Object{class: Mac, state: &macState{alg: alg, newHash: fn}}, nil
}

func macInit(this any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, throw(IllegalArgument, "init takes a key")
	}
	// Read the key before locking the receiver; they may be the same object.
	key, err := keyBytes(args[0])
	if err != nil {
		return nil, err
	}
	o, m, err := receiver[*macState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	m.h = hmac.New(m.newHash, key)
	return nil, nil
}

func macUpdate(this any, args []any) (any, error) {
	o, m, err := receiver[*macState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	if m.h == nil {
		return nil, throw(IllegalState, "MAC not initialized")
	}
	b, err := input(args)
	if err != nil {
		return nil, err
	}
	m.h.Write(b)
	return nil, nil
}

func macDoFinal(this any, args []any) (any, error) {
	o, m, err := receiver[*macState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	if m.h == nil {
		return nil, throw(IllegalState, "MAC not initialized")
	}
	b, err := input(args)
	if err != nil {
		return nil, err
	}
	m.h.Write(b)
	sum := m.h.Sum(nil)
	m.h.Reset()
	return sum, nil
}

func digestGetInstance(_ any, args []any) (any, error) {
	alg, _ := args[0].(string)
	fn, ok := digests[strings.ToUpper(alg)]
	if !ok {
		return nil, throw(NoSuchAlgorithm, "%s MessageDigest not available", alg)
	}
	return &Object{class: MessageDigest, state: &digestState{alg: alg, h: fn()}}, nil
}

func digestUpdate(this any, args []any) (any, error) {
	o, d, err := receiver[*digestState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	b, err := input(args)
	if err != nil {
		return nil, err
	}
	d.h.Write(b)
	return nil, nil
}

func digestDigest(this any, args []any) (any, error) {
	o, d, err := receiver[*digestState](this)
	if err != nil {
		return nil, err
	}
	defer o.mu.Unlock()
	b, err := input(args)
	if err != nil {
		return nil, err
	}
	d.h.Write(b)
	sum := d.h.Sum(nil)
	d.h.Reset()
	return sum, nil
}
