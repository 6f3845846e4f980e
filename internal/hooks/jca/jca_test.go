package jca

import (
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/zboralski/cryptotap/internal/hooks"
)

// run looks the definition up in the default catalog and renders one call.
func run(t *testing.T, typ, method string, sig hooks.Signature, chs hooks.Channels, result any, args ...any) map[string]string {
	t.Helper()
	key := hooks.Key{Type: typ, Method: method, Signature: sig}
	def, ok := hooks.DefaultCatalog.Lookup(key)
	if !ok {
		t.Fatalf("%s not registered", key)
	}
	if def.Category != Category {
		t.Errorf("%s category = %q, want %q", key, def.Category, Category)
	}
	c := hooks.NewCapture(key, def.Category, nil, args, result, chs)
	def.Observer(c)

	fields := make(map[string]string)
	for _, f := range c.Record().Fields {
		fields[f.Label] = f.Value
	}
	return fields
}

func TestRegistered(t *testing.T) {
	want := []string{
		"javax.crypto.spec.SecretKeySpec.$init([B,java.lang.String)",
		"javax.crypto.Mac.getInstance(java.lang.String)",
		"javax.crypto.Mac.update([B)",
		"javax.crypto.Mac.update([B,int,int)",
		"javax.crypto.Mac.doFinal()",
		"javax.crypto.Mac.doFinal([B)",
		"java.security.MessageDigest.getInstance(java.lang.String)",
		"java.security.MessageDigest.getInstance(java.lang.String,java.lang.String)",
		"java.security.MessageDigest.update([B)",
		"java.security.MessageDigest.update([B,int,int)",
		"java.security.MessageDigest.digest()",
		"java.security.MessageDigest.digest([B)",
		"javax.crypto.spec.IvParameterSpec.$init([B)",
		"javax.crypto.Cipher.getInstance(java.lang.String)",
		"javax.crypto.Cipher.update([B)",
		"javax.crypto.Cipher.update([B,int,int)",
		"javax.crypto.Cipher.doFinal()",
		"javax.crypto.Cipher.doFinal([B)",
		"java.security.spec.X509EncodedKeySpec.$init([B)",
		"java.security.spec.RSAPublicKeySpec.$init(java.math.BigInteger,java.math.BigInteger)",
	}
	for _, name := range want {
		if _, ok := hooks.DefaultCatalog.ByName(name); !ok {
			t.Errorf("missing definition %s", name)
		}
	}
	if n := hooks.DefaultCatalog.Filter(Category).Count(); n != len(want) {
		t.Errorf("jca definitions = %d, want %d", n, len(want))
	}
}

func TestSecretKeySpec(t *testing.T) {
	f := run(t, TypeSecretKeySpec, hooks.Constructor, hooks.SigBytesString, hooks.AllChannels(), nil,
		[]byte("k3y"), "HmacSHA256")

	if f["algorithm"] != "HmacSHA256" {
		t.Errorf("algorithm = %q", f["algorithm"])
	}
	if f["key text"] != "k3y" {
		t.Errorf("key text = %q", f["key text"])
	}
	if f["key hex"] != "6b3379" {
		t.Errorf("key hex = %q", f["key hex"])
	}
}

func TestChannelsGateFields(t *testing.T) {
	f := run(t, TypeSecretKeySpec, hooks.Constructor, hooks.SigBytesString,
		hooks.NewChannels(hooks.ChanAlgorithm), nil, []byte("k3y"), "AES")

	if len(f) != 1 || f["algorithm"] != "AES" {
		t.Errorf("fields = %v, want only algorithm", f)
	}

	f = run(t, TypeSecretKeySpec, hooks.Constructor, hooks.SigBytesString, hooks.NewChannels(), nil,
		[]byte("k3y"), "AES")
	if len(f) != 0 {
		t.Errorf("fields with no channels = %v", f)
	}
}

func TestMacDoFinal(t *testing.T) {
	out := []byte{0xde, 0xad, 0xbe, 0xef}
	f := run(t, TypeMac, "doFinal", hooks.SigNone, hooks.AllChannels(), out)

	if f["doFinal result hex"] != "deadbeef" {
		t.Errorf("hex = %q", f["doFinal result hex"])
	}
	if f["doFinal result base64"] != "3q2+7w==" {
		t.Errorf("base64 = %q", f["doFinal result base64"])
	}
	if _, ok := f["doFinal input text"]; ok {
		t.Error("no-arg doFinal rendered an input")
	}

	f = run(t, TypeMac, "doFinal", hooks.SigBytes, hooks.AllChannels(), out, []byte("tail"))
	if f["doFinal input text"] != "tail" {
		t.Errorf("input = %q", f["doFinal input text"])
	}
}

func TestDigestUpdateRange(t *testing.T) {
	f := run(t, TypeMessageDigest, "update", hooks.SigBytesRange, hooks.AllChannels(), nil,
		[]byte("xxpayloadxx"), 2, 7)

	if f["update text"] != "payload" {
		t.Errorf("update text = %q", f["update text"])
	}
	if f["update range"] != "2|7" {
		t.Errorf("update range = %q", f["update range"])
	}
	if _, ok := f["update result hex"]; ok {
		t.Error("void update rendered a result")
	}
}

func TestDigestProvider(t *testing.T) {
	f := run(t, TypeMessageDigest, "getInstance", hooks.SigStringPair, hooks.AllChannels(), nil,
		"SHA-256", "BC")
	if f["algorithm"] != "SHA-256" || f["provider"] != "BC" {
		t.Errorf("fields = %v", f)
	}
}

func TestCipherUpdateOutput(t *testing.T) {
	f := run(t, TypeCipher, "update", hooks.SigBytes, hooks.AllChannels(), []byte{0x01, 0x02},
		[]byte("plain"))
	if f["update text"] != "plain" {
		t.Errorf("update text = %q", f["update text"])
	}
	if f["update result hex"] != "0102" {
		t.Errorf("update result hex = %q", f["update result hex"])
	}

	f = run(t, TypeCipher, "getInstance", hooks.SigString, hooks.AllChannels(), nil, "AES/CBC/PKCS5Padding")
	if f["transformation"] != "AES/CBC/PKCS5Padding" {
		t.Errorf("transformation = %q", f["transformation"])
	}
}

func TestRSAPublicKeySpec(t *testing.T) {
	n := new(big.Int).SetBytes([]byte{0xc0, 0xff, 0xee})
	e := big.NewInt(65537)
	f := run(t, TypeRSAPublicSpec, hooks.Constructor, hooks.SigBigIntPair, hooks.AllChannels(), nil, n, e)

	if f["rsa modulus"] != "c0ffee" {
		t.Errorf("modulus = %q", f["rsa modulus"])
	}
	if f["rsa exponent"] != "10001" {
		t.Errorf("exponent = %q", f["rsa exponent"])
	}
	if f["rsa modulus base64"] != "wP/u" {
		t.Errorf("modulus base64 = %q", f["rsa modulus base64"])
	}
}

func TestX509AndIV(t *testing.T) {
	f := run(t, TypeX509KeySpec, hooks.Constructor, hooks.SigBytes, hooks.AllChannels(), nil, []byte("pub"))
	if f["x509 key base64"] != "cHVi" {
		t.Errorf("x509 = %q", f["x509 key base64"])
	}

	f = run(t, TypeIvParameter, hooks.Constructor, hooks.SigBytes, hooks.AllChannels(), nil,
		[]byte("0123456789abcdef"))
	if !strings.HasPrefix(f["iv hex"], "30313233") {
		t.Errorf("iv hex = %q", f["iv hex"])
	}
}

func TestUpdateRangeOverflowingLength(t *testing.T) {
	f := run(t, TypeMac, "update", hooks.SigBytesRange, hooks.AllChannels(), nil,
		[]byte("xxpayload"), 2, math.MaxInt)

	if f["update text"] != "payload" {
		t.Errorf("update text = %q", f["update text"])
	}
	if f["update range"] == "" {
		t.Error("range not rendered")
	}
}

func TestWindow(t *testing.T) {
	b := []byte("abcdef")
	tests := []struct {
		off, n int
		want   string
	}{
		{0, 6, "abcdef"},
		{2, 2, "cd"},
		{4, 10, "ef"},
		{-1, 2, "ab"},
		{9, 1, ""},
		{1, -1, "bcdef"},
		{2, math.MaxInt, "cdef"},
	}
	for _, tt := range tests {
		if got := string(window(b, tt.off, tt.n)); got != tt.want {
			t.Errorf("window(%d, %d) = %q, want %q", tt.off, tt.n, got, tt.want)
		}
	}
}
