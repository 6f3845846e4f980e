package flutter

import (
	"testing"

	"github.com/zboralski/cryptotap/internal/hooks"
)

func render(t *testing.T, method string, chs hooks.Channels, result any, args ...any) map[string]string {
	t.Helper()
	key := hooks.Key{Type: TypeAesSecurity, Method: method, Signature: hooks.SigStringPair}
	def, ok := hooks.DefaultCatalog.Lookup(key)
	if !ok {
		t.Fatalf("%s not registered", key)
	}
	c := hooks.NewCapture(key, def.Category, nil, args, result, chs)
	def.Observer(c)

	fields := make(map[string]string)
	for _, f := range c.Record().Fields {
		fields[f.Label] = f.Value
	}
	return fields
}

func TestEncrypt(t *testing.T) {
	f := render(t, "encrypt", hooks.NewChannels(hooks.ChanHelper), "DEADBEEF", "hello", "secret")

	if f["encrypt input"] != "hello" {
		t.Errorf("input = %q", f["encrypt input"])
	}
	if f["key"] != "secret" {
		t.Errorf("key = %q", f["key"])
	}
	if f["result"] != "DEADBEEF" {
		t.Errorf("result = %q", f["result"])
	}
	if f["result base64"] != "3q2+7w==" {
		t.Errorf("result base64 = %q", f["result base64"])
	}
}

func TestDecrypt(t *testing.T) {
	f := render(t, "decrypt", hooks.NewChannels(hooks.ChanHelper), "hello", "deadbeef", "secret")

	if f["decrypt input"] != "deadbeef" {
		t.Errorf("input = %q", f["decrypt input"])
	}
	if f["input base64"] != "3q2+7w==" {
		t.Errorf("input base64 = %q", f["input base64"])
	}
	if f["result"] != "hello" {
		t.Errorf("result = %q", f["result"])
	}
	if _, ok := f["result text"]; ok {
		t.Errorf("plain result decoded as hex: %q", f["result text"])
	}
}

func TestDecryptHexResult(t *testing.T) {
	f := render(t, "decrypt", hooks.NewChannels(hooks.ChanHelper), "68656C6C6F", "deadbeef", "secret")

	if f["result"] != "68656C6C6F" {
		t.Errorf("result = %q", f["result"])
	}
	if f["result text"] != "hello" {
		t.Errorf("result text = %q", f["result text"])
	}
}

func TestMalformedHexStillRenders(t *testing.T) {
	f := render(t, "decrypt", hooks.NewChannels(hooks.ChanHelper), "", "abc", "k")

	if f["decrypt input"] != "abc" {
		t.Errorf("input = %q", f["decrypt input"])
	}
	if f["input base64"] == "" {
		t.Error("malformed hex produced no field")
	}
}

func TestHelperChannelOff(t *testing.T) {
	f := render(t, "encrypt", hooks.AllChannels().With(hooks.ChanHelper), "00", "a", "b")
	if len(f) == 0 {
		t.Fatal("expected fields with helper on")
	}

	f = render(t, "encrypt", hooks.NewChannels(hooks.ChanKey, hooks.ChanInput), "00", "a", "b")
	if len(f) != 0 {
		t.Errorf("fields = %v, want none without helper", f)
	}
}
