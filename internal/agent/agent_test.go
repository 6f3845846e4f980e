package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja"

	"github.com/zboralski/cryptotap/internal/hooks"
	_ "github.com/zboralski/cryptotap/internal/hooks/jca"
	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/sink"
	"github.com/zboralski/cryptotap/internal/trace"
)

// fakeJava mimics the parts of the Java bridge the agent touches. Calling an
// overload from inside its own replacement reaches the original, as on a
// device.
const fakeJava = `
var Java = (function () {
    var classes = {};
    function overload(orig) {
        var ov = {implementation: null, depth: 0};
        ov.apply = function (self, args) {
            if (ov.implementation && ov.depth === 0) {
                ov.depth++;
                try {
                    return ov.implementation.apply(self, args);
                } finally {
                    ov.depth--;
                }
            }
            return orig.apply(self, args);
        };
        ov.call = function (self) {
            return ov.apply(self, Array.prototype.slice.call(arguments, 1));
        };
        return ov;
    }
    function define(name, methods) {
        var C = {};
        Object.keys(methods).forEach(function (sig) {
            var open = sig.indexOf('(');
            var m = sig.substring(0, open);
            var inner = sig.substring(open + 1, sig.length - 1);
            if (!C[m]) {
                var table = {};
                C[m] = {
                    overloads: table,
                    overload: function () {
                        var key = Array.prototype.slice.call(arguments).join(',');
                        if (!table[key]) {
                            throw new Error('no overload ' + name + '.' + m + '(' + key + ')');
                        }
                        return table[key];
                    }
                };
            }
            C[m].overloads[inner] = overload(methods[sig]);
        });
        classes[name] = C;
        return C;
    }
    return {
        define: define,
        raw: function (name, obj) { classes[name] = obj; },
        use: function (name) {
            if (!classes[name]) {
                throw new Error('ClassNotFoundException: ' + name);
            }
            return classes[name];
        },
        perform: function (fn) { fn(); }
    };
})();
var console = {log: function (s) { __log('' + s); }};
function send(p) { __post(JSON.stringify({type: 'send', payload: p})); }
`

const cryptoClasses = `
Java.define('javax.crypto.spec.SecretKeySpec', {
    '$init([B,java.lang.String)': function (key, alg) { this.alg = alg; }
});
Java.define('javax.crypto.Mac', {
    'getInstance(java.lang.String)': function (alg) { return 'Mac@' + alg; },
    'update([B)': function (b) { this.fed = (this.fed || 0) + b.length; },
    'doFinal()': function () { return [-34, -83, -66, -17]; },
    'doFinal([B)': function (b) {
        if (b == null) {
            throw new Error('IllegalArgumentException');
        }
        return [1, 2];
    }
});
Java.define('java.security.spec.RSAPublicKeySpec', {
    '$init(java.math.BigInteger,java.math.BigInteger)': function (n, e) {}
});
function big(hex) { return {toString: function (radix) { return hex; }}; }
Java.raw('android.util.Log', {
    getStackTraceString: function (e) { return 'java.lang.Exception\n\tat com.example.App.sign(App.java:42)'; }
});
Java.raw('java.lang.Exception', {$new: function () { return {}; }});
`

type harness struct {
	t    *testing.T
	vm   *goja.Runtime
	msgs [][]byte
	logs []string
}

func jcaDefinitions() []hooks.Definition {
	return hooks.DefaultCatalog.Filter("jca").Definitions()
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{t: t, vm: goja.New()}
	h.vm.Set("__post", func(s string) { h.msgs = append(h.msgs, []byte(s)) })
	h.vm.Set("__log", func(s string) { h.logs = append(h.logs, s) })

	script, err := Generate(jcaDefinitions(), opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	h.run(fakeJava)
	h.run(cryptoClasses)
	h.run(script)
	return h
}

func (h *harness) run(src string) goja.Value {
	h.t.Helper()
	v, err := h.vm.RunString(src)
	if err != nil {
		h.t.Fatalf("script: %v", err)
	}
	return v
}

func (h *harness) dispatch(chs hooks.Channels) *sink.Collector {
	h.t.Helper()
	col := sink.NewCollector(0)
	d := NewDispatcher(hooks.DefaultCatalog, col, WithChannels(chs), WithLogger(glog.NewNop()))
	for _, m := range h.msgs {
		if err := d.Handle(m); err != nil {
			h.t.Fatalf("Handle(%s): %v", m, err)
		}
	}
	return col
}

func fields(r *trace.Record) map[string]string {
	out := make(map[string]string)
	for _, f := range r.Fields {
		out[f.Label] = f.Value
	}
	return out
}

func TestGenerate(t *testing.T) {
	script, err := Generate(jcaDefinitions(), Options{Header: "cryptotap agent\nbuilt for tests"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"// cryptotap agent\n// built for tests\n",
		`__hook("javax.crypto.Mac", "doFinal", [])`,
		`__hook("javax.crypto.Mac", "update", ["[B", "int", "int"])`,
		`__hook("javax.crypto.spec.SecretKeySpec", "$init", ["[B", "java.lang.String"])`,
		"var stack = null;",
		"of 20 bindings installed",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}

	withStack, _ := Generate(jcaDefinitions(), Options{Stack: true})
	if !strings.Contains(withStack, "var stack = __stack();") {
		t.Error("stack option not rendered")
	}

	_, err = Generate([]hooks.Definition{{Type: "a.B", Method: "c", Signature: hooks.Signature(99)}}, Options{})
	if !errors.Is(err, hooks.ErrInvalidKey) {
		t.Errorf("invalid signature: %v", err)
	}
}

func TestAgentRoundTrip(t *testing.T) {
	h := newHarness(t, Options{})
	if len(h.logs) != 1 || h.logs[0] != "cryptotap: 6 of 20 bindings installed" {
		t.Fatalf("logs = %q", h.logs)
	}

	h.run(`
var K = Java.use('javax.crypto.spec.SecretKeySpec');
K.$init.overload('[B', 'java.lang.String').call(K, [107, 51, 121], 'HmacSHA256');
var M = Java.use('javax.crypto.Mac');
M.getInstance.overload('java.lang.String').call(M, 'HmacSHA256');
M.update.overload('[B').call(M, [104, 105]);
var R = Java.use('java.security.spec.RSAPublicKeySpec');
R.$init.overload('java.math.BigInteger', 'java.math.BigInteger').call(R, big('c0ffee'), big('10001'));
`)
	got := h.run(`M.doFinal.overload().call(M)`).Export().([]any)
	if len(got) != 4 || got[0] != int64(-34) {
		t.Errorf("doFinal result changed: %v", got)
	}
	if fed := h.run(`M.fed`).ToInteger(); fed != 2 {
		t.Errorf("original update not called: fed = %d", fed)
	}
	if len(h.msgs) != 5 {
		t.Fatalf("messages = %d, want 5", len(h.msgs))
	}

	col := h.dispatch(hooks.AllChannels())
	recs := col.Records()
	if len(recs) != 5 {
		t.Fatalf("records = %d, want 5", len(recs))
	}

	key := fields(recs[0])
	if key["algorithm"] != "HmacSHA256" || key["key hex"] != "6b3379" || key["key text"] != "k3y" {
		t.Errorf("key fields = %v", key)
	}
	if !recs[0].Tags.Has(trace.Remote) || !recs[0].Tags.Has(trace.Key) {
		t.Errorf("key tags = %v", recs[0].Tags)
	}

	rsa := fields(recs[3])
	if rsa["rsa modulus"] != "c0ffee" || rsa["rsa exponent"] != "10001" {
		t.Errorf("rsa fields = %v", rsa)
	}

	final := fields(recs[4])
	if final["doFinal result hex"] != "deadbeef" || final["doFinal result base64"] != "3q2+7w==" {
		t.Errorf("doFinal fields = %v", final)
	}
	if recs[4].Stack != "" {
		t.Errorf("stack shipped without option: %q", recs[4].Stack)
	}
}

func TestOriginalExceptionPropagates(t *testing.T) {
	h := newHarness(t, Options{})
	ok := h.run(`
var M = Java.use('javax.crypto.Mac');
var caught = null;
try {
    M.doFinal.overload('[B').call(M, null);
} catch (e) {
    caught = e;
}
caught !== null && caught.message === 'IllegalArgumentException';
`)
	if !ok.ToBoolean() {
		t.Error("original exception not delivered to caller")
	}
	if len(h.msgs) != 0 {
		t.Errorf("faulted call was reported: %s", h.msgs)
	}
}

func TestStackFollowsChannel(t *testing.T) {
	h := newHarness(t, Options{Stack: true})
	h.run(`var M = Java.use('javax.crypto.Mac'); M.doFinal.overload().call(M);`)

	col := h.dispatch(hooks.NewChannels(hooks.ChanStack, hooks.ChanOutput))
	recs := col.Records()
	if len(recs) != 1 || !strings.Contains(recs[0].Stack, "com.example.App.sign") {
		t.Fatalf("records = %+v", recs)
	}

	col = h.dispatch(hooks.NewChannels(hooks.ChanOutput))
	if recs := col.Records(); len(recs) != 1 || recs[0].Stack != "" {
		t.Errorf("stack emitted with channel off: %+v", recs)
	}
}

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(`{"type":"log","level":"info","payload":"hello"}`))
	if err != nil || m.Kind != KindLog || m.Text != "hello" || m.Level != "info" {
		t.Errorf("log = %+v, %v", m, err)
	}

	m, err = Decode([]byte(`{"type":"error","description":"ReferenceError: x","stack":"at agent.js:1"}`))
	if err != nil || m.Kind != KindError || m.Text != "ReferenceError: x" || m.Stack != "at agent.js:1" {
		t.Errorf("error = %+v, %v", m, err)
	}

	m, err = Decode([]byte(`{"type":"send","payload":"ready"}`))
	if err != nil || m.Kind != KindSend || m.Payload != nil || m.Text != "ready" {
		t.Errorf("string send = %+v, %v", m, err)
	}

	for _, bad := range []string{`{}`, `{"type":"other"}`, `{"type":"send"}`, `not json`} {
		if _, err := Decode([]byte(bad)); !errors.Is(err, ErrBadMessage) {
			t.Errorf("Decode(%s) = %v, want ErrBadMessage", bad, err)
		}
	}
}

func TestDecodeCapture(t *testing.T) {
	c, err := DecodeCapture([]byte(`{"binding":"x.Y.z([B)","args":[[1,255,-1],2.5,null,"s",true],"result":7,"stack":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Binding != "x.Y.z([B)" || len(c.Args) != 5 || c.Result != int64(7) || c.Stack != "" {
		t.Fatalf("capture = %+v", c)
	}
	b, ok := hooks.ToBytes(c.Args[0])
	if !ok || len(b) != 3 || b[1] != 0xff || b[2] != 0xff {
		t.Errorf("bytes = %v", b)
	}
	if c.Args[1] != 2.5 || c.Args[2] != nil || c.Args[3] != "s" || c.Args[4] != true {
		t.Errorf("args = %#v", c.Args)
	}

	c, err = DecodeCapture([]byte(`{"binding":"x.Y.z()","args":null}`))
	if err != nil || c.Args != nil || c.Result != nil {
		t.Errorf("null args = %+v, %v", c, err)
	}

	for _, bad := range []string{`{"args":[]}`, `{"binding":"a.B.c()","args":{}}`} {
		if _, err := DecodeCapture([]byte(bad)); !errors.Is(err, ErrBadMessage) {
			t.Errorf("DecodeCapture(%s) = %v", bad, err)
		}
	}
}

func TestDispatcherFailures(t *testing.T) {
	cat := hooks.NewCatalog()
	cat.RegisterFunc("test", "com.example.Boom", "run", hooks.SigNone, func(c *hooks.Capture) {
		panic("observer bug")
	})
	d := NewDispatcher(cat, sink.NewCollector(0), WithLogger(glog.NewNop()))

	err := d.Handle([]byte(`{"type":"send","payload":{"binding":"com.example.Missing.run()","args":[]}}`))
	if !errors.Is(err, ErrUnknownBinding) {
		t.Errorf("unknown binding = %v", err)
	}

	if err := d.Handle([]byte(`{"type":"send","payload":{"binding":"com.example.Boom.run()","args":[]}}`)); err != nil {
		t.Errorf("observer panic escaped: %v", err)
	}
	if d.Faults() != 1 || d.Received() != 1 {
		t.Errorf("faults = %d, received = %d", d.Faults(), d.Received())
	}

	var se *ScriptError
	err = d.Handle([]byte(`{"type":"error","description":"TypeError: boom","stack":"at agent.js:3"}`))
	if !errors.As(err, &se) || se.Stack != "at agent.js:3" {
		t.Errorf("script error = %v", err)
	}
}
