package sink

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/zboralski/cryptotap/internal/hooks"
	"github.com/zboralski/cryptotap/internal/host/sim"
	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/trace"
)

func sampleRecord() *trace.Record {
	r := trace.NewRecord("javax.crypto.spec.SecretKeySpec.$init([B,java.lang.String)", "jca")
	r.Add("algorithm", "AES")
	r.Add("key text", "hunter2hunter2!!")
	r.Add("key hex", "68756e746572326875")
	r.Add("note", "user alice@example.com")
	return r
}

func TestWriterWritesInOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithFlushInterval(time.Millisecond), WithFormat(strings.ToUpper))

	for _, l := range []string{"one", "two", "three"} {
		w.Emit(l)
	}
	w.Close()

	if got := buf.String(); got != "ONE\nTWO\nTHREE\n" {
		t.Errorf("output = %q", got)
	}
	if w.Dropped() != 0 {
		t.Errorf("dropped = %d", w.Dropped())
	}
}

func TestWriterDropsAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Close()
	w.Close()

	w.Emit("late")
	if w.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", w.Dropped())
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriterConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithBuffer(4096))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.Emit("line")
			}
		}()
	}
	wg.Wait()
	w.Close()

	written := strings.Count(buf.String(), "line\n")
	if int64(written)+w.Dropped() != 800 {
		t.Errorf("written %d + dropped %d != 800", written, w.Dropped())
	}
}

func TestWriterKeepsRecordsWhole(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithBuffer(1<<16))
	r, err := NewRedactor([]string{"secret"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	rt := sim.NewStandard()
	reg := hooks.NewRegistry(rt, r.Wrap(Multi{w}),
		hooks.WithChannels(hooks.NewChannels(hooks.ChanInput)),
		hooks.WithLogger(glog.NewNop()))
	key := hooks.Key{Type: sim.AesSecurity, Method: "encrypt", Signature: hooks.SigStringPair}
	if err := reg.Bind(key, func(c *hooks.Capture) {
		for i := 0; i < 20; i++ {
			c.Text(hooks.ChanInput, "id", c.ArgString(0))
		}
	}); err != nil {
		t.Fatal(err)
	}

	const callers, calls = 8, 500
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < calls; j++ {
				in := fmt.Sprintf("caller-%d-%d", i, j)
				if _, err := rt.CallStatic(sim.AesSecurity, "encrypt", hooks.SigStringPair, in, "0123456789abcdef"); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	w.Close()

	blocks := strings.Split(buf.String(), trace.Delimiter+"\n")
	if blocks[0] != "" {
		t.Fatalf("output does not start with a delimiter: %q", blocks[0])
	}
	blocks = blocks[1:]
	for _, b := range blocks {
		lines := strings.Split(strings.TrimSuffix(b, "\n"), "\n")
		if len(lines) != 20 {
			t.Fatalf("record has %d lines: %q", len(lines), b)
		}
		for _, l := range lines[1:] {
			if l != lines[0] {
				t.Fatalf("record mixes invocations: %q and %q", lines[0], l)
			}
		}
	}
	if int64(len(blocks)*21)+w.Dropped() != callers*calls*21 {
		t.Errorf("written %d records + dropped %d lines != %d calls", len(blocks), w.Dropped(), callers*calls)
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector(2)
	for i := 0; i < 3; i++ {
		c.EmitRecord(sampleRecord())
	}
	c.Emit("raw")

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if got := c.ByTag()["jca"]; got != 2 {
		t.Errorf("ByTag[jca] = %d", got)
	}
	if lines := c.Lines(); len(lines) != 1 || lines[0] != "raw" {
		t.Errorf("Lines = %v", lines)
	}
	c.Reset()
	if c.Len() != 0 || len(c.Lines()) != 0 {
		t.Error("Reset kept data")
	}
}

func TestCounter(t *testing.T) {
	c := NewCounter()
	for i := 0; i < 3; i++ {
		c.EmitRecord(sampleRecord())
	}
	c.Emit("raw")

	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if got := c.ByTag()["jca"]; got != 3 {
		t.Errorf("ByTag[jca] = %d", got)
	}
}

func TestRedactorRecord(t *testing.T) {
	r, err := NewRedactor([]string{`[a-z]+@[a-z.]+`}, []string{"key"})
	if err != nil {
		t.Fatal(err)
	}
	c := NewCollector(0)
	r.Wrap(c).(interface{ EmitRecord(*trace.Record) }).EmitRecord(sampleRecord())

	recs := c.Records()
	if len(recs) != 1 {
		t.Fatalf("records = %d", len(recs))
	}
	got := make(map[string]string)
	for _, f := range recs[0].Fields {
		got[f.Label] = f.Value
	}
	if got["algorithm"] != "AES" {
		t.Errorf("algorithm = %q", got["algorithm"])
	}
	if got["key text"] != strings.Repeat("*", 16) {
		t.Errorf("key text = %q", got["key text"])
	}
	if strings.Contains(got["key hex"], "6") {
		t.Errorf("key hex = %q", got["key hex"])
	}
	if got["note"] != "user *****************" {
		t.Errorf("note = %q", got["note"])
	}
}

func TestRedactorLines(t *testing.T) {
	r, err := NewRedactor(nil, []string{"key"})
	if err != nil {
		t.Fatal(err)
	}
	c := NewCollector(0)
	s := r.Wrap(c)
	s.Emit("key hex: 0011")
	s.Emit("iv hex: 0011")

	lines := c.Lines()
	if lines[0] != "key hex: ****" || lines[1] != "iv hex: 0011" {
		t.Errorf("lines = %q", lines)
	}
}

func TestRedactorBadPattern(t *testing.T) {
	if _, err := NewRedactor([]string{"("}, nil); err == nil {
		t.Error("bad pattern accepted")
	}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSink(&glog.Logger{Logger: zap.New(core)})
	s.EmitRecord(sampleRecord())

	entries := logs.FilterMessage("capture").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["algorithm"] != "AES" {
		t.Errorf("algorithm = %v", ctx["algorithm"])
	}
	if ctx["binding"] != "javax.crypto.spec.SecretKeySpec.$init([B,java.lang.String)" {
		t.Errorf("binding = %v", ctx["binding"])
	}
}

func TestMulti(t *testing.T) {
	a, b := NewCollector(0), NewCollector(0)
	var lines []string
	m := Multi{a, b, lineFunc(func(l string) { lines = append(lines, l) })}

	m.EmitRecord(sampleRecord())
	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("collectors = %d, %d", a.Len(), b.Len())
	}
	if len(lines) != 5 || lines[0] != trace.Delimiter {
		t.Errorf("lines = %q", lines)
	}
}

type lineFunc func(string)

func (f lineFunc) Emit(l string) { f(l) }
