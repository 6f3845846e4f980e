package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/zboralski/cryptotap/internal/hooks"
	glog "github.com/zboralski/cryptotap/internal/log"
	"github.com/zboralski/cryptotap/internal/host/sim"
	"github.com/zboralski/cryptotap/internal/sink"
	"github.com/zboralski/cryptotap/internal/ui/colorize"
)

func TestWorkloadTransparent(t *testing.T) {
	rt := sim.NewStandard()
	want, err := workload(rt, 3)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}

	counts := sink.NewCounter()
	s := hooks.NewSession(rt, counts, hooks.WithChannels(hooks.AllChannels()), hooks.WithLogger(glog.NewNop()))
	if _, err := s.Install(hooks.DefaultCatalog); err != nil {
		t.Fatalf("Install: %v", err)
	}
	defer s.Detach()

	got, err := workload(rt, 3)
	if err != nil {
		t.Fatalf("instrumented: %v", err)
	}
	if got != want {
		t.Errorf("instrumented fingerprint differs:\n got %s\nwant %s", got, want)
	}
	if counts.Len() == 0 {
		t.Error("no records captured")
	}
	if s.Registry().Faults() != 0 {
		t.Errorf("faults = %d", s.Registry().Faults())
	}

	colorize.SetMode(colorize.ModeNever)
	defer colorize.SetMode(colorize.ModeAuto)
	out := summary(22, rt.Calls(), 0, counts)
	if !strings.Contains(out, fmt.Sprintf("records    %d", counts.Len())) || !strings.Contains(out, "faults     0") {
		t.Errorf("summary = %q", out)
	}
}

func TestRenderTargets(t *testing.T) {
	colorize.SetMode(colorize.ModeNever)
	defer colorize.SetMode(colorize.ModeAuto)

	out := renderTargets(hooks.DefaultCatalog)
	for _, want := range []string{
		"flutter (2)",
		"jca (20)",
		"javax.crypto.Mac\n  doFinal()",
		"  update([B,int,int)",
		"com.smallbuer.flutter_aes_ecb_pkcs5.AesSecurity",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("targets output missing %q:\n%s", want, out)
		}
	}
}
