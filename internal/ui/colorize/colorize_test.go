package colorize

import (
	"strings"
	"testing"

	"github.com/zboralski/cryptotap/internal/trace"
)

func TestModeNeverIsPlain(t *testing.T) {
	SetMode(ModeNever)
	defer SetMode(ModeAuto)

	for _, s := range []string{trace.Delimiter, "key hex: 00ff", "plain"} {
		if got := Line(s); got != s {
			t.Errorf("Line(%q) = %q", s, got)
		}
	}
	if got := Script("var x = 1;"); got != "var x = 1;" {
		t.Errorf("Script = %q", got)
	}
}

func TestModeAlwaysColors(t *testing.T) {
	SetMode(ModeAlways)
	defer SetMode(ModeAuto)

	got := Line("key hex: 00ff")
	if !strings.Contains(got, "\033[38;2;255;80;80m00ff") {
		t.Errorf("key value not red: %q", got)
	}
	if !strings.Contains(Line("iv hex: 01"), "\033[38;2;180;180;180m01") {
		t.Errorf("hex value not gray: %q", Line("iv hex: 01"))
	}
	if Line(trace.Delimiter) == trace.Delimiter {
		t.Error("delimiter not colored")
	}
	if s := Script("var x = 1;"); !strings.Contains(s, "\033[") {
		t.Errorf("script not highlighted: %q", s)
	}
}

func TestEnvDisables(t *testing.T) {
	SetMode(ModeAuto)
	t.Setenv("CRYPTOTAP_NO_COLOR", "1")
	if !IsDisabled() {
		t.Error("CRYPTOTAP_NO_COLOR ignored")
	}
}
