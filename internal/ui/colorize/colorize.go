package colorize

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/zboralski/cryptotap/internal/trace"
)

// Modes for SetMode.
const (
	ModeAuto int32 = iota
	ModeAlways
	ModeNever
)

var mode atomic.Int32

// SetMode overrides environment detection. ModeAuto restores it.
func SetMode(m int32) {
	mode.Store(m)
}

// getScriptStyle returns the script style with fallbacks
func getScriptStyle() *chroma.Style {
	candidates := []string{"cryptotap-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// IsDisabled returns true if colors are disabled via SetMode or environment
func IsDisabled() bool {
	switch mode.Load() {
	case ModeAlways:
		return false
	case ModeNever:
		return true
	}
	return os.Getenv("CRYPTOTAP_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

// Script highlights JavaScript source using Chroma
func Script(src string) string {
	if IsDisabled() {
		return src
	}

	lexer := lexers.Get("javascript")
	if lexer == nil {
		return src
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getScriptStyle(), iterator); err != nil {
		return src
	}
	return buf.String()
}

func rgb(hex, s string) string {
	var r, g, b int
	fmt.Sscanf(hex, "#%02X%02X%02X", &r, &g, &b)
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", r, g, b, s)
}

func paint(hex, s string) string {
	if IsDisabled() {
		return s
	}
	return rgb(hex, s)
}

// Binding formats a binding name in yellow
func Binding(s string) string { return paint(ColorBinding, s) }

// Label formats a field label in light blue
func Label(s string) string { return paint(ColorLabel, s) }

// Key formats captured key material in red (high visibility)
func Key(s string) string { return paint(ColorKey, s) }

// String formats text values in pink
func String(s string) string { return paint(ColorString, s) }

// HexBytes formats hex and Base64 renderings in light gray
func HexBytes(s string) string { return paint(ColorHex, s) }

// Border formats delimiters in dark gray
func Border(s string) string { return paint(ColorBorder, s) }

// Detail formats secondary text in light gray
func Detail(s string) string { return paint(ColorHex, s) }

// Tag formats a hashtag in light pink
func Tag(s string) string { return paint("#FFB4C8", s) }

// Header formats header text in blue
func Header(s string) string { return paint("#569CD6", s) }

// Error formats error messages in pink
func Error(s string) string { return paint(ColorString, s) }

// Line colorizes one rendered capture line: delimiters, stack frames and
// "label: value" fields.
func Line(line string) string {
	if IsDisabled() {
		return line
	}
	switch {
	case line == trace.Delimiter:
		return Border(line)
	case strings.HasPrefix(line, "\tat ") || strings.HasPrefix(line, "java.lang.Throwable"):
		return Detail(line)
	}

	label, value, ok := strings.Cut(line, ": ")
	if !ok {
		// Multi-line stacks arrive as one line with embedded newlines.
		if strings.Contains(line, "\n") {
			return Detail(line)
		}
		return line
	}

	switch {
	case strings.HasPrefix(label, "key"):
		value = Key(value)
	case strings.HasSuffix(label, " hex"), strings.HasSuffix(label, " base64"):
		value = HexBytes(value)
	default:
		value = String(value)
	}
	return Label(label) + Detail(":") + " " + value
}
