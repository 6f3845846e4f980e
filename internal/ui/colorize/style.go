// Package colorize provides terminal colors for capture output and syntax
// highlighting for generated agent scripts.
package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	// Register the script style on package initialization
	_ = ScriptDark
}

// Theme colors
const (
	ColorKey     = "#FF5050" // Red for key material
	ColorBinding = "#FFC800" // Yellow for binding names
	ColorLabel   = "#87CEEB" // Light blue for field labels
	ColorString  = "#FF80C0" // Pink for text values
	ColorHex     = "#B4B4B4" // Light gray for hex/base64
	ColorBorder  = "#505050" // Dark gray for delimiters
	ColorComment = "#FF8000" // Orange for comments
)

// ScriptDark is the style for agent JavaScript.
var ScriptDark = styles.Register(chroma.MustNewStyle("cryptotap-dark", chroma.StyleEntries{
	chroma.Text:       "#FFFFFF",
	chroma.Background: "bg:#000000",
	chroma.Comment:    ColorComment,

	chroma.Keyword:            "#569CD6",
	chroma.KeywordConstant:    "#569CD6",
	chroma.KeywordDeclaration: "#569CD6",
	chroma.Name:               "#FFFFFF",
	chroma.NameBuiltin:        ColorLabel,
	chroma.NameOther:          ColorLabel,
	chroma.NameFunction:       ColorBinding,

	chroma.LiteralNumber: ColorString,
	chroma.String:        "#00FF00",

	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",
}))
