package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zboralski/cryptotap/internal/hooks"
	"github.com/zboralski/cryptotap/internal/ui/colorize"
)

var (
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorize.ColorBinding))
	typeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorize.ColorLabel))
	methodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorize.ColorString))
	sigStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(colorize.ColorHex))
	groupStyle    = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color(colorize.ColorBorder)).
			PaddingLeft(1)
)

func targetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List interception targets by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(renderTargets(cfg.Catalog(hooks.DefaultCatalog)))
			return nil
		},
	}
}

// renderTargets groups definitions by category, then by type.
func renderTargets(cat *hooks.Catalog) string {
	render := func(s lipgloss.Style, v string) string {
		if colorize.IsDisabled() {
			return v
		}
		return s.Render(v)
	}

	var blocks []string
	for _, category := range cat.Categories() {
		var lines []string
		lastType := ""
		for _, d := range cat.Filter(category).Definitions() {
			if d.Type != lastType {
				lines = append(lines, render(typeStyle, d.Type))
				lastType = d.Type
			}
			lines = append(lines, "  "+render(methodStyle, d.Method)+render(sigStyle, "("+d.Signature.String()+")"))
		}

		title := render(categoryStyle, fmt.Sprintf("%s (%d)", category, len(cat.Filter(category).Definitions())))
		body := strings.Join(lines, "\n")
		if !colorize.IsDisabled() {
			body = groupStyle.Render(body)
		}
		blocks = append(blocks, title+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}
