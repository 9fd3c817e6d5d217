package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour,
// wrapped to width columns (0 keeps glamour's default).
func NewRenderer(width int) func(string) (string, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ResultMarkdown formats a calculation result as a markdown table, one row
// per output, ordered by node then output name.
func ResultMarkdown(graphID string, result domain.CalculationResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", graphID)
	if len(result) == 0 {
		sb.WriteString("_No nodes were calculated._\n")
		return sb.String()
	}

	sb.WriteString("| Node | Output | Value |\n|---|---|---|\n")
	for _, nodeID := range result.NodeIDs() {
		rec := result[nodeID]
		keys := rec.Keys()
		if len(keys) == 0 {
			fmt.Fprintf(&sb, "| %s | | |\n", escapeCell(nodeID))
		}
		for _, k := range keys {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", escapeCell(nodeID), escapeCell(k), escapeCell(fmt.Sprint(rec[k])))
		}
	}
	return sb.String()
}

// RenderResult writes the result to w, styled when w is a terminal.
func RenderResult(w io.Writer, graphID string, result domain.CalculationResult) error {
	md := ResultMarkdown(graphID, result)
	if IsTerminal(w) {
		width, _, err := term.GetSize(int(w.(*os.File).Fd()))
		if err != nil {
			width = 0
		}
		if out, err := NewRenderer(width)(md); err == nil {
			md = out
		}
	}
	_, err := io.WriteString(w, md)
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
