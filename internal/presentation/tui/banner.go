package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the nodeflow banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()
	lines := []struct{ text, color string }{
		{"                 _       __ _               ", "#38bdf8"},
		{"  _ __   ___   __| | ___ / _| | _____      __", "#22d3ee"},
		{" | '_ \\ / _ \\ / _` |/ _ \\ |_| |/ _ \\ \\ /\\ / /", "#2dd4bf"},
		{" | | | | (_) | (_| |  __/  _| | (_) \\ V  V / ", "#34d399"},
		{" |_| |_|\\___/ \\__,_|\\___|_| |_|\\___/ \\_/\\_/  ", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
