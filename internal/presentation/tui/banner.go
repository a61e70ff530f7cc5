package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Roboflow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).Profile
	lines := []struct {
		text, color string
	}{
		{"  ____       _            __ _", "#34d399"},
		{" |  _ \\ ___ | |__   ___  / _| | _____      __", "#2dd4bf"},
		{" | |_) / _ \\| '_ \\ / _ \\| |_| |/ _ \\ \\ /\\ / /", "#22d3ee"},
		{" |  _ < (_) | |_) | (_) |  _| | (_) \\ V  V /", "#38bdf8"},
		{" |_| \\_\\___/|_.__/ \\___/|_| |_|\\___/ \\_/\\_/", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
