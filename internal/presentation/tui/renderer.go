package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/scenario"
)

// Renderer turns markdown into terminal output.
type Renderer func(string) (string, error)

// NewRenderer returns a renderer using glamour with an automatically detected style.
func NewRenderer() Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return PlainRenderer
	}
	return r.Render
}

// PlainRenderer returns markdown unchanged.
func PlainRenderer(markdown string) (string, error) {
	return markdown, nil
}

// RendererFor picks glamour when f is an interactive terminal and plain text otherwise.
func RendererFor(f *os.File) Renderer {
	if term.IsTerminal(int(f.Fd())) {
		return NewRenderer()
	}
	return PlainRenderer
}

// ReportMarkdown describes a run. sc, when given, names the visited states.
func ReportMarkdown(r *domain.Report, sc *scenario.Scenario) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Scenario)
	fmt.Fprintf(&sb, "| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Run | `%s` |\n", r.RunID)
	if r.DeviceID != "" {
		fmt.Fprintf(&sb, "| Device | `%s` |\n", r.DeviceID)
	}
	fmt.Fprintf(&sb, "| Outcome | **%s** |\n", r.Outcome)
	fmt.Fprintf(&sb, "| Steps | %d |\n", r.Steps)
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(&sb, "| Duration | %s |\n", d.Round(time.Millisecond))
	}
	if r.ErrorKind != domain.ErrorKindNone {
		fmt.Fprintf(&sb, "| Error | %s: %s |\n", r.ErrorKind, strings.ReplaceAll(r.Error, "|", "\\|"))
	}

	if len(r.Trace) > 0 {
		sb.WriteString("\n## Trace\n\n")
		for i, id := range r.Trace {
			name := ""
			if sc != nil {
				if st, ok := sc.State(id); ok {
					name = " " + st.Name
				}
			}
			fmt.Fprintf(&sb, "%d. `%d`%s\n", i+1, id, name)
		}
	}
	return sb.String()
}
