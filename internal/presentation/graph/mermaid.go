package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/scenario"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	Visited []int
	Current int
	// Failed marks Current as the state the run stopped in without a terminal success.
	Failed bool
}

// OverlayFromReport highlights the trace of a finished run.
func OverlayFromReport(r *domain.Report) *GraphOverlay {
	if r == nil || len(r.Trace) == 0 {
		return nil
	}
	return &GraphOverlay{
		Visited: r.Trace,
		Current: r.Trace[len(r.Trace)-1],
		Failed:  r.Outcome != domain.OutcomeSuccess,
	}
}

// GenerateMermaid produces a Mermaid flowchart for a scenario.
// It applies semantic styling:
// - Initial state: ((Circle))
// - Terminal state (no successors): ([Stadium])
// - Default: [Rectangle]
// Edges are labelled with the guard of the target state.
func GenerateMermaid(sc *scenario.Scenario, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, st := range sc.States {
		opener, closer := "[", "]"
		switch {
		case st.StateID == sc.InitialStateID:
			opener, closer = "((", "))"
		case len(st.NextStates) == 0:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", nodeID(st.StateID), opener, label(st), closer)
	}

	for _, st := range sc.States {
		for _, to := range st.NextStates {
			arrow := "-->"
			if target, ok := sc.State(to); ok && len(target.Statements) > 0 {
				arrow = fmt.Sprintf("-- \"%s\" -->", guard(target.Statements))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", nodeID(st.StateID), arrow, nodeID(to))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[int]bool)
		for _, id := range overlay.Visited {
			if seen[id] || id == overlay.Current {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", nodeID(id))
		}
		class := "current"
		if overlay.Failed {
			class = "failed"
		}
		fmt.Fprintf(&sb, "    class %s %s;\n", nodeID(overlay.Current), class)
	}

	return sb.String()
}

func nodeID(id int) string {
	if id < 0 {
		return fmt.Sprintf("s_%d", -id)
	}
	return fmt.Sprintf("s%d", id)
}

func label(st scenario.State) string {
	name := escape(st.Name)
	if name == "" {
		name = "untitled"
	}
	return fmt.Sprintf("%d: %s", st.StateID, name)
}

var symbols = map[scenario.Condition]string{
	scenario.Equal:       "==",
	scenario.NotEqual:    "!=",
	scenario.GreaterThan: ">",
	scenario.LowerThan:   "<",
}

func guard(stmts []scenario.Statement) string {
	parts := make([]string, 0, len(stmts))
	for _, s := range stmts {
		parts = append(parts, fmt.Sprintf("%s %s %s",
			operand(s.ValueType1, s.Value1), symbols[s.Condition], operand(s.ValueType2, s.Value2)))
	}
	return escape(strings.Join(parts, " and "))
}

func operand(vt scenario.ValueType, v string) string {
	if vt == scenario.Const {
		return "'" + v + "'"
	}
	return v
}

// escape keeps labels inside Mermaid's double-quoted strings.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
