package validator

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/aretw0/roboflow/pkg/scenario"
)

// Warning is a finding that does not make a scenario invalid but usually indicates a mistake.
type Warning struct {
	StateID int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("state %d: %s", w.StateID, w.Message)
}

// Lint crawls sc from its initial state and reports unreachable states and
// successors that can never be selected. sc must already be structurally valid.
func Lint(sc *scenario.Scenario) []Warning {
	var warnings []Warning

	visited := make(map[int]bool)
	queue := []int{sc.InitialStateID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		st, ok := sc.State(id)
		if !ok {
			continue
		}
		warnings = append(warnings, shadowed(sc, st)...)
		for _, next := range st.NextStates {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	for _, st := range sc.States {
		if !visited[st.StateID] {
			warnings = append(warnings, Warning{StateID: st.StateID, Message: "unreachable from the initial state"})
		}
	}
	return warnings
}

// shadowed reports successors ordered after one with an empty guard, which always passes.
func shadowed(sc *scenario.Scenario, st *scenario.State) []Warning {
	var cands []*scenario.State
	for _, id := range st.NextStates {
		if c, ok := sc.State(id); ok {
			cands = append(cands, c)
		}
	}
	slices.SortStableFunc(cands, func(a, b *scenario.State) int {
		if a.Priority != b.Priority {
			return cmp.Compare(b.Priority, a.Priority)
		}
		return cmp.Compare(a.StateID, b.StateID)
	})

	var warnings []Warning
	for i, c := range cands {
		if len(c.Statements) > 0 {
			continue
		}
		for _, later := range cands[i+1:] {
			warnings = append(warnings, Warning{
				StateID: st.StateID,
				Message: fmt.Sprintf("successor %d is never selected: unguarded successor %d comes first", later.StateID, c.StateID),
			})
		}
		break
	}
	return warnings
}
