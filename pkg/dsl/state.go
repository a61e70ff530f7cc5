package dsl

import "github.com/aretw0/roboflow/pkg/scenario"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	state scenario.State
}

// Describe sets the free-form description.
func (s *StateBuilder) Describe(text string) *StateBuilder {
	s.state.Description = text
	return s
}

// Priority sets the candidate priority; higher is tried first.
func (s *StateBuilder) Priority(p int) *StateBuilder {
	s.state.Priority = p
	return s
}

// At sets the layout position.
func (s *StateBuilder) At(x, y float64) *StateBuilder {
	s.state.Position = scenario.Point{X: x, Y: y}
	return s
}

// When adds guard statements. Duplicates are dropped.
func (s *StateBuilder) When(statements ...scenario.Statement) *StateBuilder {
	for _, st := range statements {
		if !containsStatement(s.state.Statements, st) {
			s.state.Statements = append(s.state.Statements, st)
		}
	}
	return s
}

// Do appends raw actions.
func (s *StateBuilder) Do(actions ...scenario.Action) *StateBuilder {
	s.state.Actions = append(s.state.Actions, actions...)
	return s
}

// Tap clicks a screen coordinate.
func (s *StateBuilder) Tap(x, y float64) *StateBuilder {
	return s.Do(scenario.ClickCoordsAction{Coords: scenario.Point{X: x, Y: y}})
}

// LongPress holds a screen coordinate for ms milliseconds.
func (s *StateBuilder) LongPress(x, y float64, ms int) *StateBuilder {
	return s.Do(scenario.ClickCoordsAction{Coords: scenario.Point{X: x, Y: y}, DurationMS: ms})
}

// TapText clicks the first element showing text.
func (s *StateBuilder) TapText(text string) *StateBuilder {
	return s.Do(scenario.ClickTextAction{Text: text})
}

// Type writes text into the focused element.
func (s *StateBuilder) Type(text string) *StateBuilder {
	return s.Do(scenario.WriteAction{Text: text})
}

// Launch starts an application by package name.
func (s *StateBuilder) Launch(pkg string) *StateBuilder {
	return s.Do(scenario.RunAppAction{PackageName: pkg})
}

// Wait pauses for ms milliseconds.
func (s *StateBuilder) Wait(ms int) *StateBuilder {
	return s.Do(scenario.WaitAction{DurationMS: ms})
}

// Go adds candidate successors. A state without successors is terminal.
func (s *StateBuilder) Go(ids ...int) *StateBuilder {
	for _, id := range ids {
		if !containsInt(s.state.NextStates, id) {
			s.state.NextStates = append(s.state.NextStates, id)
		}
	}
	return s
}

func containsStatement(list []scenario.Statement, st scenario.Statement) bool {
	for _, v := range list {
		if v == st {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
