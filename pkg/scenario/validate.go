package scenario

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

var (
	conditions = []Condition{GreaterThan, LowerThan, Equal, NotEqual}
	valueTypes = []ValueType{XPath, Const}
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool { return slices.Contains(conditions, c) }

// Valid reports whether v is a known operand type.
func (v ValueType) Valid() bool { return slices.Contains(valueTypes, v) }

// Validate checks the structural invariants of the scenario: the initial state exists,
// state ids are unique, every next_states id names a state, enum values are known,
// actions are non-nil and durations are non-negative.
func (s *Scenario) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	ids := make(map[int]bool, len(s.States))
	for _, st := range s.States {
		if ids[st.StateID] {
			add("duplicate state_id %d", st.StateID)
		}
		ids[st.StateID] = true
	}
	if !ids[s.InitialStateID] {
		add("initial_state_id %d matches no state", s.InitialStateID)
	}

	for _, st := range s.States {
		for _, next := range st.NextStates {
			if !ids[next] {
				add("state %d: next state %d does not exist", st.StateID, next)
			}
		}
		for i, stmt := range st.Statements {
			if !stmt.ValueType1.Valid() || !stmt.ValueType2.Valid() {
				add("state %d: statement %d: unknown value type", st.StateID, i)
			}
			if !stmt.Condition.Valid() {
				add("state %d: statement %d: unknown condition %q", st.StateID, i, stmt.Condition)
			}
		}
		for i, a := range st.Actions {
			if msg := checkAction(a); msg != "" {
				add("state %d: action %d: %s", st.StateID, i, msg)
			}
		}
	}

	if len(problems) > 0 {
		return &InvalidScenarioError{Scenario: s.Name, Problems: problems}
	}
	return nil
}

var packageName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)

func checkAction(a Action) string {
	switch a := a.(type) {
	case nil:
		return "nil action"
	case ClickCoordsAction:
		if a.DurationMS < 0 {
			return "negative duration_ms"
		}
	case ClickTextAction:
		if a.DurationMS < 0 {
			return "negative duration_ms"
		}
	case WaitAction:
		if a.DurationMS < 0 {
			return "negative duration_ms"
		}
	case RunAppAction:
		if !packageName.MatchString(a.PackageName) {
			return fmt.Sprintf("invalid package_name %q", a.PackageName)
		}
	}
	return ""
}

// Validate checks every scenario and rejects duplicate scenario names.
// All failures are joined into one error.
func (p *Project) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(p.Scenarios))
	for i := range p.Scenarios {
		sc := &p.Scenarios[i]
		if seen[sc.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateScenario, sc.Name))
		}
		seen[sc.Name] = true
		if err := sc.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
