package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidScenario is returned when a scenario violates a structural invariant.
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrScenarioNotFound is returned when no scenario has the requested name.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrStateNotFound is returned when no state has the requested id.
	ErrStateNotFound = errors.New("state not found")
	// ErrDuplicateScenario is returned when a scenario name is already taken.
	ErrDuplicateScenario = errors.New("duplicate scenario name")
	// ErrInitialState is returned when an edit would remove the initial state.
	ErrInitialState = errors.New("cannot remove the initial state")
)

// InvalidScenarioError lists every invariant a scenario violates.
type InvalidScenarioError struct {
	Scenario string
	Problems []string
}

func (e *InvalidScenarioError) Error() string {
	return fmt.Sprintf("invalid scenario %q: %s", e.Scenario, strings.Join(e.Problems, "; "))
}

func (e *InvalidScenarioError) Unwrap() error { return ErrInvalidScenario }
