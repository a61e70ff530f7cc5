package scenario

import (
	"fmt"
	"slices"
	"sync"
)

// ChangeKind identifies an edit applied to a project.
type ChangeKind string

const (
	ScenarioCreated   ChangeKind = "scenario_created"
	ScenarioRenamed   ChangeKind = "scenario_renamed"
	ScenarioDeleted   ChangeKind = "scenario_deleted"
	StateCreated      ChangeKind = "state_created"
	StateUpdated      ChangeKind = "state_updated"
	StateMoved        ChangeKind = "state_moved"
	StateDeleted      ChangeKind = "state_deleted"
	ConnectionAdded   ChangeKind = "connection_added"
	ConnectionRemoved ChangeKind = "connection_removed"
	ActionAdded       ChangeKind = "action_added"
	StatementAdded    ChangeKind = "statement_added"
)

// Change describes one applied edit. StateID is meaningful only for state-level changes.
type Change struct {
	Kind     ChangeKind
	Scenario string
	StateID  int
}

// Editor applies edits to a project and notifies subscribers after each one.
// Subscribers run synchronously on the editing goroutine, after the edit is committed.
type Editor struct {
	mu      sync.Mutex
	project *Project
	subs    map[int]func(Change)
	nextSub int
}

// NewEditor edits p in place. A nil p starts a new project.
func NewEditor(p *Project) *Editor {
	if p == nil {
		p = NewProject()
	}
	return &Editor{project: p, subs: make(map[int]func(Change))}
}

// Project returns the edited project.
func (e *Editor) Project() *Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.project
}

// Subscribe registers fn for every future change and returns a function that removes it.
func (e *Editor) Subscribe(fn func(Change)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// CreateScenario adds a scenario holding a single blank initial state with id 0.
// An empty name picks the first free "Scenario N". The chosen name is returned.
func (e *Editor) CreateScenario(name string) (string, error) {
	err := e.apply(func(p *Project) (Change, error) {
		if name == "" {
			for i := len(p.Scenarios); ; i++ {
				name = fmt.Sprintf("Scenario %d", i)
				if _, taken := p.Scenario(name); !taken {
					break
				}
			}
		} else if _, taken := p.Scenario(name); taken {
			return Change{}, fmt.Errorf("%w: %q", ErrDuplicateScenario, name)
		}
		p.Scenarios = append(p.Scenarios, Scenario{
			Name:           name,
			InitialStateID: 0,
			States:         []State{NewState(0, "initial")},
		})
		return Change{Kind: ScenarioCreated, Scenario: name}, nil
	})
	return name, err
}

// RenameScenario changes a scenario's name.
func (e *Editor) RenameScenario(name, newName string) error {
	return e.apply(func(p *Project) (Change, error) {
		sc, ok := p.Scenario(name)
		if !ok {
			return Change{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
		}
		if _, taken := p.Scenario(newName); taken && newName != name {
			return Change{}, fmt.Errorf("%w: %q", ErrDuplicateScenario, newName)
		}
		sc.Name = newName
		return Change{Kind: ScenarioRenamed, Scenario: newName}, nil
	})
}

// DeleteScenario removes a scenario.
func (e *Editor) DeleteScenario(name string) error {
	return e.apply(func(p *Project) (Change, error) {
		i := slices.IndexFunc(p.Scenarios, func(s Scenario) bool { return s.Name == name })
		if i < 0 {
			return Change{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
		}
		p.Scenarios = slices.Delete(p.Scenarios, i, i+1)
		return Change{Kind: ScenarioDeleted, Scenario: name}, nil
	})
}

// CreateState adds a blank state named "untitled" with the lowest free id >= 1.
func (e *Editor) CreateState(scenario string) (int, error) {
	var id int
	err := e.apply(func(p *Project) (Change, error) {
		sc, ok := p.Scenario(scenario)
		if !ok {
			return Change{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, scenario)
		}
		id = 1
		for {
			if _, taken := sc.State(id); !taken {
				break
			}
			id++
		}
		sc.States = append(sc.States, NewState(id, "untitled"))
		return Change{Kind: StateCreated, Scenario: scenario, StateID: id}, nil
	})
	return id, err
}

// UpdateState replaces the state with the same StateID.
func (e *Editor) UpdateState(scenario string, st State) error {
	return e.editState(scenario, st.StateID, StateUpdated, func(_ *Scenario, cur *State) error {
		*cur = st
		return nil
	})
}

// MoveState sets a state's layout position.
func (e *Editor) MoveState(scenario string, id int, pos Point) error {
	return e.editState(scenario, id, StateMoved, func(_ *Scenario, cur *State) error {
		cur.Position = pos
		return nil
	})
}

// Connect adds to as a candidate successor of from. Connecting twice is a no-op.
func (e *Editor) Connect(scenario string, from, to int) error {
	return e.editState(scenario, from, ConnectionAdded, func(sc *Scenario, cur *State) error {
		if _, ok := sc.State(to); !ok {
			return fmt.Errorf("%w: %d", ErrStateNotFound, to)
		}
		if !slices.Contains(cur.NextStates, to) {
			cur.NextStates = append(cur.NextStates, to)
		}
		return nil
	})
}

// Disconnect removes to from the successors of from.
func (e *Editor) Disconnect(scenario string, from, to int) error {
	return e.editState(scenario, from, ConnectionRemoved, func(_ *Scenario, cur *State) error {
		cur.NextStates = slices.DeleteFunc(cur.NextStates, func(id int) bool { return id == to })
		return nil
	})
}

// AddAction appends an action to a state.
func (e *Editor) AddAction(scenario string, id int, a Action) error {
	return e.editState(scenario, id, ActionAdded, func(_ *Scenario, cur *State) error {
		if a == nil {
			return fmt.Errorf("nil action")
		}
		cur.Actions = append(cur.Actions, a)
		return nil
	})
}

// AddStatement adds a guard statement to a state.
func (e *Editor) AddStatement(scenario string, id int, stmt Statement) error {
	return e.editState(scenario, id, StatementAdded, func(_ *Scenario, cur *State) error {
		if !slices.Contains(cur.Statements, stmt) {
			cur.Statements = append(cur.Statements, stmt)
		}
		return nil
	})
}

// DeleteState removes a state and every reference to it. The initial state cannot be deleted.
func (e *Editor) DeleteState(scenario string, id int) error {
	return e.apply(func(p *Project) (Change, error) {
		sc, ok := p.Scenario(scenario)
		if !ok {
			return Change{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, scenario)
		}
		if id == sc.InitialStateID {
			return Change{}, ErrInitialState
		}
		i := slices.IndexFunc(sc.States, func(s State) bool { return s.StateID == id })
		if i < 0 {
			return Change{}, fmt.Errorf("%w: %d", ErrStateNotFound, id)
		}
		sc.States = slices.Delete(sc.States, i, i+1)
		for j := range sc.States {
			sc.States[j].NextStates = slices.DeleteFunc(sc.States[j].NextStates, func(n int) bool { return n == id })
		}
		return Change{Kind: StateDeleted, Scenario: scenario, StateID: id}, nil
	})
}

func (e *Editor) editState(scenario string, id int, kind ChangeKind, fn func(*Scenario, *State) error) error {
	return e.apply(func(p *Project) (Change, error) {
		sc, ok := p.Scenario(scenario)
		if !ok {
			return Change{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, scenario)
		}
		st, ok := sc.State(id)
		if !ok {
			return Change{}, fmt.Errorf("%w: %d", ErrStateNotFound, id)
		}
		if err := fn(sc, st); err != nil {
			return Change{}, err
		}
		return Change{Kind: kind, Scenario: scenario, StateID: id}, nil
	})
}

// apply runs fn under the lock and notifies subscribers once it succeeds.
func (e *Editor) apply(fn func(*Project) (Change, error)) error {
	e.mu.Lock()
	change, err := fn(e.project)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	subs := make([]func(Change), 0, len(e.subs))
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, e.subs[id])
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
	return nil
}
