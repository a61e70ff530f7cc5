package dsl

import (
	"fmt"

	"github.com/aretw0/roboflow/pkg/adapters/memory"
	"github.com/aretw0/roboflow/pkg/scenario"
)

// Builder manages the construction of one scenario.
type Builder struct {
	name       string
	initial    int
	hasInitial bool
	states     []*StateBuilder
	byID       map[int]*StateBuilder
}

// New creates a builder for the named scenario.
func New(name string) *Builder {
	return &Builder{
		name: name,
		byID: make(map[int]*StateBuilder),
	}
}

// Add creates a state. If the id already exists, it returns the existing builder.
// The first state added is the initial state unless Initial says otherwise.
func (b *Builder) Add(id int, name string) *StateBuilder {
	if sb, ok := b.byID[id]; ok {
		return sb
	}
	sb := &StateBuilder{state: scenario.NewState(id, name)}
	b.states = append(b.states, sb)
	b.byID[id] = sb
	if !b.hasInitial {
		b.initial, b.hasInitial = id, true
	}
	return sb
}

// Initial designates the initial state.
func (b *Builder) Initial(id int) *Builder {
	b.initial, b.hasInitial = id, true
	return b
}

// Build returns the scenario after checking its invariants.
func (b *Builder) Build() (*scenario.Scenario, error) {
	sc := &scenario.Scenario{
		Name:           b.name,
		InitialStateID: b.initial,
		States:         make([]scenario.State, 0, len(b.states)),
	}
	for _, sb := range b.states {
		sc.States = append(sc.States, sb.state)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Project builds every scenario into one project.
func Project(builders ...*Builder) (*scenario.Project, error) {
	p := scenario.NewProject()
	for _, b := range builders {
		sc, err := b.Build()
		if err != nil {
			return nil, err
		}
		p.Scenarios = append(p.Scenarios, *sc)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Loader builds the scenarios into an in-memory project loader.
func Loader(builders ...*Builder) (*memory.Loader, error) {
	p, err := Project(builders...)
	if err != nil {
		return nil, err
	}
	loader, err := memory.NewLoader(p)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
