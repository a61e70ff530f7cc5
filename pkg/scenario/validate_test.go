package scenario

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_Validate(t *testing.T) {
	valid := func() Scenario { return sampleProject().Scenarios[0] }

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		problem string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"missing initial", func(s *Scenario) { s.InitialStateID = 7 }, "initial_state_id 7 matches no state"},
		{"duplicate id", func(s *Scenario) { s.States[2].StateID = 1 }, "duplicate state_id 1"},
		{"dangling next", func(s *Scenario) { s.States[0].NextStates = append(s.States[0].NextStates, 42) }, "next state 42 does not exist"},
		{"bad condition", func(s *Scenario) { s.States[1].Statements[0].Condition = "gt" }, `unknown condition "gt"`},
		{"bad value type", func(s *Scenario) { s.States[1].Statements[0].ValueType1 = "Const" }, "unknown value type"},
		{"nil action", func(s *Scenario) { s.States[1].Actions = append(s.States[1].Actions, nil) }, "nil action"},
		{"negative wait", func(s *Scenario) { s.States[0].Actions = []Action{WaitAction{DurationMS: -1}} }, "negative duration_ms"},
		{"bad package", func(s *Scenario) { s.States[0].Actions = []Action{RunAppAction{PackageName: "x; rm -rf /sdcard"}} }, `invalid package_name "x; rm -rf /sdcard"`},
		{"empty package", func(s *Scenario) { s.States[0].Actions = []Action{RunAppAction{}} }, `invalid package_name ""`},
		{"empty", func(s *Scenario) { s.States = nil }, "matches no state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := valid()
			tt.mutate(&sc)
			err := sc.Validate()
			if tt.problem == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidScenario)
			var inv *InvalidScenarioError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, "login", inv.Scenario)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestScenario_ValidateReportsAllProblems(t *testing.T) {
	sc := Scenario{
		Name:           "broken",
		InitialStateID: 5,
		States: []State{
			{StateID: 1, NextStates: []int{9}},
			{StateID: 1},
		},
	}

	var inv *InvalidScenarioError
	require.ErrorAs(t, sc.Validate(), &inv)
	assert.Len(t, inv.Problems, 3)
}

func TestProject_Validate(t *testing.T) {
	p := sampleProject()
	assert.NoError(t, p.Validate())

	p.Scenarios = append(p.Scenarios, p.Scenarios[0])
	err := p.Validate()
	assert.ErrorIs(t, err, ErrDuplicateScenario)

	p.Scenarios[1].InitialStateID = 99
	err = p.Validate()
	assert.True(t, errors.Is(err, ErrDuplicateScenario) && errors.Is(err, ErrInvalidScenario))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	p := sampleProject()
	before := sampleProject()
	_ = p.Validate()
	assert.Equal(t, before, p)
}
