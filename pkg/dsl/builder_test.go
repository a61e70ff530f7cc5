package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/pkg/scenario"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("check inbox")

	b.Add(0, "launch").
		Launch("com.example.mail").
		Wait(1500).
		Go(1, 2)

	b.Add(1, "inbox").
		When(XPath(`//node[@resource-id="app:id/title"]/@text`).Eq(Const("Inbox")))

	b.Add(2, "login").
		Priority(50).
		Describe("signed out").
		At(120, 40).
		TapText("Sign in").
		Type("me@example.com").
		Go(1)

	sc, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "check inbox", sc.Name)
	assert.Equal(t, 0, sc.InitialStateID)
	require.Len(t, sc.States, 3)

	launch := sc.States[0]
	assert.Equal(t, []scenario.Action{
		scenario.RunAppAction{PackageName: "com.example.mail"},
		scenario.WaitAction{DurationMS: 1500},
	}, launch.Actions)
	assert.Equal(t, []int{1, 2}, launch.NextStates)
	assert.Equal(t, scenario.DefaultPriority, launch.Priority)

	inbox := sc.States[1]
	require.Len(t, inbox.Statements, 1)
	assert.Equal(t, scenario.Statement{
		ValueType1: scenario.XPath,
		Value1:     `//node[@resource-id="app:id/title"]/@text`,
		ValueType2: scenario.Const,
		Value2:     "Inbox",
		Condition:  scenario.Equal,
	}, inbox.Statements[0])
	assert.Empty(t, inbox.NextStates)

	login := sc.States[2]
	assert.Equal(t, 50, login.Priority)
	assert.Equal(t, "signed out", login.Description)
	assert.Equal(t, scenario.Point{X: 120, Y: 40}, login.Position)
}

func TestBuilder_Conditions(t *testing.T) {
	tests := []struct {
		got  scenario.Statement
		want scenario.Condition
	}{
		{Const("a").Eq(Const("b")), scenario.Equal},
		{Const("a").Ne(Const("b")), scenario.NotEqual},
		{Const("a").Gt(Const("b")), scenario.GreaterThan},
		{Const("a").Lt(Const("b")), scenario.LowerThan},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got.Condition)
	}
}

func TestBuilder_Deduplicates(t *testing.T) {
	b := New("dups")
	stmt := Const("1").Eq(Const("1"))
	b.Add(0, "a").Go(1, 1).When(stmt, stmt)
	b.Add(1, "b")
	assert.Same(t, b.Add(0, "ignored"), b.Add(0, "a"))

	sc, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sc.States[0].NextStates)
	assert.Len(t, sc.States[0].Statements, 1)
	assert.Equal(t, "a", sc.States[0].Name)
}

func TestBuilder_Initial(t *testing.T) {
	b := New("explicit")
	b.Add(5, "later").Go(7)
	b.Add(7, "start")
	b.Initial(7)

	sc, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 7, sc.InitialStateID)
}

func TestBuilder_Invalid(t *testing.T) {
	b := New("dangling")
	b.Add(0, "start").Go(3)

	_, err := b.Build()
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)

	_, err = New("empty").Build()
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)
}

func TestLoader(t *testing.T) {
	a := New("a")
	a.Add(0, "only").Tap(1, 2).LongPress(3, 4, 700)
	c := New("c")
	c.Add(0, "only")

	loader, err := Loader(a, c)
	require.NoError(t, err)

	p, err := loader.LoadProject(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scenario.CurrentVersion, p.Version)
	require.Len(t, p.Scenarios, 2)
	assert.Equal(t, []scenario.Action{
		scenario.ClickCoordsAction{Coords: scenario.Point{X: 1, Y: 2}},
		scenario.ClickCoordsAction{Coords: scenario.Point{X: 3, Y: 4}, DurationMS: 700},
	}, p.Scenarios[0].States[0].Actions)
}

func TestProject_DuplicateNames(t *testing.T) {
	a := New("same")
	a.Add(0, "x")
	b := New("same")
	b.Add(0, "y")

	_, err := Project(a, b)
	assert.ErrorIs(t, err, scenario.ErrDuplicateScenario)
}
