package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/pkg/scenario"
)

const loginDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" bounds="[0,0][1080,2340]">
    <node index="0" text="Sign in" resource-id="com.example:id/title" class="android.widget.TextView" bounds="[40,200][1040,300]"/>
    <node index="1" text="3" resource-id="com.example:id/badge" class="android.widget.TextView" bounds="[900,40][1000,120]"/>
    <node index="2" text="Continue" resource-id="com.example:id/next" class="android.widget.Button" bounds="[40,2000][1040,2150]"/>
  </node>
</hierarchy>`

func mustSnapshot(t *testing.T, dump string) *Snapshot {
	t.Helper()
	snap, err := ParseSnapshot([]byte(dump))
	require.NoError(t, err)
	return snap
}

func TestParseSnapshot_Malformed(t *testing.T) {
	for _, dump := range []string{"", "plain text"} {
		_, err := ParseSnapshot([]byte(dump))
		assert.ErrorIs(t, err, ErrMalformedSnapshot, "dump %q", dump)
	}
}

func TestEvaluator_Resolve(t *testing.T) {
	e := NewEvaluator()
	snap := mustSnapshot(t, loginDump)

	tests := []struct {
		name  string
		vt    scenario.ValueType
		value string
		want  Operand
	}{
		{"const", scenario.Const, "Sign in", Literal("Sign in")},
		{"empty const", scenario.Const, "", Literal("")},
		{"attribute", scenario.XPath, `//node[@resource-id="com.example:id/title"]/@text`, Literal("Sign in")},
		{"first match only", scenario.XPath, `//node[@class="android.widget.TextView"]/@text`, Literal("Sign in")},
		{"no match", scenario.XPath, `//node[@text="Logout"]/@text`, Absent},
		{"count", scenario.XPath, `count(//node)`, Literal("4")},
		{"boolean", scenario.XPath, `boolean(//node[@text="Continue"])`, Literal("true")},
		{"string function", scenario.XPath, `string(//node[@resource-id="com.example:id/badge"]/@text)`, Literal("3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Resolve(tt.vt, tt.value, snap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_InvalidQuery(t *testing.T) {
	e := NewEvaluator()
	snap := mustSnapshot(t, loginDump)

	_, err := e.Resolve(scenario.XPath, "//node[", snap)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = e.Compile("//node[@text=")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "//node[@text=", qe.Query)
}

func TestEvaluator_CompileCaches(t *testing.T) {
	e := NewEvaluator()
	a, err := e.Compile("//node")
	require.NoError(t, err)
	b, err := e.Compile("//node")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestEvaluator_ConcurrentResolve(t *testing.T) {
	e := NewEvaluator()
	snap := mustSnapshot(t, `<hierarchy><node text="7"/></hierarchy>`)

	const workers = 8
	results := make([]Operand, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				results[i], errs[i] = e.Resolve(scenario.XPath, `//node[@text="7"]/@text`, snap)
			}
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, Literal("7"), results[i])
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Operand
		cond scenario.Condition
		want bool
	}{
		{"equal strings", Literal("A"), Literal("A"), scenario.Equal, true},
		{"unequal strings", Literal("A"), Literal("B"), scenario.Equal, false},
		{"numeric equality", Literal("1.0"), Literal("1"), scenario.Equal, true},
		{"not equal", Literal("A"), Literal("B"), scenario.NotEqual, true},
		{"numeric greater", Literal("10"), Literal("9"), scenario.GreaterThan, true},
		{"lexical greater", Literal("b"), Literal("a"), scenario.GreaterThan, true},
		{"mixed is lexical", Literal("10"), Literal("9a"), scenario.LowerThan, true},
		{"numeric lower", Literal("-2.5"), Literal("0"), scenario.LowerThan, true},
		{"equal is not greater", Literal("3"), Literal("3"), scenario.GreaterThan, false},
		{"absent never equal", Absent, Literal(""), scenario.Equal, false},
		{"two absents never equal", Absent, Absent, scenario.Equal, false},
		{"absent is not equal", Absent, Absent, scenario.NotEqual, true},
		{"nan is lexical", Literal("NaN"), Literal("NaN"), scenario.Equal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b, tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_AbsentOrdering(t *testing.T) {
	for _, cond := range []scenario.Condition{scenario.GreaterThan, scenario.LowerThan} {
		_, err := Compare(Absent, Literal("1"), cond)
		assert.ErrorIs(t, err, ErrIncomparableOperands)
		_, err = Compare(Literal("1"), Absent, cond)
		assert.ErrorIs(t, err, ErrIncomparableOperands)
	}

	_, err := Compare(Literal("1"), Literal("1"), "gt")
	assert.Error(t, err)
}

func TestEvaluator_Guard(t *testing.T) {
	e := NewEvaluator()
	snap := mustSnapshot(t, loginDump)

	ok, err := e.Guard(nil, snap)
	require.NoError(t, err)
	assert.True(t, ok, "empty guard passes")

	title := scenario.Statement{
		ValueType1: scenario.XPath, Value1: `//node[@resource-id="com.example:id/title"]/@text`,
		ValueType2: scenario.Const, Value2: "Sign in",
		Condition: scenario.Equal,
	}
	badge := scenario.Statement{
		ValueType1: scenario.XPath, Value1: `//node[@resource-id="com.example:id/badge"]/@text`,
		ValueType2: scenario.Const, Value2: "2",
		Condition: scenario.GreaterThan,
	}
	ok, err = e.Guard([]scenario.Statement{title, badge}, snap)
	require.NoError(t, err)
	assert.True(t, ok)

	missing := scenario.Statement{
		ValueType1: scenario.XPath, Value1: `//node[@text="Logout"]/@text`,
		ValueType2: scenario.Const, Value2: "1",
		Condition: scenario.GreaterThan,
	}
	falsy := title
	falsy.Value2 = "Sign out"

	// Short-circuit: the incomparable statement after a false one is never evaluated.
	ok, err = e.Guard([]scenario.Statement{falsy, missing}, snap)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.Guard([]scenario.Statement{title, missing}, snap)
	assert.ErrorIs(t, err, ErrIncomparableOperands)
}
