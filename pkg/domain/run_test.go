package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Lifecycle(t *testing.T) {
	r := NewReport("login")
	require.NotEmpty(t, r.RunID)
	assert.False(t, r.Done())
	assert.Equal(t, []int{}, r.Trace)

	r.Visit(0)
	r.Visit(3)
	assert.Equal(t, []int{0, 3}, r.Trace)
	assert.Equal(t, 2, r.Steps)

	r.Finish(OutcomeSuccess)
	assert.True(t, r.Done())
	assert.GreaterOrEqual(t, int64(r.Duration()), int64(0))
	assert.False(t, r.FinishedAt.IsZero())
}

func TestReport_Fail(t *testing.T) {
	r := NewReport("login")
	r.Fail(ErrorKindDevice, errors.New("adb: device offline"))

	assert.Equal(t, OutcomeError, r.Outcome)
	assert.Equal(t, ErrorKindDevice, r.ErrorKind)
	assert.Equal(t, "adb: device offline", r.Error)
}

func TestReport_UniqueRunIDs(t *testing.T) {
	assert.NotEqual(t, NewReport("a").RunID, NewReport("a").RunID)
}

func TestMergeHooks(t *testing.T) {
	var calls []string
	a := LifecycleHooks{
		OnStateEnter: func(context.Context, *StateEvent) { calls = append(calls, "a.enter") },
	}
	b := LifecycleHooks{
		OnStateEnter: func(context.Context, *StateEvent) { calls = append(calls, "b.enter") },
		OnRunFinish:  func(context.Context, *RunEvent) { calls = append(calls, "b.finish") },
	}

	h := MergeHooks(a, LifecycleHooks{}, b)
	require.NotNil(t, h.OnStateEnter)
	require.NotNil(t, h.OnRunFinish)
	assert.Nil(t, h.OnGuard)

	h.OnStateEnter(context.Background(), &StateEvent{})
	h.OnRunFinish(context.Background(), &RunEvent{})
	assert.Equal(t, []string{"a.enter", "b.enter", "b.finish"}, calls)
}
