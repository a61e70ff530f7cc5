package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter   EventType = "state_enter"
	EventStateLeave   EventType = "state_leave"
	EventActionCall   EventType = "action_call"
	EventActionReturn EventType = "action_return"
	EventGuard        EventType = "guard"
	EventRunFinish    EventType = "run_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Scenario  string    `json:"scenario"`
}

// NewEventBase stamps an event of type t for the run described by r.
func NewEventBase(t EventType, r *Report) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, RunID: r.RunID, Scenario: r.Scenario}
}

// StateEvent represents entry into or exit from a state.
type StateEvent struct {
	EventBase
	StateID   int    `json:"state_id"`
	StateName string `json:"state_name"`
}

// ActionEvent represents one action dispatched to the device.
type ActionEvent struct {
	EventBase
	StateID int    `json:"state_id"`
	Index   int    `json:"index"`
	Action  string `json:"action"`
	Input   any    `json:"input,omitempty"`
	Error   string `json:"error,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// GuardEvent records the evaluation of one candidate successor.
type GuardEvent struct {
	EventBase
	From      int  `json:"from"`
	Candidate int  `json:"candidate"`
	Passed    bool `json:"passed"`
}

// RunEvent carries the finished report.
type RunEvent struct {
	EventBase
	Report *Report `json:"report"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the run's goroutine; slow hooks slow the run.
type LifecycleHooks struct {
	OnStateEnter   func(context.Context, *StateEvent)
	OnStateLeave   func(context.Context, *StateEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnGuard        func(context.Context, *GuardEvent)
	OnRunFinish    func(context.Context, *RunEvent)
}

// MergeHooks combines hook sets; each callback runs in argument order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		out.OnStateEnter = chain(out.OnStateEnter, h.OnStateEnter)
		out.OnStateLeave = chain(out.OnStateLeave, h.OnStateLeave)
		out.OnActionCall = chain(out.OnActionCall, h.OnActionCall)
		out.OnActionReturn = chain(out.OnActionReturn, h.OnActionReturn)
		out.OnGuard = chain(out.OnGuard, h.OnGuard)
		out.OnRunFinish = chain(out.OnRunFinish, h.OnRunFinish)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
