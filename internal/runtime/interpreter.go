package runtime

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/ports"
	"github.com/aretw0/roboflow/pkg/scenario"
)

// DefaultMaxSteps bounds the number of state entries per run.
const DefaultMaxSteps = 1000

const tracerName = "github.com/aretw0/roboflow/internal/runtime"

// Interpreter walks a scenario's state graph against one device.
// It never mutates the scenario. One Interpreter must not run two scenarios at once
// against the same device; see session.Manager for serialization.
type Interpreter struct {
	device   ports.Device
	deviceID string
	eval     *Evaluator
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxSteps int
	tracer   trace.Tracer
	sleep    func(context.Context, time.Duration) error
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(in *Interpreter) {
		in.hooks = hooks
	}
}

// WithMaxSteps sets the state-entry ceiling. Zero or negative disables it.
func WithMaxSteps(n int) Option {
	return func(in *Interpreter) {
		in.maxSteps = n
	}
}

// WithTracerProvider sets the OpenTelemetry provider used for run and state spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(in *Interpreter) {
		in.tracer = tp.Tracer(tracerName)
	}
}

// WithDeviceID labels reports and events with the device they ran on.
func WithDeviceID(id string) Option {
	return func(in *Interpreter) {
		in.deviceID = id
	}
}

// WithSleeper replaces the function used for WaitAction.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(in *Interpreter) {
		in.sleep = fn
	}
}

// New creates an interpreter bound to device.
func New(device ports.Device, opts ...Option) *Interpreter {
	in := &Interpreter{
		device:   device,
		eval:     NewEvaluator(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxSteps: DefaultMaxSteps,
		tracer:   otel.Tracer(tracerName),
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Preflight checks the scenario's structural invariants and compiles every XPath operand.
// It touches no device.
func (in *Interpreter) Preflight(sc *scenario.Scenario) error {
	if sc == nil {
		return &scenario.InvalidScenarioError{Problems: []string{"nil scenario"}}
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	var problems []string
	for _, st := range sc.States {
		for i, stmt := range st.Statements {
			for _, op := range []struct {
				vt    scenario.ValueType
				query string
			}{{stmt.ValueType1, stmt.Value1}, {stmt.ValueType2, stmt.Value2}} {
				if op.vt != scenario.XPath {
					continue
				}
				if _, err := in.eval.Compile(op.query); err != nil {
					problems = append(problems, fmt.Sprintf("state %d: statement %d: %v", st.StateID, i, err))
				}
			}
		}
	}
	if len(problems) > 0 {
		return &scenario.InvalidScenarioError{Scenario: sc.Name, Problems: problems}
	}
	return nil
}

// Run executes sc until it succeeds, fails or aborts.
//
// An invalid scenario returns (nil, err) without touching the device.
// Success and Failed outcomes return a nil error. An aborted run returns both the
// report (Outcome error, ErrorKind set) and a *RunError.
func (in *Interpreter) Run(ctx context.Context, sc *scenario.Scenario) (*domain.Report, error) {
	if err := in.Preflight(sc); err != nil {
		return nil, err
	}

	report := domain.NewReport(sc.Name)
	report.DeviceID = in.deviceID

	ctx, span := in.tracer.Start(ctx, "roboflow.run", trace.WithAttributes(
		attribute.String("roboflow.scenario", sc.Name),
		attribute.String("roboflow.run_id", report.RunID),
	))
	defer span.End()

	log := in.logger.With("run_id", report.RunID, "scenario", sc.Name)
	log.Info("run started", "initial_state", sc.InitialStateID)

	current, _ := sc.State(sc.InitialStateID)
	for {
		if err := ctx.Err(); err != nil {
			return in.abort(ctx, span, report, current.StateID, domain.ErrorKindCanceled, err)
		}
		if in.maxSteps > 0 && report.Steps >= in.maxSteps {
			return in.abort(ctx, span, report, current.StateID, domain.ErrorKindStepLimit,
				fmt.Errorf("%w: %d", ErrStepLimit, in.maxSteps))
		}

		next, kind, err := in.step(ctx, sc, current, report)
		if err != nil {
			return in.abort(ctx, span, report, current.StateID, kind, err)
		}
		if next == nil {
			log.Info("run finished", "outcome", report.Outcome, "steps", report.Steps)
			in.finish(ctx, span, report)
			return report, nil
		}
		log.Info("next state", "name", next.Name, "state_id", next.StateID)
		current = next
	}
}

// step enters current, runs its actions and picks the successor.
// A nil successor with a nil error means the report has a terminal outcome.
func (in *Interpreter) step(ctx context.Context, sc *scenario.Scenario, current *scenario.State, report *domain.Report) (*scenario.State, domain.ErrorKind, error) {
	ctx, span := in.tracer.Start(ctx, "roboflow.state", trace.WithAttributes(
		attribute.Int("roboflow.state_id", current.StateID),
		attribute.String("roboflow.state_name", current.Name),
	))
	defer span.End()

	report.Visit(current.StateID)
	in.emitState(ctx, domain.EventStateEnter, report, current)

	for i, a := range current.Actions {
		if err := in.dispatch(ctx, report, current, i, a); err != nil {
			span.RecordError(err)
			return nil, in.classify(ctx, err), err
		}
	}

	if len(current.NextStates) == 0 {
		in.emitState(ctx, domain.EventStateLeave, report, current)
		report.Finish(domain.OutcomeSuccess)
		return nil, domain.ErrorKindNone, nil
	}

	dump, err := in.device.DumpHierarchy(ctx)
	if err != nil {
		err = asDeviceError("dump", err)
		span.RecordError(err)
		return nil, in.classify(ctx, err), err
	}
	snap, err := ParseSnapshot(dump)
	if err != nil {
		err = &ports.DeviceError{Op: "dump", Err: err}
		span.RecordError(err)
		return nil, domain.ErrorKindDevice, err
	}

	next, err := in.selectNext(ctx, sc, current, snap, report)
	if err != nil {
		span.RecordError(err)
		return nil, in.classify(ctx, err), err
	}
	in.emitState(ctx, domain.EventStateLeave, report, current)
	if next == nil {
		report.Finish(domain.OutcomeFailed)
	}
	return next, domain.ErrorKindNone, nil
}

// candidates orders the successors of st by descending priority, then ascending state id.
func candidates(sc *scenario.Scenario, st *scenario.State) []*scenario.State {
	var out []*scenario.State
	for _, id := range st.NextStates {
		next, ok := sc.State(id)
		if !ok || slices.Contains(out, next) {
			continue
		}
		out = append(out, next)
	}
	slices.SortStableFunc(out, func(a, b *scenario.State) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.StateID, b.StateID)
	})
	return out
}

// selectNext returns the first candidate whose guard passes, or nil.
func (in *Interpreter) selectNext(ctx context.Context, sc *scenario.Scenario, current *scenario.State, snap *Snapshot, report *domain.Report) (*scenario.State, error) {
	for _, cand := range candidates(sc, current) {
		ok, err := in.eval.Guard(cand.Statements, snap)
		if err != nil {
			return nil, fmt.Errorf("guard of state %d: %w", cand.StateID, err)
		}
		if in.hooks.OnGuard != nil {
			in.hooks.OnGuard(ctx, &domain.GuardEvent{
				EventBase: domain.NewEventBase(domain.EventGuard, report),
				From:      current.StateID,
				Candidate: cand.StateID,
				Passed:    ok,
			})
		}
		if ok {
			return cand, nil
		}
	}
	return nil, nil
}

func (in *Interpreter) dispatch(ctx context.Context, report *domain.Report, st *scenario.State, index int, a scenario.Action) error {
	name := reflect.TypeOf(a).Name()
	event := &domain.ActionEvent{
		EventBase: domain.NewEventBase(domain.EventActionCall, report),
		StateID:   st.StateID,
		Index:     index,
		Action:    name,
		Input:     a,
	}
	if in.hooks.OnActionCall != nil {
		in.hooks.OnActionCall(ctx, event)
	}

	var err error
	switch a := a.(type) {
	case scenario.ClickCoordsAction:
		err = asDeviceError("click", in.device.Click(ctx, a.Coords.X, a.Coords.Y, millis(a.DurationMS)))
	case scenario.ClickTextAction:
		err = asDeviceError("click_text", in.device.ClickText(ctx, a.Text, millis(a.DurationMS)))
	case scenario.WriteAction:
		err = asDeviceError("type_text", in.device.TypeText(ctx, a.Text))
	case scenario.RunAppAction:
		err = asDeviceError("launch_app", in.device.LaunchApp(ctx, a.PackageName))
	case scenario.WaitAction:
		err = in.sleep(ctx, millis(a.DurationMS))
	default:
		err = fmt.Errorf("unsupported action %s", name)
	}

	if in.hooks.OnActionReturn != nil {
		ret := *event
		ret.EventBase = domain.NewEventBase(domain.EventActionReturn, report)
		if err != nil {
			ret.IsError = true
			ret.Error = err.Error()
		}
		in.hooks.OnActionReturn(ctx, &ret)
	}
	return err
}

func (in *Interpreter) classify(ctx context.Context, err error) domain.ErrorKind {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorKindCanceled
	case errors.Is(err, ErrIncomparableOperands):
		return domain.ErrorKindIncomparable
	case errors.Is(err, ErrInvalidQuery):
		return domain.ErrorKindInvalidQuery
	default:
		return domain.ErrorKindDevice
	}
}

func (in *Interpreter) abort(ctx context.Context, span trace.Span, report *domain.Report, stateID int, kind domain.ErrorKind, err error) (*domain.Report, error) {
	runErr := &RunError{Kind: kind, StateID: stateID, Err: err}
	report.Fail(kind, err)
	span.RecordError(runErr)
	span.SetStatus(codes.Error, string(kind))
	in.logger.Error("run aborted", "run_id", report.RunID, "scenario", report.Scenario,
		"state_id", stateID, "kind", kind, "error", err)
	in.emitFinish(ctx, report)
	return report, runErr
}

func (in *Interpreter) finish(ctx context.Context, span trace.Span, report *domain.Report) {
	span.SetAttributes(
		attribute.String("roboflow.outcome", string(report.Outcome)),
		attribute.Int("roboflow.steps", report.Steps),
	)
	in.emitFinish(ctx, report)
}

func (in *Interpreter) emitState(ctx context.Context, t domain.EventType, report *domain.Report, st *scenario.State) {
	hook := in.hooks.OnStateEnter
	if t == domain.EventStateLeave {
		hook = in.hooks.OnStateLeave
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.StateEvent{
		EventBase: domain.NewEventBase(t, report),
		StateID:   st.StateID,
		StateName: st.Name,
	})
}

func (in *Interpreter) emitFinish(ctx context.Context, report *domain.Report) {
	if in.hooks.OnRunFinish == nil {
		return
	}
	in.hooks.OnRunFinish(ctx, &domain.RunEvent{
		EventBase: domain.NewEventBase(domain.EventRunFinish, report),
		Report:    report,
	})
}

func asDeviceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *ports.DeviceError
	if errors.As(err, &de) {
		return err
	}
	return &ports.DeviceError{Op: op, Err: err}
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
