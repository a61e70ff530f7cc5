package roboflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/roboflow/internal/runtime"
	"github.com/aretw0/roboflow/pkg/adapters/file"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/ports"
	"github.com/aretw0/roboflow/pkg/scenario"
	"github.com/aretw0/roboflow/pkg/session"
)

// DefaultDeviceID labels runs on devices that do not describe themselves.
const DefaultDeviceID = "default"

// ErrNoLoader is returned by operations that need a project when none was configured.
var ErrNoLoader = errors.New("no project loader configured")

// Engine is the high-level entry point for the Roboflow library.
// It wraps the internal interpreter and serializes runs per device.
type Engine struct {
	device   ports.Device
	deviceID string
	loader   ports.ProjectLoader
	store    ports.RunStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	tp       trace.TracerProvider
	maxSteps int
	sleeper  func(context.Context, time.Duration) error

	interp   *runtime.Interpreter
	sessions *session.Manager
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps bounds the number of state entries per run. Zero or negative disables the bound.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithLoader sets where RunNamed and LoadProject read the project from.
func WithLoader(l ports.ProjectLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStore persists a report for every run.
func WithStore(s ports.RunStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker holds a distributed lease on the device while a run is in progress.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithDeviceID overrides the id the device is locked and reported under.
func WithDeviceID(id string) Option {
	return func(e *Engine) {
		e.deviceID = id
	}
}

// WithTracerProvider sets the OpenTelemetry provider for run spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tp = tp
	}
}

// WithSleeper replaces the wait used by WaitAction. Mostly useful in tests.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(e *Engine) {
		e.sleeper = fn
	}
}

// New creates an Engine driving device.
func New(device ports.Device, opts ...Option) (*Engine, error) {
	if device == nil {
		return nil, fmt.Errorf("device is required")
	}
	eng := &Engine{
		device:   device,
		maxSteps: runtime.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.deviceID == "" {
		eng.deviceID = describe(device)
	}

	rtOpts := []runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithMaxSteps(eng.maxSteps),
		runtime.WithDeviceID(eng.deviceID),
	}
	if eng.tp != nil {
		rtOpts = append(rtOpts, runtime.WithTracerProvider(eng.tp))
	}
	if eng.sleeper != nil {
		rtOpts = append(rtOpts, runtime.WithSleeper(eng.sleeper))
	}
	eng.interp = runtime.New(device, rtOpts...)

	sessOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(eng.locker))
		if eng.lockTTL > 0 {
			sessOpts = append(sessOpts, session.WithLockTTL(eng.lockTTL))
		}
	}
	eng.sessions = session.NewManager(eng.store, sessOpts...)

	return eng, nil
}

func describe(device ports.Device) string {
	if s, ok := device.(fmt.Stringer); ok && s.String() != "" {
		return s.String()
	}
	return DefaultDeviceID
}

// DeviceID returns the id runs are locked and reported under.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Sessions exposes the run manager, e.g. to query saved reports.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Validate checks sc without touching the device.
func (e *Engine) Validate(sc *scenario.Scenario) error {
	return e.interp.Preflight(sc)
}

// Run executes sc on the engine's device.
//
// An invalid scenario returns (nil, err) and nothing is dispatched.
// Success and Failed outcomes return a nil error; an aborted run returns its report and the cause.
func (e *Engine) Run(ctx context.Context, sc *scenario.Scenario) (*domain.Report, error) {
	if err := e.Validate(sc); err != nil {
		return nil, err
	}
	return e.sessions.Run(ctx, e.deviceID, func(ctx context.Context) (*domain.Report, error) {
		return e.interp.Run(ctx, sc)
	})
}

// RunNamed loads the project and runs the scenario called name.
func (e *Engine) RunNamed(ctx context.Context, name string) (*domain.Report, error) {
	p, err := e.LoadProject(ctx)
	if err != nil {
		return nil, err
	}
	sc, ok := p.Scenario(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", scenario.ErrScenarioNotFound, name)
	}
	return e.Run(ctx, sc)
}

// LoadProject reads the project from the configured loader.
func (e *Engine) LoadProject(ctx context.Context) (*scenario.Project, error) {
	if e.loader == nil {
		return nil, ErrNoLoader
	}
	p, err := e.loader.LoadProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return p, nil
}

// Scenarios lists the names of the loaded project's scenarios in file order.
func (e *Engine) Scenarios(ctx context.Context) ([]string, error) {
	p, err := e.LoadProject(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(p.Scenarios))
	for _, sc := range p.Scenarios {
		names = append(names, sc.Name)
	}
	return names, nil
}

// Validate checks sc's structure and compiles its XPath guards. No device is needed.
func Validate(sc *scenario.Scenario) error {
	return runtime.New(nil).Preflight(sc)
}

// LoadProject reads a project file from disk.
func LoadProject(path string) (*scenario.Project, error) {
	return file.NewProjectFile(path).LoadProject(context.Background())
}

// SaveProject writes p to disk, replacing the file atomically.
func SaveProject(path string, p *scenario.Project) error {
	return file.NewProjectFile(path).SaveProject(context.Background(), p)
}
