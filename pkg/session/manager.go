package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/roboflow/internal/logging"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/ports"
)

// DefaultLockTTL bounds a distributed device lease held by a crashed process.
// Lockers implementing ports.LeaseRenewer have the lease renewed every ttl/2
// while the run lasts, so runs may outlive it.
const DefaultLockTTL = 5 * time.Minute

// RunFunc performs one run while the device is held.
type RunFunc func(ctx context.Context) (*domain.Report, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes runs per device and saves their reports.
// Unused locks are garbage collected by reference counting.
type Manager struct {
	store ports.RunStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease duration of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager. A nil store disables report persistence.
func NewManager(store ports.RunStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking.
func (m *Manager) acquire(deviceID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[deviceID]
	if !exists {
		entry = &lockEntry{}
		m.locks[deviceID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[deviceID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, deviceID)
	}
}

// lockKey namespaces device ids in the distributed lock space.
func lockKey(deviceID string) string { return "device:" + deviceID }

// WithDevice runs fn while holding the device exclusively.
func (m *Manager) WithDevice(ctx context.Context, deviceID string, fn func(context.Context) error) error {
	entry := m.acquire(deviceID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(deviceID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, lockKey(deviceID), m.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire device lock: %w", err)
		}
		defer func() {
			// The run context may already be canceled; the lease must still be returned.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release device lock (will expire via TTL)",
					"device_id", deviceID,
					"err", err,
				)
			}
		}()

		if renewer, ok := m.locker.(ports.LeaseRenewer); ok && m.ttl > 0 {
			var cancel context.CancelCauseFunc
			ctx, cancel = context.WithCancelCause(ctx)
			done := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.renew(ctx, renewer, deviceID, cancel, done)
			}()
			defer func() {
				close(done)
				wg.Wait()
				cancel(nil)
			}()
		}
	}

	return fn(ctx)
}

// renew keeps the device lease alive until done is closed. A lost lease cancels
// the run with ports.ErrLeaseLost as cause; other failures are retried next tick.
func (m *Manager) renew(ctx context.Context, renewer ports.LeaseRenewer, deviceID string, cancel context.CancelCauseFunc, done <-chan struct{}) {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := renewer.Renew(ctx, lockKey(deviceID), m.ttl)
		switch {
		case err == nil:
		case errors.Is(err, ports.ErrLeaseLost):
			m.logger.Error("device lease lost, aborting run", "device_id", deviceID)
			cancel(fmt.Errorf("device %s: %w", deviceID, err))
			return
		default:
			m.logger.Warn("failed to renew device lock", "device_id", deviceID, "err", err)
		}
	}
}

// Run executes fn with the device held and saves the report it returns, if any.
// The report is saved even when fn fails, so aborted runs stay inspectable.
func (m *Manager) Run(ctx context.Context, deviceID string, fn RunFunc) (*domain.Report, error) {
	var (
		report *domain.Report
		runErr error
	)
	err := m.WithDevice(ctx, deviceID, func(ctx context.Context) error {
		report, runErr = fn(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if report == nil || m.store == nil {
		return report, runErr
	}

	if report.DeviceID == "" {
		report.DeviceID = deviceID
	}
	if err := m.store.Save(context.WithoutCancel(ctx), report); err != nil {
		m.logger.Error("failed to save run report", "run_id", report.RunID, "err", err)
		return report, errors.Join(runErr, fmt.Errorf("failed to save report: %w", err))
	}
	m.logger.Debug("run report saved", "run_id", report.RunID, "outcome", report.Outcome)
	return report, runErr
}

// Report loads a saved report.
func (m *Manager) Report(ctx context.Context, runID string) (*domain.Report, error) {
	if m.store == nil {
		return nil, domain.ErrRunNotFound
	}
	return m.store.Load(ctx, runID)
}

// Runs lists saved run ids.
func (m *Manager) Runs(ctx context.Context) ([]string, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.List(ctx)
}

// DeleteRun removes a saved report.
func (m *Manager) DeleteRun(ctx context.Context, runID string) error {
	if m.store == nil {
		return domain.ErrRunNotFound
	}
	return m.store.Delete(ctx, runID)
}

// Store returns the underlying run store, which may be nil.
func (m *Manager) Store() ports.RunStore {
	return m.store
}
