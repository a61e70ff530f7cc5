package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/pkg/adapters/memory"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/ports"
)

func finished(name string, outcome domain.Outcome) *domain.Report {
	r := domain.NewReport(name)
	r.Visit(0)
	r.Finish(outcome)
	return r
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		err := mgr.WithDevice(ctx, fmt.Sprintf("device-%d", i), func(context.Context) error { return nil })
		require.NoError(t, err)
	}
	assert.Empty(t, mgr.locks, "locks are released once unused")
}

func TestManager_SerializesPerDevice(t *testing.T) {
	mgr := NewManager(memory.NewStore(), WithLocker(memory.NewLocker()))
	ctx := context.Background()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Run(ctx, "emulator-5554", func(context.Context) (*domain.Report, error) {
				n := active.Add(1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				active.Add(-1)
				return finished("s", domain.OutcomeSuccess), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	runs, err := mgr.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 8)
}

func TestManager_DevicesRunInParallel(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()

	inA := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- mgr.WithDevice(ctx, "a", func(context.Context) error {
			close(inA)
			// Held until device b has run.
			time.Sleep(20 * time.Millisecond)
			return nil
		})
	}()
	<-inA

	ran := false
	require.NoError(t, mgr.WithDevice(ctx, "b", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
	require.NoError(t, <-done)
}

func TestManager_RunSavesReport(t *testing.T) {
	store := memory.NewStore()
	mgr := NewManager(store)
	ctx := context.Background()

	report, err := mgr.Run(ctx, "pixel-7", func(context.Context) (*domain.Report, error) {
		return finished("login", domain.OutcomeFailed), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pixel-7", report.DeviceID)

	saved, err := mgr.Report(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, saved.Outcome)
	assert.Equal(t, []int{0}, saved.Trace)

	require.NoError(t, mgr.DeleteRun(ctx, report.RunID))
	_, err = mgr.Report(ctx, report.RunID)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_RunSavesAbortedReport(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	boom := errors.New("device offline")

	report, err := mgr.Run(ctx, "d", func(context.Context) (*domain.Report, error) {
		r := domain.NewReport("login")
		r.Fail(domain.ErrorKindDevice, boom)
		return r, boom
	})
	assert.ErrorIs(t, err, boom)

	saved, loadErr := mgr.Report(ctx, report.RunID)
	require.NoError(t, loadErr)
	assert.Equal(t, domain.ErrorKindDevice, saved.ErrorKind)
}

func TestManager_RunWithoutReport(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	invalid := errors.New("invalid scenario")

	report, err := mgr.Run(context.Background(), "d", func(context.Context) (*domain.Report, error) {
		return nil, invalid
	})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, invalid)

	runs, err := mgr.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestManager_LockKeyAndTTL(t *testing.T) {
	var gotKey string
	var gotTTL time.Duration
	mgr := NewManager(nil, WithLockTTL(time.Minute), WithLocker(lockerFunc(func(_ context.Context, key string, ttl time.Duration) error {
		gotKey, gotTTL = key, ttl
		return nil
	})))

	require.NoError(t, mgr.WithDevice(context.Background(), "emulator-5554", func(context.Context) error { return nil }))
	assert.Equal(t, "device:emulator-5554", gotKey)
	assert.Equal(t, time.Minute, gotTTL)
}

func TestManager_NoStore(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()

	_, err := mgr.Report(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	runs, err := mgr.Runs(ctx)
	assert.NoError(t, err)
	assert.Empty(t, runs)
}

type lockerFunc func(ctx context.Context, key string, ttl time.Duration) error

func (f lockerFunc) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if err := f(ctx, key, ttl); err != nil {
		return nil, err
	}
	return func(context.Context) error { return nil }, nil
}

func TestManager_LockFailure(t *testing.T) {
	mgr := NewManager(nil, WithLocker(lockerFunc(func(context.Context, string, time.Duration) error {
		return errors.New("redis unavailable")
	})))

	called := false
	err := mgr.WithDevice(context.Background(), "d", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "redis unavailable")
	assert.False(t, called)
	assert.Empty(t, mgr.locks)
}

// renewingLocker hands out leases and fails renewals after lostAfter calls when set.
type renewingLocker struct {
	renewals  atomic.Int32
	lostAfter int32
}

func (l *renewingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	return func(context.Context) error { return nil }, nil
}

func (l *renewingLocker) Renew(_ context.Context, key string, ttl time.Duration) error {
	n := l.renewals.Add(1)
	if key != "device:d" || ttl != 20*time.Millisecond {
		return fmt.Errorf("unexpected renew %s %v", key, ttl)
	}
	if l.lostAfter > 0 && n >= l.lostAfter {
		return ports.ErrLeaseLost
	}
	return nil
}

func TestManager_RenewsLeaseDuringRun(t *testing.T) {
	locker := &renewingLocker{}
	mgr := NewManager(nil, WithLocker(locker), WithLockTTL(20*time.Millisecond))

	err := mgr.WithDevice(context.Background(), "d", func(ctx context.Context) error {
		time.Sleep(120 * time.Millisecond)
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, locker.renewals.Load(), int32(3))

	after := locker.renewals.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, locker.renewals.Load(), "renewal stops with the run")
}

func TestManager_LostLeaseCancelsRun(t *testing.T) {
	locker := &renewingLocker{lostAfter: 2}
	mgr := NewManager(nil, WithLocker(locker), WithLockTTL(20*time.Millisecond))

	var cause error
	err := mgr.WithDevice(context.Background(), "d", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			cause = context.Cause(ctx)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("run was not canceled")
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, cause, ports.ErrLeaseLost)
}
