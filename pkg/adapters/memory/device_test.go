package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/roboflow/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_ScriptedSnapshots(t *testing.T) {
	ctx := context.Background()
	d := memory.NewDevice("<a/>", "<b/>")

	for _, want := range []string{"<a/>", "<b/>", "<b/>"} {
		got, err := d.DumpHierarchy(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	assert.Equal(t, 3, d.Dumps())

	_, err := memory.NewDevice().DumpHierarchy(ctx)
	assert.ErrorIs(t, err, memory.ErrNoSnapshot)
}

func TestDevice_RecordsCallsAndFailures(t *testing.T) {
	ctx := context.Background()
	d := memory.NewDevice()

	require.NoError(t, d.Click(ctx, 1, 2, 300*time.Millisecond))
	require.NoError(t, d.TypeText(ctx, "hi"))

	boom := errors.New("offline")
	d.FailOn("launch_app", boom)
	assert.ErrorIs(t, d.LaunchApp(ctx, "org.example"), boom)
	d.FailOn("launch_app", nil)
	assert.NoError(t, d.LaunchApp(ctx, "org.example"))

	var got []string
	for _, c := range d.Calls() {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{
		"click(1,2,300ms)", `type_text("hi")`, `launch_app("org.example")`, `launch_app("org.example")`,
	}, got)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, d.ClickText(cancelled, "OK", 0), context.Canceled)
}

func TestLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	l := memory.NewLocker()

	unlock, err := l.Lock(ctx, "dev", time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "dev", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(ctx, "dev", time.Second)
		if err == nil {
			_ = u(ctx)
		}
		close(acquired)
	}()

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock was not granted after unlock")
	}
}
