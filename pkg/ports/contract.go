package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()

	newReport := func() *domain.Report {
		r := domain.NewReport("contract")
		r.DeviceID = "emulator-5554"
		r.Visit(0)
		r.Visit(2)
		r.Finish(domain.OutcomeSuccess)
		// Stores may keep only second or microsecond precision.
		r.StartedAt = r.StartedAt.UTC().Truncate(time.Second)
		r.FinishedAt = r.FinishedAt.UTC().Truncate(time.Second)
		return r
	}

	t.Run("Save and Load", func(t *testing.T) {
		report := newReport()
		require.NoError(t, store.Save(ctx, report), "Save should not return error")

		loaded, err := store.Load(ctx, report.RunID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, report.RunID, loaded.RunID)
		assert.Equal(t, report.Scenario, loaded.Scenario)
		assert.Equal(t, report.DeviceID, loaded.DeviceID)
		assert.Equal(t, report.Outcome, loaded.Outcome)
		assert.Equal(t, report.Trace, loaded.Trace)
		assert.Equal(t, report.Steps, loaded.Steps)
		assert.True(t, report.StartedAt.Equal(loaded.StartedAt), "StartedAt %v != %v", report.StartedAt, loaded.StartedAt)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		report := newReport()
		require.NoError(t, store.Save(ctx, report))

		report.Fail(domain.ErrorKindDevice, assert.AnError)
		require.NoError(t, store.Save(ctx, report))

		loaded, err := store.Load(ctx, report.RunID)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeError, loaded.Outcome)
		assert.Equal(t, domain.ErrorKindDevice, loaded.ErrorKind)
		assert.Equal(t, assert.AnError.Error(), loaded.Error)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-run")
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		report := newReport()
		require.NoError(t, store.Save(ctx, report))

		require.NoError(t, store.Delete(ctx, report.RunID), "Delete should not return error")

		_, err := store.Load(ctx, report.RunID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		r1, r2 := newReport(), newReport()
		require.NoError(t, store.Save(ctx, r1))
		require.NoError(t, store.Save(ctx, r2))
		defer func() {
			_ = store.Delete(ctx, r1.RunID)
			_ = store.Delete(ctx, r2.RunID)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, r1.RunID)
		assert.Contains(t, runs, r2.RunID)
	})
}
