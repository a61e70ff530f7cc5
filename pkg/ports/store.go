package ports

import (
	"context"

	"github.com/aretw0/roboflow/pkg/domain"
)

// RunStore defines the interface for persisting run reports.
type RunStore interface {
	// Save persists a report under its RunID, replacing any previous version.
	Save(ctx context.Context, report *domain.Report) error

	// Load retrieves a report.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Report, error)

	// Delete removes a report. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error

	// List returns the ids of all stored runs.
	List(ctx context.Context) ([]string, error)
}
