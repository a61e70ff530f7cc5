package ports

import (
	"context"

	"github.com/aretw0/roboflow/pkg/scenario"
)

// ProjectLoader retrieves the project whose scenarios are run and inspected.
// This allows the storage layer (file, memory, HTTP upload) to be decoupled.
type ProjectLoader interface {
	// LoadProject returns a freshly decoded project.
	LoadProject(ctx context.Context) (*scenario.Project, error)
}
