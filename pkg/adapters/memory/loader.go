package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/roboflow/pkg/scenario"
)

// Loader implements ports.ProjectLoader over an in-memory project.
type Loader struct {
	data []byte
}

// NewLoader snapshots p. Later changes to p are not observed.
func NewLoader(p *scenario.Project) (*Loader, error) {
	data, err := scenario.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("snapshot project: %w", err)
	}
	return &Loader{data: data}, nil
}

// LoadProject returns an independent copy of the project.
func (l *Loader) LoadProject(ctx context.Context) (*scenario.Project, error) {
	var p scenario.Project
	if err := scenario.Unmarshal(l.data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
