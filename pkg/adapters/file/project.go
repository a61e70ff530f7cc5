package file

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aretw0/roboflow/pkg/codec"
	"github.com/aretw0/roboflow/pkg/scenario"
)

// ProjectFile loads and saves one project XML document.
// It implements ports.ProjectLoader.
type ProjectFile struct {
	Path   string
	Indent int
}

// NewProjectFile binds a project file path. Saved documents are indented by two spaces.
func NewProjectFile(path string) *ProjectFile {
	return &ProjectFile{Path: path, Indent: 2}
}

// LoadProject decodes the file.
func (f *ProjectFile) LoadProject(ctx context.Context) (*scenario.Project, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	var p scenario.Project
	if err := scenario.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return &p, nil
}

// SaveProject encodes p and replaces the file atomically.
// Nothing is written when encoding fails.
func (f *ProjectFile) SaveProject(ctx context.Context, p *scenario.Project) error {
	var buf bytes.Buffer
	if err := scenario.EncodeProject(&buf, p, codec.WithIndent(f.Indent)); err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	return writeAtomic(f.Path, buf.Bytes())
}
