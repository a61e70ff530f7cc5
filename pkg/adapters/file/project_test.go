package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/pkg/codec"
	"github.com/aretw0/roboflow/pkg/scenario"
)

func TestProjectFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "project.xml")
	f := NewProjectFile(path)
	ctx := context.Background()

	ed := scenario.NewEditor(nil)
	_, err := ed.CreateScenario("login")
	require.NoError(t, err)
	id, err := ed.CreateState("login")
	require.NoError(t, err)
	require.NoError(t, ed.Connect("login", 0, id))
	require.NoError(t, ed.AddAction("login", 0, scenario.RunAppAction{PackageName: "com.example"}))

	require.NoError(t, f.SaveProject(ctx, ed.Project()))

	loaded, err := f.LoadProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, ed.Project(), loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestProjectFile_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := NewProjectFile(filepath.Join(dir, "absent.xml")).LoadProject(ctx)
	assert.ErrorIs(t, err, os.ErrNotExist)

	broken := filepath.Join(dir, "broken.xml")
	require.NoError(t, os.WriteFile(broken, []byte("<Project ver="), 0o644))
	_, err = NewProjectFile(broken).LoadProject(ctx)
	assert.ErrorIs(t, err, codec.ErrMalformedDocument)
}

func TestProjectFile_SaveFailureKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.xml")
	f := NewProjectFile(path)
	ctx := context.Background()
	require.NoError(t, f.SaveProject(ctx, scenario.NewProject()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := scenario.NewProject()
	bad.Scenarios = []scenario.Scenario{{
		Name:   "x",
		States: []scenario.State{{Actions: []scenario.Action{nil}}},
	}}
	assert.ErrorIs(t, f.SaveProject(ctx, bad), codec.ErrEncode)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
