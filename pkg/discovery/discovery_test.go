package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadWorkspaceConfiguration_RootAndProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), `
workspace:
  name: my-workspace
shared:
  key: from-root
`)
	writeFile(t, filepath.Join(root, "service", "causa.yaml"), `
project:
  name: api
  type: service
  language: go
shared:
  key: from-project
`)

	result, err := LoadWorkspaceConfiguration(filepath.Join(root, "service"), "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, root, result.RootPath)
	assert.Equal(t, filepath.Join(root, "service"), result.ProjectPath)

	// Closer-to-root layers come first, so the project file wins.
	key, err := result.Reader.GetOrError("shared.key")
	require.NoError(t, err)
	assert.Equal(t, "from-project", key)

	name, err := result.Reader.GetOrError("workspace.name")
	require.NoError(t, err)
	assert.Equal(t, "my-workspace", name)
}

func TestLoadWorkspaceConfiguration_WorkspaceOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), "workspace:\n  name: w\n")

	result, err := LoadWorkspaceConfiguration(root, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, root, result.RootPath)
	assert.Empty(t, result.ProjectPath)
}

func TestLoadWorkspaceConfiguration_NoFiles(t *testing.T) {
	_, err := LoadWorkspaceConfiguration(t.TempDir(), "", "", nil)

	var invalid *InvalidWorkspaceFilesError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Message, "no causa.yaml")
}

func TestLoadWorkspaceConfiguration_NoWorkspaceName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), "project:\n  name: p\n")

	_, err := LoadWorkspaceConfiguration(root, "", "", nil)
	var invalid *InvalidWorkspaceFilesError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Message, "workspace.name")
}

func TestLoadWorkspaceConfiguration_DuplicateWorkspaceName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), "workspace:\n  name: outer\n")
	writeFile(t, filepath.Join(root, "inner", "causa.yaml"), "workspace:\n  name: inner\n")

	_, err := LoadWorkspaceConfiguration(filepath.Join(root, "inner"), "", "", nil)
	var invalid *InvalidWorkspaceFilesError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Message, "workspace.name")
}

func TestLoadWorkspaceConfiguration_MultipleFilesPerDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), `
workspace:
  name: w
value: base
other: base
`)
	writeFile(t, filepath.Join(root, "causa.dev.yaml"), "value: dev\n")

	result, err := LoadWorkspaceConfiguration(root, "", "", nil)
	require.NoError(t, err)

	// Within a directory, files sort descending: causa.yaml first, so the
	// causa.*.yaml variants override it.
	value, err := result.Reader.GetOrError("value")
	require.NoError(t, err)
	assert.Equal(t, "dev", value)

	other, err := result.Reader.GetOrError("other")
	require.NoError(t, err)
	assert.Equal(t, "base", other)
}

func TestLoadWorkspaceConfiguration_EnvironmentOverlay(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), `
workspace:
  name: w
region: default-region
environments:
  dev:
    name: Development
    configuration:
      region: eu-west-1
`)

	result, err := LoadWorkspaceConfiguration(root, "dev", "", nil)
	require.NoError(t, err)

	region, err := result.Reader.GetOrError("region")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", region)

	layers := result.Reader.Layers()
	last := layers[len(layers)-1]
	assert.Equal(t, "environment", last.SourceType)
	assert.Equal(t, "dev", last.Source)
}

func TestLoadWorkspaceConfiguration_UnknownEnvironment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), "workspace:\n  name: w\n")

	_, err := LoadWorkspaceConfiguration(root, "staging", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environments.staging")
}

func TestLoadWorkspaceConfiguration_EnvironmentWithoutConfiguration(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), `
workspace:
  name: w
environments:
  dev:
    name: Development
`)

	result, err := LoadWorkspaceConfiguration(root, "dev", "", nil)
	require.NoError(t, err)
	assert.Len(t, result.Reader.Layers(), 1)
}

func TestLoadWorkspaceConfiguration_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), "workspace:\n  name: w\nvalue: base\n")
	writeFile(t, filepath.Join(root, "causa.local.yaml"), "value: local\n")
	writeFile(t, filepath.Join(root, ".gitignore"), "causa.local.yaml\n")

	result, err := LoadWorkspaceConfiguration(root, "", "", nil)
	require.NoError(t, err)

	value, err := result.Reader.GetOrError("value")
	require.NoError(t, err)
	assert.Equal(t, "base", value)
}

func TestListProjectPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "causa.yaml"), "workspace:\n  name: w\n")
	writeFile(t, filepath.Join(root, "api", "causa.yaml"), "project:\n  name: api\n")
	writeFile(t, filepath.Join(root, "nested", "worker", "causa.yaml"), "project:\n  name: worker\n")
	writeFile(t, filepath.Join(root, "docs", "causa.yaml"), "other: {}\n")

	paths, err := ListProjectPaths(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "api"),
		filepath.Join(root, "nested", "worker"),
	}, paths)
}

func TestListProjectPaths_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "vendor/\n")
	writeFile(t, filepath.Join(root, "api", "causa.yaml"), "project:\n  name: api\n")
	writeFile(t, filepath.Join(root, "vendor", "dep", "causa.yaml"), "project:\n  name: dep\n")

	paths, err := ListProjectPaths(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "api")}, paths)
}

func TestProjectExternalPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "protos", "a.proto"), "syntax")
	writeFile(t, filepath.Join(root, "protos", "b.proto"), "syntax")
	writeFile(t, filepath.Join(root, "protos", "ignored.proto"), "syntax")
	writeFile(t, filepath.Join(root, ".gitignore"), "protos/ignored.proto\n")

	paths, err := ProjectExternalPaths(root, []string{"protos/*.proto"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "protos", "a.proto"),
		filepath.Join(root, "protos", "b.proto"),
	}, paths)
}
