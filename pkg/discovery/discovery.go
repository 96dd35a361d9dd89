// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package discovery locates and loads workspace configuration files.
//
// A workspace is discovered by walking from the working directory up to
// the filesystem root, collecting every file named causa.yaml or
// causa.*.yaml along the way (honoring .gitignore files). The workspace
// root is the unique directory whose configuration declares
// workspace.name; the project root, if any, is the unique directory
// declaring project.name.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/causa-io/workspace/pkg/configuration"
	"github.com/causa-io/workspace/pkg/core/logging"
)

// Configuration file name patterns. The wildcard does not cross path
// separators.
const (
	configFileName    = "causa.yaml"
	configFilePattern = "causa.*.yaml"
)

// Result is the outcome of workspace discovery.
type Result struct {
	// Reader exposes the merged configuration, including the environment
	// overlay when one was requested.
	Reader *configuration.Reader

	// RootPath is the workspace root directory.
	RootPath string

	// ProjectPath is the project root directory, or empty when the working
	// directory is not inside a project.
	ProjectPath string
}

// configFile is one discovered configuration file.
type configFile struct {
	path string
	tree map[string]any
}

// LoadWorkspaceConfiguration walks up from workingDirectory, loads every
// configuration file into a layered reader (closest to the filesystem
// root first), and infers the workspace and project roots. When
// environment is non-empty, the environments.<id> section must exist and
// its configuration mapping, if any, is appended as an extra layer.
func LoadWorkspaceConfiguration(workingDirectory, environment, marker string, logger *slog.Logger) (*Result, error) {
	logger = logging.ComponentLogger(logger, "discovery")

	absWorkingDirectory, err := filepath.Abs(workingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory %q: %w", workingDirectory, err)
	}

	files, err := collectConfigFiles(absWorkingDirectory, logger)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, NewInvalidWorkspaceFilesError("no causa.yaml configuration file found from %q up to the filesystem root", absWorkingDirectory)
	}

	layers := make([]configuration.RawConfiguration, 0, len(files))
	for _, file := range files {
		layers = append(layers, configuration.RawConfiguration{
			SourceType:    configuration.SourceTypeFile,
			Source:        file.path,
			Configuration: file.tree,
		})
	}

	reader, err := configuration.NewReader(marker, layers...)
	if err != nil {
		return nil, err
	}

	rootPath, err := uniqueDeclaringDir(files, "workspace")
	if err != nil {
		return nil, err
	}
	if rootPath == "" {
		return nil, NewInvalidWorkspaceFilesError("no configuration file declares workspace.name between %q and the filesystem root", absWorkingDirectory)
	}

	projectPath, err := uniqueDeclaringDir(files, "project")
	if err != nil {
		return nil, err
	}

	if environment != "" {
		reader, err = applyEnvironmentOverlay(reader, environment)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("loaded workspace configuration",
		"root_path", rootPath,
		"project_path", projectPath,
		"files", len(files))

	return &Result{Reader: reader, RootPath: rootPath, ProjectPath: projectPath}, nil
}

// collectConfigFiles gathers configuration files from workingDirectory up
// to the filesystem root. Within a directory, files sort descending
// lexicographically; across directories, closer to the root comes first.
func collectConfigFiles(workingDirectory string, logger *slog.Logger) ([]configFile, error) {
	var chain []string
	for dir := workingDirectory; ; dir = filepath.Dir(dir) {
		chain = append(chain, dir)
		if dir == filepath.Dir(dir) {
			break
		}
	}

	ignores := newIgnoreIndex()
	topDir := chain[len(chain)-1]

	var files []configFile
	for i := len(chain) - 1; i >= 0; i-- {
		dir := chain[i]

		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Debug("skipping unreadable directory", "dir", dir, "error", err)
			continue
		}

		var names []string
		for _, entry := range entries {
			if entry.IsDir() || !isConfigFileName(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if ignores.isIgnored(path, topDir) {
				logger.Debug("ignoring configuration file excluded by gitignore", "path", path)
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Sort(sort.Reverse(sort.StringSlice(names)))

		for _, name := range names {
			path := filepath.Join(dir, name)
			tree, err := readConfigFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, configFile{path: path, tree: tree})
		}
	}
	return files, nil
}

// isConfigFileName reports whether a base name is a configuration file.
func isConfigFileName(name string) bool {
	if name == configFileName {
		return true
	}
	matched, err := doublestar.Match(configFilePattern, name)
	return err == nil && matched
}

// readConfigFile parses a configuration file into a value tree.
func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewInvalidWorkspaceFilesError("failed to read configuration file %q: %v", path, err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, NewInvalidWorkspaceFilesError("failed to parse configuration file %q: %v", path, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

// uniqueDeclaringDir returns the directory of the single file declaring
// <section>.name. Zero declaring files yield an empty path; more than one
// is an error.
func uniqueDeclaringDir(files []configFile, section string) (string, error) {
	var dirs []string
	for _, file := range files {
		sectionValue, ok := file.tree[section].(map[string]any)
		if !ok {
			continue
		}
		if name, ok := sectionValue["name"]; ok && name != nil {
			dirs = append(dirs, filepath.Dir(file.path))
		}
	}

	switch len(dirs) {
	case 0:
		return "", nil
	case 1:
		return dirs[0], nil
	default:
		return "", NewInvalidWorkspaceFilesError("%d configuration files declare %s.name, expected at most one: %v", len(dirs), section, dirs)
	}
}

// applyEnvironmentOverlay appends environments.<id>.configuration as an
// extra layer. The environment entry itself must exist.
func applyEnvironmentOverlay(reader *configuration.Reader, environment string) (*configuration.Reader, error) {
	entry, err := reader.GetOrError("environments."+environment, configuration.Unsafe())
	if err != nil {
		return nil, err
	}

	entryMap, ok := entry.(map[string]any)
	if !ok {
		return reader, nil
	}
	overlay, ok := entryMap["configuration"].(map[string]any)
	if !ok {
		return reader, nil
	}

	return reader.MergedWith(configuration.RawConfiguration{
		SourceType:    configuration.SourceTypeEnvironment,
		Source:        environment,
		Configuration: overlay,
	})
}
