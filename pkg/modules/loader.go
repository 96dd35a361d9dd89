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

// Package modules loads workspace modules: external plugins that register
// function implementations with the engine.
//
// The causa.modules configuration section maps module identifiers to
// semantic version ranges (or local path specs, which skip the version
// check). Module code is compiled into the engine binary and announces
// itself to a Loader under its identifier; the version actually installed
// in the workspace folder is read from the module's manifest and gated
// against the requested range before the module's registration function
// runs. Loads are concurrent, and the first failure aborts the load.
//
// A loaded module receives a narrow capability object whose only method
// forwards implementations to the function registry.
package modules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/causa-io/workspace/pkg/core/logging"
	"github.com/causa-io/workspace/pkg/functions"
)

// ManifestFileName is the manifest a module installation carries.
const ManifestFileName = "causa-module.yaml"

// modulesDir is the location of installed modules under the workspace
// folder.
const modulesDir = ".causa/modules"

// Manifest describes an installed module.
type Manifest struct {
	// Name is the module identifier.
	Name string `yaml:"name"`

	// Version is the installed semantic version.
	Version string `yaml:"version"`
}

// Registrar is the capability object handed to a module's registration
// function. It exposes exactly one capability: registering function
// implementations.
type Registrar[C any] interface {
	RegisterFunctionImplementations(impls ...functions.Implementation[C]) error
}

// RegisterFunc is a module's registration entry point.
type RegisterFunc[C any] func(reg Registrar[C]) error

// Loader resolves and loads the modules a workspace requires.
type Loader[C any] struct {
	mu            sync.RWMutex
	registrations map[string]RegisterFunc[C]
	logger        *slog.Logger
}

// NewLoader creates a loader with no known modules.
func NewLoader[C any](logger *slog.Logger) *Loader[C] {
	return &Loader[C]{
		registrations: make(map[string]RegisterFunc[C]),
		logger:        logging.ComponentLogger(logger, "modules"),
	}
}

// RegisterModule announces a compiled-in module under its identifier.
// Loading a workspace that requires the identifier will run fn.
func (l *Loader[C]) RegisterModule(name string, fn RegisterFunc[C]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registrations[name] = fn
}

// Load resolves every required module and runs its registration function.
// All modules load concurrently; the ordering of registrations across
// unrelated modules is therefore nondeterministic. The first failure
// aborts the whole load.
//
// Requirements with a valid semantic version range are gated against the
// version in the module's installed manifest under
// <rootPath>/.causa/modules/<name>/. Other requirement strings (e.g.
// file: path specs) skip the version check.
func (l *Loader[C]) Load(ctx context.Context, rootPath string, requirements map[string]string, registrar Registrar[C]) error {
	g, _ := errgroup.WithContext(ctx)

	for name, version := range requirements {
		g.Go(func() error {
			if err := l.checkVersion(rootPath, name, version); err != nil {
				return err
			}

			l.mu.RLock()
			fn, ok := l.registrations[name]
			l.mu.RUnlock()
			if !ok {
				return &ModuleNotFoundError{Name: name}
			}

			if err := fn(registrar); err != nil {
				return fmt.Errorf("failed to load module %q: %w", name, err)
			}

			l.logger.Debug("loaded module", "module", name, "version", version)
			return nil
		})
	}

	return g.Wait()
}

// checkVersion gates a module against its requested version range.
func (l *Loader[C]) checkVersion(rootPath, name, version string) error {
	constraint, err := semver.NewConstraint(version)
	if err != nil {
		// Not a semver range (e.g. a file: spec): no version check.
		return nil
	}

	manifest, err := l.readManifest(rootPath, name)
	if err != nil {
		return err
	}

	installed, err := semver.NewVersion(manifest.Version)
	if err != nil {
		return &ModuleVersionError{
			Name:    name,
			Version: version,
			Message: fmt.Sprintf("manifest declares invalid version %q", manifest.Version),
		}
	}

	if !constraint.Check(installed) {
		return &IncompatibleModuleVersionError{Name: name, Actual: manifest.Version, Required: version}
	}
	return nil
}

// readManifest loads the installed module's manifest.
func (l *Loader[C]) readManifest(rootPath, name string) (*Manifest, error) {
	manifestPath := filepath.Join(rootPath, filepath.FromSlash(modulesDir), name, ManifestFileName)

	data, err := os.ReadFile(manifestPath)
	if os.IsNotExist(err) {
		return nil, &ModuleNotFoundError{Name: name}
	}
	if err != nil {
		return nil, &ModuleVersionError{Name: name, Message: err.Error()}
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, &ModuleVersionError{Name: name, Message: fmt.Sprintf("invalid manifest: %v", err)}
	}
	if manifest.Version == "" {
		return nil, &ModuleVersionError{Name: name, Message: "manifest does not declare a version"}
	}
	return &manifest, nil
}
