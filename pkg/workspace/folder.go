package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// FolderName is the workspace folder prepared for module installation.
const FolderName = ".causa"

// folderManifestName is the dependency manifest the installer consumes.
const folderManifestName = "package.yaml"

// folderManifest declares the modules a workspace depends on. The actual
// installation into the folder is performed by an external tool.
type folderManifest struct {
	Dependencies map[string]string `yaml:"dependencies"`
}

// SetupWorkspaceFolder prepares the <root>/.causa folder and writes its
// dependency manifest from the context's causa.modules section. It
// returns the folder path. Existing manifest contents are replaced.
func (c *Context) SetupWorkspaceFolder() (string, error) {
	folder := filepath.Join(c.rootPath, FolderName)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace folder %q: %w", folder, err)
	}

	dependencies := make(map[string]string)
	raw, _, err := c.Get(ModulesConfigurationPath)
	if err != nil {
		return "", err
	}
	if rawMap, ok := raw.(map[string]any); ok {
		for name, version := range rawMap {
			if versionString, ok := version.(string); ok {
				dependencies[name] = versionString
			}
		}
	}

	data, err := yaml.Marshal(folderManifest{Dependencies: dependencies})
	if err != nil {
		return "", err
	}

	manifestPath := filepath.Join(folder, folderManifestName)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %q: %w", manifestPath, err)
	}

	names := make([]string, 0, len(dependencies))
	for name := range dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	c.logger.Debug("prepared workspace folder", "folder", folder, "modules", names)

	return folder, nil
}
