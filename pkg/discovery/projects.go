package discovery

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ListProjectPaths returns the unique directories under root whose
// configuration file declares project.name, honoring .gitignore files.
func ListProjectPaths(root string) ([]string, error) {
	matches, err := globConfigFiles(root, "**/"+configFileName, "**/"+configFilePattern)
	if err != nil {
		return nil, err
	}

	ignores := newIgnoreIndex()
	seen := make(map[string]bool)
	var paths []string
	for _, match := range matches {
		path := filepath.Join(root, filepath.FromSlash(match))
		if ignores.isIgnored(path, root) {
			continue
		}

		tree, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		project, ok := tree["project"].(map[string]any)
		if !ok {
			continue
		}
		if name, ok := project["name"]; !ok || name == nil {
			continue
		}

		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			paths = append(paths, dir)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// ProjectExternalPaths resolves the given globs relative to root, honoring
// .gitignore files and not following symbolic links.
func ProjectExternalPaths(root string, patterns []string) ([]string, error) {
	ignores := newIgnoreIndex()
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithNoFollow())
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			path := filepath.Join(root, filepath.FromSlash(match))
			if ignores.isIgnored(path, root) {
				continue
			}
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// globConfigFiles runs several glob patterns over root and returns the
// merged, deduplicated matches.
func globConfigFiles(root string, patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var matches []string
	for _, pattern := range patterns {
		found, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range found {
			if !seen[match] {
				seen[match] = true
				matches = append(matches, match)
			}
		}
	}
	return matches, nil
}
