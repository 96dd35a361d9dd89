package discovery

import (
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreIndex lazily loads .gitignore files and answers whether a path is
// ignored by any of them. A path is checked against the .gitignore of each
// of its ancestor directories, relative to that directory.
type ignoreIndex struct {
	matchers map[string]*ignore.GitIgnore
}

func newIgnoreIndex() *ignoreIndex {
	return &ignoreIndex{matchers: make(map[string]*ignore.GitIgnore)}
}

// matcherFor returns the compiled .gitignore of dir, or nil when the
// directory has none (or it cannot be read).
func (ix *ignoreIndex) matcherFor(dir string) *ignore.GitIgnore {
	if matcher, ok := ix.matchers[dir]; ok {
		return matcher
	}

	var matcher *ignore.GitIgnore
	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		if compiled, err := ignore.CompileIgnoreFile(gitignorePath); err == nil {
			matcher = compiled
		}
	}
	ix.matchers[dir] = matcher
	return matcher
}

// isIgnored reports whether path is ignored by a .gitignore in any
// directory between stopDir (inclusive) and the path's parent.
func (ix *ignoreIndex) isIgnored(path, stopDir string) bool {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if matcher := ix.matcherFor(dir); matcher != nil {
			rel, err := filepath.Rel(dir, path)
			if err == nil && matcher.MatchesPath(filepath.ToSlash(rel)) {
				return true
			}
		}
		if dir == stopDir || dir == filepath.Dir(dir) {
			return false
		}
	}
}
