package watcher

import (
	"path/filepath"
	"slices"
	"strings"
)

// DefaultIgnoredNames are IDE metadata entries that are never watched.
var DefaultIgnoredNames = []string{
	".idea",
	".settings",
	".vscode",
	".git",
	"nb-configuration.xml",
	".classpath",
	".project",
}

// IgnoreRules decides which paths under a watch root are noise.
type IgnoreRules struct {
	root  string
	names []string
}

// NewIgnoreRules builds the rules for root. buildOutput is the project's
// build output directory name (e.g. "target"); extra names are appended.
func NewIgnoreRules(root, buildOutput string, extra ...string) *IgnoreRules {
	names := slices.Clone(DefaultIgnoredNames)
	if buildOutput != "" {
		names = append(names, buildOutput)
	}
	names = append(names, extra...)
	return &IgnoreRules{root: root, names: names}
}

// Ignored reports whether path or any of its parents below root is ignored,
// or whether the path is an editor backup ending in '~'.
func (r *IgnoreRules) Ignored(path string) bool {
	if strings.HasSuffix(path, "~") {
		return true
	}
	rel, ok := relativeSlash(r.root, path)
	if !ok {
		return path != r.root
	}
	for _, part := range strings.Split(rel, "/") {
		if slices.Contains(r.names, part) {
			return true
		}
	}
	return false
}

// IgnoredDir reports whether a directory should be skipped during
// registration; it is Ignored applied to directories.
func (r *IgnoreRules) IgnoredDir(dir string) bool {
	return filepath.Clean(dir) != filepath.Clean(r.root) && r.Ignored(dir)
}
