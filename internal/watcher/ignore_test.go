package watcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreRules(t *testing.T) {
	root := filepath.FromSlash("/work/app")
	rules := NewIgnoreRules(root, "target", "node_modules")

	tests := []struct {
		rel     string
		ignored bool
	}{
		{"src/main/java/A.java", false},
		{"src/main/java/A.java~", true},
		{".idea/workspace.xml", true},
		{"target/classes/A.class", true},
		{"node_modules/x/index.js", true},
		{"nb-configuration.xml", true},
		{".git/HEAD", true},
		{"pom.xml", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.ignored, rules.Ignored(filepath.Join(root, filepath.FromSlash(tt.rel))))
		})
	}

	assert.True(t, rules.Ignored(filepath.FromSlash("/elsewhere/file")))
	assert.False(t, rules.Ignored(root))
}

func TestIgnoredDirNeverSkipsRoot(t *testing.T) {
	root := filepath.FromSlash("/work/target")
	rules := NewIgnoreRules(root, "target")
	assert.False(t, rules.IgnoredDir(root))
	assert.True(t, rules.IgnoredDir(filepath.Join(root, "target")))
}
