// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/payara-dev/internal/config"
)

// ProjectDirs is the Maven layout created by CreateTempProject.
var ProjectDirs = []string{
	"src/main/java/com/example",
	"src/main/resources",
	"src/main/webapp/WEB-INF",
	"src/test/java/com/example",
	"src/test/resources",
	"target/classes",
}

// CreateTempProject creates a Maven web project skeleton with a pom.xml.
func CreateTempProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range ProjectDirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755))
	}
	WriteProjectFile(t, root, "pom.xml", "<project/>\n")
	return root
}

// WriteProjectFile writes content to the slash-separated path rel under
// root and returns the absolute path.
func WriteProjectFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// CreateTestConfig loads a configuration for root with the managed server
// and live reload turned off. overrides are applied as viper keys.
func CreateTestConfig(t *testing.T, root string, overrides map[string]any) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("project.root", root)
	v.Set("server.managed", false)
	v.Set("livereload.enabled", false)
	for key, value := range overrides {
		v.Set(key, value)
	}
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)
	return cfg
}

// WaitForFileChange waits for a file to be modified after originalModTime.
func WaitForFileChange(t *testing.T, filePath string, originalModTime time.Time, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
