package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTempProject(t *testing.T) {
	root := CreateTempProject(t)

	for _, dir := range ProjectDirs {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(dir)))
		require.NoError(t, err)
		assert.True(t, info.IsDir(), "Expected %s to be a directory", dir)
	}
	assert.FileExists(t, filepath.Join(root, "pom.xml"))
}

func TestWriteProjectFile(t *testing.T) {
	root := t.TempDir()
	path := WriteProjectFile(t, root, "src/main/java/com/example/App.java", "class App {}")

	assert.Equal(t, filepath.Join(root, "src", "main", "java", "com", "example", "App.java"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "class App {}", string(data))
}

func TestCreateTestConfig(t *testing.T) {
	root := CreateTempProject(t)
	cfg := CreateTestConfig(t, root, map[string]any{"deploy.name": "demo"})

	assert.Equal(t, root, cfg.Project.Root)
	assert.False(t, cfg.Server.Managed)
	assert.False(t, cfg.LiveReload.Enabled)
	assert.Equal(t, filepath.Join(root, "target", "demo"), cfg.Deploy.ExplodedDir)
}

func TestWaitForFileChange(t *testing.T) {
	path := WriteProjectFile(t, t.TempDir(), "a.txt", "one")
	info, err := os.Stat(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		later := info.ModTime().Add(time.Second)
		_ = os.Chtimes(path, later, later)
	}()
	WaitForFileChange(t, path, info.ModTime(), 2*time.Second)
}
