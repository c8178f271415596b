package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runCLI executes the root command in a fresh project directory.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(oldDir)
		viper.Reset()
		cfgFile = ""
		configShowFormat = "yaml"
		versionFormat = "text"
		versionShort = false
	})
	viper.Reset()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), err
}

func TestConfigShowYAML(t *testing.T) {
	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "project")
	assert.Contains(t, doc, "watch")
	build := doc["build"].(map[string]any)
	assert.Equal(t, "mvn", build["command"])
	assert.NotContains(t, out, "password")
}

func TestConfigShowJSON(t *testing.T) {
	out, err := runCLI(t, "config", "show", "--format", "json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	deploy := doc["deploy"].(map[string]any)
	assert.Equal(t, "reload", deploy["mode"])
}

func TestConfigShowUnsupportedFormat(t *testing.T) {
	_, err := runCLI(t, "config", "show", "--format", "toml")
	assert.Error(t, err)
}

func TestConfigFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "dev.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("build:\n  command: mvnw\nadmin:\n  port: 4848\n"), 0o644))
	t.Setenv("PAYARA_DEV_ADMIN_PORT", "24848")

	out, err := runCLI(t, "--config", cfgPath, "config", "show", "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Build struct {
			Command string `json:"command"`
		} `json:"build"`
		Admin struct {
			Port int `json:"port"`
		} `json:"admin"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "mvnw", doc.Build.Command)
	assert.Equal(t, 24848, doc.Admin.Port)
}

func TestVersionShort(t *testing.T) {
	out, err := runCLI(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestVersionJSON(t *testing.T) {
	out, err := runCLI(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")
}
