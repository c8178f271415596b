package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/payara-dev/internal/errors"
)

func TestMavenInvokerArgs(t *testing.T) {
	m := NewMavenInvoker("mvn", "/work/app", nil)
	m.Offline = true
	m.Quiet = true
	m.Profiles = []string{"dev", "local"}
	m.Properties = []string{"skipITs=true"}

	args := m.Args(Invocation{
		Goals:      []string{"compiler:compile", "war:exploded"},
		Properties: []string{"maven.test.skip=true"},
	})
	assert.Equal(t, []string{
		"-o", "-q", "-P", "dev,local",
		"compiler:compile", "war:exploded",
		"-Dmaven.test.skip=true", "-DskipITs=true",
	}, args)
}

func TestMavenInvokerValidate(t *testing.T) {
	tests := []struct {
		name    string
		command string
		props   []string
		wantErr bool
	}{
		{"plain mvn", "mvn", nil, false},
		{"wrapper path", "./mvnw", nil, false},
		{"not allowed", "bash", nil, true},
		{"bad property", "mvn", []string{"x=$(rm -rf /)"}, true},
		{"property without value", "mvn", []string{"novalue"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMavenInvoker(tt.command, ".", nil)
			err := m.Validate(Invocation{Goals: []string{"compile"}, Properties: tt.props})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// fakeWrapper writes an executable mvnw script into a temp dir.
func fakeWrapper(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script wrapper requires a POSIX shell")
	}
	dir := t.TempDir()
	script := `#!/bin/sh
case "$*" in
  *fail*) echo "compilation failure" >&2; exit 3 ;;
  *hang*) exec sleep 30 ;;
esac
echo "BUILD SUCCESS"
`
	path := filepath.Join(dir, "mvnw")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestMavenInvokerExitCodes(t *testing.T) {
	wrapper := fakeWrapper(t)
	m := NewMavenInvoker(wrapper, filepath.Dir(wrapper), nil)

	code, err := m.Invoke(context.Background(), Invocation{Goals: []string{"compile"}})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = m.Invoke(context.Background(), Invocation{Goals: []string{"fail"}})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestMavenInvokerCancel(t *testing.T) {
	wrapper := fakeWrapper(t)
	m := NewMavenInvoker(wrapper, filepath.Dir(wrapper), nil)
	m.WaitDelay = 500 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := m.Invoke(ctx, Invocation{Goals: []string{"hang"}})
	assert.True(t, errors.IsCancelled(err))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestMavenInvokerCancelledBeforeSpawn(t *testing.T) {
	m := NewMavenInvoker("mvn", ".", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Invoke(ctx, Invocation{Goals: []string{"compile"}})
	assert.True(t, errors.IsCancelled(err))
}
