package server

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func shellSpec(script string) Spec {
	return Spec{Command: "/bin/sh", Args: []string{"-c", script}}
}

type signalRecorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *signalRecorder) record(sig Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
}

func (r *signalRecorder) all() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Signal(nil), r.signals...)
}

func TestProcessDrainsOutputAndScans(t *testing.T) {
	requireShell(t)

	rec := &signalRecorder{}
	scanner := NewReadinessScanner()
	p, err := StartProcess(shellSpec(`echo "Payara Micro URLs:"; echo "http://localhost:8080/demo"; echo "ready in 5 (ms)" >&2; exit 3`),
		scanner, rec.record, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = p.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, 3, p.ExitCode())
	assert.True(t, p.Exited())

	signals := rec.all()
	require.Len(t, signals, 2)
	assert.Equal(t, Signal{Kind: SignalURL, URL: "http://localhost:8080/demo"}, signals[0])
	assert.Equal(t, SignalReady, signals[1].Kind)
	assert.True(t, scanner.Ready())
}

func TestProcessStopInterrupts(t *testing.T) {
	requireShell(t)

	p, err := StartProcess(shellSpec(`exec sleep 30`), nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, p.Exited())

	start := time.Now()
	require.NoError(t, p.Stop(5*time.Second))
	assert.True(t, p.Exited())
	assert.True(t, p.Stopping())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessStopKillsAfterTimeout(t *testing.T) {
	requireShell(t)

	p, err := StartProcess(shellSpec(`trap "" INT; echo started; while true; do sleep 0.1; done`), nil, nil, nil)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, p.Stop(300*time.Millisecond))
	assert.True(t, p.Exited())
}

func TestProcessStopAfterExit(t *testing.T) {
	requireShell(t)

	p, err := StartProcess(shellSpec(`exit 0`), nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, 0, p.ExitCode())
	assert.NoError(t, p.Stop(time.Second))
}

func TestProcessEnvAndDir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	spec := shellSpec(`printf '%s' "$PAYARA_DEV_TEST" > out.txt`)
	spec.Dir = dir
	spec.Env = []string{"PAYARA_DEV_TEST=hello"}

	p, err := StartProcess(spec, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.Wait(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestStartProcessMissingCommand(t *testing.T) {
	_, err := StartProcess(Spec{Command: filepath.Join(t.TempDir(), "missing")}, nil, nil, nil)
	assert.Error(t, err)
}
