package server

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
)

// Spec describes how to launch the server.
type Spec struct {
	Command string
	Args    []string
	Dir     string
	// Env entries are appended to the current environment.
	Env []string
}

// SignalFunc receives readiness signals scanned from the process output.
type SignalFunc func(Signal)

// Process is a running server. Its stdout and stderr are drained on reader
// goroutines that log every line and feed the readiness scanner.
type Process struct {
	cmd      *exec.Cmd
	logger   logging.Logger
	done     chan struct{}
	err      error
	stopping atomic.Bool
}

// StartProcess launches spec. scanner and onSignal may be nil.
func StartProcess(spec Spec, scanner *ReadinessScanner, onSignal SignalFunc, logger logging.Logger) (*Process, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeProcess, "server stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeProcess, "server stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.NewDeployError(errors.ErrCodeProcess, "starting server process", err).
			WithContext("command", spec.Command)
	}

	p := &Process{
		cmd:    cmd,
		logger: logger.With("pid", cmd.Process.Pid),
		done:   make(chan struct{}),
	}
	p.logger.Info(context.Background(), "Server process started", "command", spec.Command)

	var readers sync.WaitGroup
	drain := func(stream string, r io.Reader) {
		defer readers.Done()
		err := logging.ScanLines(r, func(line string) {
			p.logger.Info(context.Background(), line, "stream", stream)
			if scanner == nil {
				return
			}
			for _, sig := range scanner.Feed(line) {
				if onSignal != nil {
					onSignal(sig)
				}
			}
		})
		if err != nil && !stderrors.Is(err, os.ErrClosed) {
			p.logger.Warn(context.Background(), err, "Reading server output", "stream", stream)
		}
	}
	readers.Add(2)
	go drain("stdout", stdout)
	go drain("stderr", stderr)

	go func() {
		readers.Wait()
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Stopping reports whether Stop has been called.
func (p *Process) Stopping() bool {
	return p.stopping.Load()
}

// Wait blocks until the process exits or ctx is done and returns the exit
// error.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExitCode returns the exit code, or -1 while running or when killed by a
// signal.
func (p *Process) ExitCode() int {
	if !p.Exited() || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Stop asks the process to exit and kills it if it is still running after
// timeout. It returns once the process is gone.
func (p *Process) Stop(timeout time.Duration) error {
	p.stopping.Store(true)
	if p.Exited() {
		return nil
	}

	if err := p.interrupt(); err != nil {
		p.logger.Debug(context.Background(), "Interrupt failed, killing", "error", err)
		return p.kill()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		p.logger.Info(context.Background(), "Server process stopped")
		return nil
	case <-timer.C:
		p.logger.Warn(context.Background(), nil, "Server did not stop in time, killing", "timeout", timeout)
		return p.kill()
	}
}

func (p *Process) interrupt() error {
	if runtime.GOOS == "windows" {
		return stderrors.New("interrupt not supported")
	}
	err := p.cmd.Process.Signal(os.Interrupt)
	if stderrors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *Process) kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return errors.NewDeployError(errors.ErrCodeProcess, "killing server process", err)
	}
	<-p.done
	return nil
}
