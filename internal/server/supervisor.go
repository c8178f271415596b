package server

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
)

// DefaultStopTimeout bounds a graceful stop before the process is killed.
const DefaultStopTimeout = 10 * time.Second

// Supervisor owns the managed server process across restarts.
type Supervisor struct {
	spec        Spec
	stopTimeout time.Duration
	logger      logging.Logger
	scanner     *ReadinessScanner

	mu      sync.Mutex
	proc    *Process
	runCtx  context.Context
	started int

	// OnReady runs in its own goroutine each time a started process reports
	// ready. It receives the context passed to Run or Start.
	OnReady func(ctx context.Context)
	// OnURL is called for every announced URL.
	OnURL func(url string)
	// OnExit is called when the process exits without being asked to.
	OnExit func(err error)
}

// NewSupervisor creates a supervisor; nothing is started until Start or Run.
func NewSupervisor(spec Spec, stopTimeout time.Duration, logger logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Supervisor{
		spec:        spec,
		stopTimeout: stopTimeout,
		logger:      logger.WithComponent("server"),
		scanner:     NewReadinessScanner(),
		runCtx:      context.Background(),
	}
}

// Scanner returns the readiness scanner of the current process.
func (s *Supervisor) Scanner() *ReadinessScanner {
	return s.scanner
}

// Process returns the current process, or nil.
func (s *Supervisor) Process() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}

// Starts returns how many processes have been started.
func (s *Supervisor) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Start launches the server if it is not already running.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCtx = ctx
	if s.proc != nil && !s.proc.Exited() {
		return nil
	}
	return s.startLocked()
}

// Restart stops the current process, waiting up to the stop timeout, and
// starts a new one.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		if err := s.proc.Stop(s.stopTimeout); err != nil {
			return err
		}
		s.proc = nil
	}
	if err := ctx.Err(); err != nil {
		return errors.ErrBuildCancelled
	}
	s.logger.Info(ctx, "Restarting server")
	return s.startLocked()
}

// Stop stops the current process.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return nil
	}
	err := s.proc.Stop(s.stopTimeout)
	s.proc = nil
	return err
}

// Run starts the server and keeps it until ctx is done, then stops it. An
// unexpected exit is logged; the process is started again on the next
// Restart.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

func (s *Supervisor) startLocked() error {
	s.scanner.Reset()
	ctx := s.runCtx
	proc, err := StartProcess(s.spec, s.scanner, func(sig Signal) {
		switch sig.Kind {
		case SignalURL:
			s.logger.Info(ctx, "Server URL", "url", sig.URL)
			if s.OnURL != nil {
				s.OnURL(sig.URL)
			}
		case SignalReady:
			s.logger.Info(ctx, "Server ready")
			if s.OnReady != nil {
				go s.OnReady(ctx)
			}
		}
	}, s.logger)
	if err != nil {
		return err
	}
	s.proc = proc
	s.started++

	go func() {
		<-proc.Done()
		if proc.Stopping() {
			return
		}
		err := proc.Wait(context.Background())
		s.logger.Error(ctx, err, "Server process exited", "exit_code", proc.ExitCode())
		if s.OnExit != nil {
			s.OnExit(err)
		}
	}()
	return nil
}
