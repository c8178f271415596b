package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
	"github.com/conneroisu/payara-dev/internal/validation"
)

// Invoker runs one build invocation and reports its exit code.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (int, error)
}

// MavenInvoker runs Maven as a subprocess.
type MavenInvoker struct {
	Command    string
	Dir        string
	Properties []string
	Profiles   []string
	Offline    bool
	Quiet      bool
	// WaitDelay bounds how long a cancelled build may take to exit after the
	// interrupt before it is killed.
	WaitDelay time.Duration
	Logger    logging.Logger
}

// NewMavenInvoker creates an invoker for command running in dir.
func NewMavenInvoker(command, dir string, logger logging.Logger) *MavenInvoker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MavenInvoker{
		Command:   command,
		Dir:       dir,
		WaitDelay: 5 * time.Second,
		Logger:    logger.WithComponent("maven"),
	}
}

// Args returns the command line arguments for inv.
func (m *MavenInvoker) Args(inv Invocation) []string {
	var args []string
	if m.Offline {
		args = append(args, "-o")
	}
	if m.Quiet {
		args = append(args, "-q")
	}
	if len(m.Profiles) > 0 {
		args = append(args, "-P", strings.Join(m.Profiles, ","))
	}
	args = append(args, inv.Goals...)
	for _, kv := range inv.Properties {
		args = append(args, "-D"+kv)
	}
	for _, kv := range m.Properties {
		args = append(args, "-D"+kv)
	}
	return args
}

// Validate checks the command and every argument before anything is spawned.
func (m *MavenInvoker) Validate(inv Invocation) error {
	if err := validation.ValidateCommand(m.Command, validation.BuildCommands); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidArgument, err.Error())
	}
	for _, kv := range append(append([]string{}, inv.Properties...), m.Properties...) {
		if err := validation.ValidateProperty(kv); err != nil {
			return errors.NewValidationError(errors.ErrCodeInvalidArgument, err.Error())
		}
	}
	for _, arg := range m.Args(inv) {
		if err := validation.ValidateArgument(arg); err != nil {
			return errors.NewValidationError(errors.ErrCodeInvalidArgument, fmt.Sprintf("invalid argument '%s': %v", arg, err))
		}
	}
	return nil
}

// Invoke runs Maven and returns its exit code. Output is forwarded line by
// line to the logger. A cancelled context interrupts the process and kills
// it after WaitDelay.
func (m *MavenInvoker) Invoke(ctx context.Context, inv Invocation) (int, error) {
	if err := m.Validate(inv); err != nil {
		return -1, err
	}
	if ctx.Err() != nil {
		return -1, errors.ErrBuildCancelled
	}

	dir := inv.Dir
	if dir == "" {
		dir = m.Dir
	}

	args := m.Args(inv)
	cmd := exec.CommandContext(ctx, m.Command, args...)
	cmd.Dir = dir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = m.WaitDelay

	stdout := logging.NewLineWriter(m.Logger, "stdout")
	stderr := logging.NewLineWriter(m.Logger, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	defer stdout.Flush()
	defer stderr.Flush()

	m.Logger.Info(ctx, "Running build", "command", m.Command, "args", strings.Join(args, " "), "dir", dir)

	err := cmd.Run()
	if ctx.Err() != nil {
		return -1, errors.ErrBuildCancelled
	}
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, errors.WrapBuild(err, errors.ErrCodeProcess, "failed to run "+m.Command)
	}
	return 0, nil
}
