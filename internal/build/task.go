// Package build runs Maven out of process on a single-worker lane.
//
// The Executor owns one worker goroutine and a one-slot queue, so at most one
// Task is ever running. A Task carries its own cancellation token; the worker
// checks it before spawning the build and the running process is interrupted
// and then killed when the token fires after spawn.
package build

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TaskState is the lifecycle state of a Task.
type TaskState int32

const (
	TaskSubmitted TaskState = iota
	TaskRunning
	TaskCompleted
	TaskCancelled
)

// String returns the string representation of the TaskState
func (s TaskState) String() string {
	switch s {
	case TaskSubmitted:
		return "submitted"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Invocation describes one build tool run.
type Invocation struct {
	Goals      []string
	Properties []string
	Dir        string
}

// PostBuildFunc runs on the build lane after a successful build. Deploy and
// reload steps hook in here so they never overlap the next build.
type PostBuildFunc func(ctx context.Context) error

// Request is what callers submit to the Executor.
type Request struct {
	Invocation Invocation
	PostBuild  PostBuildFunc
	// SkipBuild runs only PostBuild, for cycles that restart the server
	// without rebuilding.
	SkipBuild bool
}

// Result is the outcome of a Task.
type Result struct {
	ExitCode  int
	Duration  time.Duration
	Cancelled bool
	// Err is set when the build could not be run or exited nonzero.
	Err error
	// PostErr is the error returned by the post-build hook.
	PostErr error
}

// Success reports whether the build exited zero and the post-build hook succeeded.
func (r Result) Success() bool {
	return !r.Cancelled && r.Err == nil && r.ExitCode == 0 && r.PostErr == nil
}

// Task is a handle to one submitted build.
type Task struct {
	ID      uint64
	request Request

	ctx       context.Context
	cancel    context.CancelFunc
	submitted time.Time
	state     atomic.Int32

	done   chan struct{}
	once   sync.Once
	result Result
}

func newTask(parent context.Context, id uint64, req Request, now time.Time) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		ID:        id,
		request:   req,
		ctx:       ctx,
		cancel:    cancel,
		submitted: now,
		done:      make(chan struct{}),
	}
}

// Cancel requests cooperative cancellation. It never blocks.
func (t *Task) Cancel() {
	t.cancel()
}

// StartedAt returns the submission time.
func (t *Task) StartedAt() time.Time {
	return t.submitted
}

// Running reports whether the task is queued or running and has not been cancelled.
func (t *Task) Running() bool {
	s := t.State()
	return (s == TaskSubmitted || s == TaskRunning) && t.ctx.Err() == nil
}

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// Done is closed once the task has completed or been cancelled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the final result. It is only meaningful after Done is closed.
func (t *Task) Result() Result {
	<-t.done
	return t.result
}

func (t *Task) setState(s TaskState) {
	t.state.Store(int32(s))
}

func (t *Task) finish(result Result) {
	t.once.Do(func() {
		t.result = result
		if result.Cancelled {
			t.setState(TaskCancelled)
		} else {
			t.setState(TaskCompleted)
		}
		t.cancel()
		close(t.done)
	})
}
