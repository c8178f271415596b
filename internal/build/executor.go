package build

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
)

// ErrExecutorClosed is returned by Submit after Stop or before Start.
var ErrExecutorClosed = errors.NewInternalError("ERR_EXECUTOR_CLOSED", "build executor is not running", nil)

// Executor is the single-worker build lane.
type Executor struct {
	invoker Invoker
	metrics *Metrics
	logger  logging.Logger
	now     func() time.Time

	slot chan *Task

	mutex   sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	nextID  uint64
	running bool
	wg      sync.WaitGroup
}

// NewExecutor creates an executor that runs builds through invoker.
func NewExecutor(invoker Invoker, metrics *Metrics, logger logging.Logger) *Executor {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Executor{
		invoker: invoker,
		metrics: metrics,
		logger:  logger.WithComponent("build"),
		now:     time.Now,
		slot:    make(chan *Task, 1),
	}
}

// Start launches the worker goroutine. The worker stops when ctx is done or
// Stop is called.
func (e *Executor) Start(ctx context.Context) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.running {
		return
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	e.wg.Add(1)
	go e.worker(e.ctx)
}

// Stop cancels any queued or running task and waits for the worker to exit.
func (e *Executor) Stop() {
	e.mutex.Lock()
	cancel := e.cancel
	e.running = false
	e.mutex.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()

	// fail anything left in the slot
	for {
		select {
		case task := <-e.slot:
			task.finish(Result{Cancelled: true, Err: errors.ErrBuildCancelled})
		default:
			return
		}
	}
}

// Submit queues req. A task still waiting in the slot is cancelled and
// replaced, so the lane only ever holds the newest request.
func (e *Executor) Submit(req Request) (*Task, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.running {
		return nil, ErrExecutorClosed
	}

	e.nextID++
	task := newTask(e.ctx, e.nextID, req, e.now())

	for {
		select {
		case e.slot <- task:
			e.logger.Debug(e.ctx, "Build queued", "task", task.ID, "goals", req.Invocation.Goals)
			return task, nil
		case stale := <-e.slot:
			stale.finish(Result{Cancelled: true, Err: errors.ErrBuildCancelled})
			e.metrics.RecordCancelled()
			e.logger.Debug(e.ctx, "Queued build replaced", "task", stale.ID)
		}
	}
}

// Metrics returns the executor's metrics tracker.
func (e *Executor) Metrics() *Metrics {
	return e.metrics
}

func (e *Executor) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-e.slot:
			e.run(task)
		}
	}
}

func (e *Executor) run(task *Task) {
	ctx := task.ctx

	// checkpoint: cancelled while queued
	if ctx.Err() != nil {
		e.logger.Debug(ctx, "Build cancelled before start", "task", task.ID)
		task.finish(Result{Cancelled: true, Err: errors.ErrBuildCancelled})
		e.metrics.RecordCancelled()
		return
	}

	task.setState(TaskRunning)
	perf := logging.StartOperation(e.logger, "build")
	start := e.now()

	var (
		exitCode int
		err      error
	)
	if !task.request.SkipBuild {
		exitCode, err = e.invoker.Invoke(ctx, task.request.Invocation)
	}
	result := Result{ExitCode: exitCode, Duration: e.now().Sub(start)}

	switch {
	case ctx.Err() != nil || errors.IsCancelled(err):
		result.Cancelled = true
		result.Err = errors.ErrBuildCancelled
		e.logger.Debug(ctx, "Build cancelled", "task", task.ID)
	case err != nil:
		result.Err = err
		perf.EndWithError(ctx, err)
	case exitCode != 0:
		result.Err = errors.NewBuildError(errors.ErrCodeBuildFailed, "build exited with a nonzero status", nil).
			WithContext("exit_code", exitCode)
		perf.EndWithError(ctx, result.Err)
	default:
		perf.End(ctx)
		if task.request.PostBuild != nil {
			result.PostErr = task.request.PostBuild(ctx)
			if result.PostErr != nil && (ctx.Err() != nil || stderrors.Is(result.PostErr, context.Canceled)) {
				result.Cancelled = true
			}
		}
	}

	e.metrics.RecordBuild(result)
	task.finish(result)
}
