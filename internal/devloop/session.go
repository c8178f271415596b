// Package devloop ties the watcher, planner, build lane and dispatcher into
// one development session.
package devloop

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/payara-dev/internal/build"
	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/livereload"
	"github.com/conneroisu/payara-dev/internal/logging"
	"github.com/conneroisu/payara-dev/internal/planner"
	"github.com/conneroisu/payara-dev/internal/reload"
	"github.com/conneroisu/payara-dev/internal/validation"
	"github.com/conneroisu/payara-dev/internal/watcher"
)

// StatusSink receives user-visible status changes. livereload.Hub
// implements it.
type StatusSink interface {
	Status(status string)
	Reload()
	AnnounceURL(url string)
}

// Service is a background component run for the lifetime of the session.
type Service func(ctx context.Context) error

// Components are the collaborators a Session drives.
type Components struct {
	Root         string
	Subscription watcher.Subscription
	Classifier   *watcher.Classifier
	Ignore       *watcher.IgnoreRules
	Executor     *build.Executor
	Dispatcher   *reload.Dispatcher
	Options      watcher.LoopOptions
	Status       StatusSink
	Services     []Service
	Logger       logging.Logger
	// InitialBuild runs a full compile before the services start so the
	// server boots from fresh output.
	InitialBuild bool
}

// Session is one run of the development loop.
type Session struct {
	c      Components
	state  *watcher.State
	logger logging.Logger
	phase  atomic.Int32

	mu     sync.Mutex
	latest *build.Task
	// loopCtx is the context of the running loop; cycles submitted from
	// outside the watch goroutine use it.
	loopCtx context.Context

	// OnCycle is called after every finished cycle with the task result.
	OnCycle func(plan planner.BuildPlan, result build.Result)
}

// NewSession creates a session. Dispatcher hooks are taken over to drive
// phases and status.
func NewSession(c Components) *Session {
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}
	s := &Session{
		c:       c,
		state:   watcher.NewState(),
		logger:  c.Logger.WithComponent("devloop"),
		loopCtx: context.Background(),
	}
	if c.Dispatcher != nil {
		c.Dispatcher.OnAction = s.onAction
		c.Dispatcher.OnURL = func(u *url.URL) { s.announceURL(u.String()) }
	}
	return s
}

// State returns the shared watch state.
func (s *Session) State() *watcher.State {
	return s.state
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Session) setPhase(ctx context.Context, p Phase) {
	if prev := Phase(s.phase.Swap(int32(p))); prev != p {
		s.logger.Debug(ctx, "Phase changed", "from", prev.String(), "to", p.String())
	}
}

func (s *Session) status() StatusSink {
	if s.c.Status == nil {
		return nopSink{}
	}
	return s.c.Status
}

// Run registers the watch tree and runs the loop, the build lane and every
// service until ctx is done or one of them fails.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := s.c.Options
	opts.Root = s.c.Root
	opts.Subscription = s.c.Subscription
	opts.Classifier = s.c.Classifier
	opts.Ignore = s.c.Ignore
	opts.State = s.state
	opts.Trigger = s.Trigger
	if opts.Logger == nil {
		opts.Logger = s.c.Logger
	}
	loop := watcher.NewLoop(opts)

	if err := loop.Register(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.loopCtx = ctx
	s.mu.Unlock()

	s.c.Executor.Start(ctx)
	defer s.c.Executor.Stop()

	if s.c.InitialBuild {
		s.initialBuild(ctx)
	}

	s.setPhase(ctx, PhaseWatching)
	s.status().Status(livereload.StatusWatching)
	s.logger.Info(ctx, "Watching for changes", "root", s.c.Root)

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range s.c.Services {
		svc := svc
		g.Go(func() error { return svc(gctx) })
	}
	g.Go(func() error {
		// the session ends with the watcher
		defer cancel()
		return loop.Run(gctx)
	})

	err := g.Wait()
	s.setPhase(context.Background(), PhaseIdle)
	return err
}

// Trigger plans the pending changes and submits a build. It is the watch
// loop's trigger and runs on the watch goroutine.
func (s *Session) Trigger(ctx context.Context, admission watcher.Admission) {
	if admission == watcher.AdmittedAfterCancel {
		s.setPhase(ctx, PhaseCancelling)
	}
	s.setPhase(ctx, PhasePlanning)

	snap := s.state.Snapshot()
	plan := planner.PlanSnapshot(snap)
	if plan.Empty() {
		s.setPhase(ctx, PhaseWatching)
		return
	}
	s.submit(ctx, snap, plan)
}

// Rebuild submits a compile and resource sync of the whole project, followed
// by the usual dispatch. Used for the initial deploy once the server is up.
func (s *Session) Rebuild(ctx context.Context) {
	s.mu.Lock()
	loopCtx := s.loopCtx
	s.mu.Unlock()
	if loopCtx.Err() != nil {
		return
	}
	plan := planner.BuildPlan{CompileNeeded: true, ResourceSyncNeeded: true}
	s.submit(ctx, watcher.Snapshot{}, plan)
}

func (s *Session) initialBuild(ctx context.Context) {
	plan := planner.BuildPlan{CompileNeeded: true, ResourceSyncNeeded: true}
	s.setPhase(ctx, PhaseBuilding)
	s.status().Status(livereload.StatusBuilding)
	perf := logging.StartOperation(s.logger, "initial build")

	task, err := s.c.Executor.Submit(build.Request{Invocation: build.Invocation{
		Goals:      plan.Goals(),
		Properties: plan.Properties(),
		Dir:        s.c.Root,
	}})
	if err != nil {
		perf.EndWithError(ctx, err)
		return
	}
	result, err := task.Wait(ctx)
	switch {
	case err != nil:
		return
	case !result.Success():
		perf.EndWithError(ctx, result.Err)
		s.status().Status(livereload.StatusBuildFailed)
	default:
		perf.End(ctx)
	}
}

func (s *Session) submit(ctx context.Context, snap watcher.Snapshot, plan planner.BuildPlan) {
	var action reload.Action
	req := build.Request{SkipBuild: !plan.BuildNeeded()}
	if req.SkipBuild {
		s.logger.Info(ctx, "Applying changes without a build", "plan", plan.String())
	} else {
		s.logger.Info(ctx, "Starting build", "plan", plan.String())
		s.setPhase(ctx, PhaseBuilding)
		s.status().Status(livereload.StatusBuilding)
		req.Invocation = build.Invocation{
			Goals:      plan.Goals(),
			Properties: plan.Properties(),
			Dir:        s.c.Root,
		}
	}
	if s.c.Dispatcher != nil {
		req.PostBuild = func(ctx context.Context) error {
			var err error
			action, err = s.c.Dispatcher.Dispatch(ctx, plan, snap.Events)
			return err
		}
	}

	task, err := s.c.Executor.Submit(req)
	if err != nil {
		s.logger.Error(ctx, err, "Build could not be submitted")
		s.setPhase(ctx, PhaseWatching)
		return
	}

	s.mu.Lock()
	s.latest = task
	loopCtx := s.loopCtx
	s.mu.Unlock()
	s.state.SetInflight(task)

	go s.await(loopCtx, task, snap, plan, &action)
}

func (s *Session) await(ctx context.Context, task *build.Task, snap watcher.Snapshot, plan planner.BuildPlan, action *reload.Action) {
	result, err := task.Wait(ctx)
	if err != nil {
		return
	}

	s.mu.Lock()
	current := s.latest == task
	s.mu.Unlock()

	switch {
	case result.Cancelled:
		s.logger.Debug(ctx, "Build superseded", "task", task.ID)
		if !current {
			break
		}
		s.setPhase(ctx, PhaseWatching)

	case result.Err != nil:
		s.logger.Error(ctx, result.Err, "Build failed; changes stay pending", "exit_code", result.ExitCode)
		if current {
			s.status().Status(livereload.StatusBuildFailed)
			s.setPhase(ctx, PhaseWatching)
		}

	case result.PostErr != nil:
		s.logger.Error(ctx, result.PostErr, "Deploy failed; changes stay pending", "action", action.String())
		if current {
			s.status().Status(livereload.StatusDeployFailed)
			s.setPhase(ctx, PhaseWatching)
		}

	default:
		s.state.Commit(snap)
		s.logger.Info(ctx, "Cycle complete", "action", action.String(), "duration", result.Duration.String())
		if current {
			if *action != reload.ActionRestart {
				s.status().Reload()
			}
			s.status().Status(livereload.StatusWatching)
			s.setPhase(ctx, PhaseWatching)
		}
	}

	if s.OnCycle != nil {
		s.OnCycle(plan, result)
	}
}

// ServerReady is the supervisor's ready hook. In admin mode the application
// is built and deployed; otherwise open browsers are refreshed.
func (s *Session) ServerReady(ctx context.Context) {
	if s.c.Dispatcher != nil && s.c.Dispatcher.Choose(planner.BuildPlan{}) == reload.ActionDeploy {
		s.Rebuild(ctx)
		return
	}
	s.status().Reload()
	s.status().Status(livereload.StatusWatching)
}

func (s *Session) onAction(a reload.Action) {
	ctx := context.Background()
	switch a {
	case reload.ActionDeploy:
		s.setPhase(ctx, PhaseDeploying)
		s.status().Status(livereload.StatusDeploying)
	case reload.ActionRestart:
		s.setPhase(ctx, PhaseDeploying)
		s.status().Status(livereload.StatusRestarting)
	default:
		s.setPhase(ctx, PhaseReloading)
		s.status().Status(livereload.StatusReloading)
	}
}

// announceURL forwards an application URL to browsers. Only plain http(s)
// URLs are passed on.
func (s *Session) announceURL(raw string) {
	if err := validation.ValidateURL(raw); err != nil {
		s.logger.Warn(context.Background(), err, "Ignoring application URL", "url", raw)
		return
	}
	s.status().AnnounceURL(raw)
}

type nopSink struct{}

func (nopSink) Status(string)      {}
func (nopSink) Reload()            {}
func (nopSink) AnnounceURL(string) {}

var _ StatusSink = (*livereload.Hub)(nil)

// IsFatal reports whether err returned from Run should end the process with
// a failure.
func IsFatal(err error) bool {
	return err != nil && !errors.IsCancelled(err)
}
