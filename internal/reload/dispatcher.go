package reload

import (
	"context"
	"net/url"

	"github.com/conneroisu/payara-dev/internal/admin"
	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
	"github.com/conneroisu/payara-dev/internal/planner"
	"github.com/conneroisu/payara-dev/internal/watcher"
)

// Action is the branch the dispatcher took.
type Action int

const (
	ActionNone Action = iota
	ActionReload
	ActionDeploy
	ActionRestart
)

// String returns the string representation of the Action
func (a Action) String() string {
	switch a {
	case ActionReload:
		return "reload"
	case ActionDeploy:
		return "deploy"
	case ActionRestart:
		return "restart"
	default:
		return "none"
	}
}

// Modes.
const (
	ModeReload = "reload"
	ModeAdmin  = "admin"
)

// Restarter stops the managed server and starts it again.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Deployer pushes an artifact through the admin endpoint.
type Deployer interface {
	Deploy(ctx context.Context, opts admin.DeployOptions) (*url.URL, error)
}

// Options configures a Dispatcher.
type Options struct {
	Mode        string
	ProjectRoot string
	ExplodedDir string
	ContextRoot string
	HotDeploy   bool
	KeepState   bool
	Deploy      admin.DeployOptions
}

// Dispatcher applies a finished build to the server.
type Dispatcher struct {
	opts      Options
	restarter Restarter
	deployer  Deployer
	logger    logging.Logger

	// OnAction is called before the chosen action runs.
	OnAction func(Action)
	// OnURL is called with the application URL reported by an admin deploy.
	OnURL func(*url.URL)
}

// NewDispatcher creates a dispatcher. restarter is nil when the server is not
// managed; deployer is nil outside admin mode.
func NewDispatcher(opts Options, restarter Restarter, deployer Deployer, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Dispatcher{
		opts:      opts,
		restarter: restarter,
		deployer:  deployer,
		logger:    logger.WithComponent("reload"),
	}
}

// Choose returns the action Dispatch would take for plan.
func (d *Dispatcher) Choose(plan planner.BuildPlan) Action {
	switch {
	case plan.RestartRequired && d.restarter != nil:
		return ActionRestart
	case d.opts.Mode == ModeAdmin && d.deployer != nil:
		return ActionDeploy
	default:
		return ActionReload
	}
}

// Dispatch applies plan. events are the changes the build covered and feed
// the sentinel's changed-source list.
func (d *Dispatcher) Dispatch(ctx context.Context, plan planner.BuildPlan, events []watcher.ChangeEvent) (Action, error) {
	if plan.RestartRequired && d.restarter == nil {
		d.logger.Warn(ctx, nil, "Restart required but the server is not managed; restart it manually")
	}

	action := d.Choose(plan)
	if d.OnAction != nil {
		d.OnAction(action)
	}

	switch action {
	case ActionRestart:
		d.logger.Info(ctx, "Restarting server")
		if err := d.restarter.Restart(ctx); err != nil {
			return action, errors.WrapDeploy(err, errors.ErrCodeProcess, "server restart failed")
		}
		return action, nil

	case ActionDeploy:
		perf := logging.StartOperation(d.logger, "deploy")
		appURL, err := d.deployer.Deploy(ctx, d.opts.Deploy)
		if err != nil {
			perf.EndWithError(ctx, err)
			return action, err
		}
		perf.End(ctx)
		if appURL != nil && d.OnURL != nil {
			d.OnURL(appURL)
		}
		return action, nil

	default:
		path, err := d.reload(plan, events)
		if err != nil {
			return action, errors.WrapIO(err, errors.ErrCodeDeployFailed, "writing reload sentinel").WithPath(d.opts.ExplodedDir)
		}
		d.logger.Info(ctx, "Reload requested", "sentinel", path, "changed", len(events))
		return action, nil
	}
}

func (d *Dispatcher) reload(plan planner.BuildPlan, events []watcher.ChangeEvent) (string, error) {
	if !d.opts.HotDeploy {
		return TouchSentinel(d.opts.ExplodedDir)
	}
	return WriteSentinel(d.opts.ExplodedDir, Descriptor{
		DevMode:         true,
		ContextRoot:     d.opts.ContextRoot,
		KeepState:       d.opts.KeepState,
		HotDeploy:       true,
		MetadataChanged: plan.MetadataChanged,
		SourcesChanged:  planner.ChangedSources(d.opts.ProjectRoot, events),
	})
}
