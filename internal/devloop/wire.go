package devloop

import (
	"context"

	"github.com/conneroisu/payara-dev/internal/admin"
	"github.com/conneroisu/payara-dev/internal/build"
	"github.com/conneroisu/payara-dev/internal/config"
	"github.com/conneroisu/payara-dev/internal/livereload"
	"github.com/conneroisu/payara-dev/internal/logging"
	"github.com/conneroisu/payara-dev/internal/reload"
	"github.com/conneroisu/payara-dev/internal/server"
	"github.com/conneroisu/payara-dev/internal/watcher"
)

// localOrigins are the page origins allowed to open the live reload socket.
var localOrigins = []string{"localhost:*", "127.0.0.1:*", "[::1]:*"}

// NewFromConfig wires a session with the real fsnotify subscription, Maven
// invoker, admin client, managed server and live reload hub. The returned
// close function releases the OS watch.
func NewFromConfig(cfg *config.Config, initialBuild bool, logger logging.Logger) (*Session, func() error, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	root := cfg.Project.Root

	sub, err := watcher.NewFSSubscription(cfg.Watch.Settle)
	if err != nil {
		return nil, nil, err
	}

	invoker := build.NewMavenInvoker(cfg.Build.Command, root, logger)
	invoker.Properties = cfg.Build.Properties
	invoker.Profiles = cfg.Build.Profiles
	invoker.Offline = cfg.Build.Offline
	invoker.Quiet = cfg.Build.Quiet

	var (
		restarter  reload.Restarter
		deployer   reload.Deployer
		supervisor *server.Supervisor
		services   []Service
		status     StatusSink
		client     = admin.NewClientFromConfig(cfg.Admin, logger)
	)
	if cfg.Server.Managed {
		supervisor = server.NewSupervisor(server.Spec{
			Command: cfg.Server.Command,
			Args:    cfg.Server.Args,
			Dir:     cfg.Server.Dir,
		}, cfg.Server.StopTimeout, logger)
		restarter = supervisor
	}
	if cfg.Deploy.Mode == config.DeployModeAdmin {
		deployer = client
	}

	dispatcher := reload.NewDispatcher(reload.Options{
		Mode:        cfg.Deploy.Mode,
		ProjectRoot: root,
		ExplodedDir: cfg.Deploy.ExplodedDir,
		ContextRoot: cfg.Deploy.ContextRoot,
		HotDeploy:   cfg.Deploy.HotDeploy,
		KeepState:   cfg.Deploy.KeepState,
		Deploy:      admin.DeployOptionsFromConfig(cfg.Deploy),
	}, restarter, deployer, logger)

	var hub *livereload.Hub
	if cfg.LiveReload.Enabled {
		hub = livereload.NewHub(localOrigins, logger)
		status = hub
		services = append(services,
			hub.Run,
			func(ctx context.Context) error {
				return hub.Serve(ctx, cfg.LiveReload.Host, cfg.LiveReload.Port)
			},
		)
	}

	session := NewSession(Components{
		Root:         root,
		Subscription: sub,
		Classifier: watcher.NewClassifier(watcher.Layout{
			Root:           root,
			RebootTriggers: cfg.Project.RebootTriggers,
		}),
		Ignore:     watcher.NewIgnoreRules(root, cfg.Project.BuildOutput, cfg.Watch.Ignore...),
		Executor:   build.NewExecutor(invoker, nil, logger),
		Dispatcher: dispatcher,
		Options: watcher.LoopOptions{
			PollTimeout:    cfg.Watch.PollTimeout,
			DebounceWindow: cfg.Watch.DebounceWindow,
		},
		Status:       status,
		Logger:       logger,
		InitialBuild: initialBuild,
	})

	switch {
	case supervisor != nil:
		supervisor.OnReady = session.ServerReady
		supervisor.OnURL = session.announceURL
		session.c.Services = append(session.c.Services, supervisor.Run)
	case deployer != nil:
		// unmanaged server in admin mode: deploy once it answers
		session.c.Services = append(session.c.Services, func(ctx context.Context) error {
			if err := client.Connect(ctx, cfg.Admin.ConnectAttempts, cfg.Admin.ConnectDelay); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			session.ServerReady(ctx)
			return nil
		})
	}
	session.c.Services = append(session.c.Services, services...)

	return session, sub.Close, nil
}
