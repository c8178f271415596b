package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/payara-dev/internal/devloop"
)

var devSkipBuild bool

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"d", "watch"},
	Short:   "Run the watch, build and reload loop",
	Long: `Run the development loop.

The project tree is watched for changes. Each burst of changes is planned into
the smallest Maven invocation that covers it (clean, resources, compile,
tests) and run on a single build lane; a newer burst cancels a running build.
A successful build is applied by writing the .reload descriptor into the
exploded application (mode "reload"), by deploying through the admin endpoint
(mode "admin"), or by restarting the managed server when a reboot trigger
changed.

Examples:
  payara-dev dev
  payara-dev dev --mode admin --admin-port 4848
  payara-dev dev --managed=false --livereload=false
  payara-dev dev -P dev -D skipFrontend=true`,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)

	f := devCmd.Flags()
	f.String("mode", "reload", "how builds are applied (reload, admin)")
	f.Bool("managed", true, "start and supervise the server process")
	f.String("server-command", "java", "server executable")
	f.StringSlice("server-arg", nil, "server argument (repeatable)")
	f.Bool("hot-deploy", true, "write changed sources into the reload descriptor")
	f.Bool("keep-state", false, "ask the server to keep session state across reloads")
	f.String("context-root", "", "application context root")
	f.Bool("livereload", true, "serve the browser live reload socket")
	f.Int("livereload-port", 35729, "live reload port")
	f.StringP("build-command", "b", "mvn", "Maven executable (mvn, mvnw, ./mvnw)")
	f.StringSliceP("profile", "P", nil, "Maven profile (repeatable)")
	f.StringArrayP("define", "D", nil, "Maven property key=value (repeatable)")
	f.BoolP("offline", "o", false, "run Maven offline")
	f.Int("admin-port", 8080, "admin endpoint port")
	f.BoolVar(&devSkipBuild, "skip-build", false, "do not build before starting the server")

	bindFlags(f, map[string]string{
		"mode":            "deploy.mode",
		"managed":         "server.managed",
		"server-command":  "server.command",
		"server-arg":      "server.args",
		"hot-deploy":      "deploy.hot_deploy",
		"keep-state":      "deploy.keep_state",
		"context-root":    "deploy.context_root",
		"livereload":      "livereload.enabled",
		"livereload-port": "livereload.port",
		"build-command":   "build.command",
		"profile":         "build.profiles",
		"define":          "build.properties",
		"offline":         "build.offline",
		"admin-port":      "admin.port",
	})
}

func runDev(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signalContext()
	defer stop()

	session, closeWatch, err := devloop.NewFromConfig(cfg, !devSkipBuild, logger)
	if err != nil {
		return err
	}
	defer closeWatch()

	if err := session.Run(ctx); devloop.IsFatal(err) {
		logger.Error(ctx, err, "Development loop stopped")
		return err
	}
	return nil
}
