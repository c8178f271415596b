package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/payara-dev/internal/config"
	"github.com/conneroisu/payara-dev/internal/logging"
)

// bindFlags binds each flag name to its configuration key so a flag that is
// set overrides env, file and default values.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("bindFlags: unknown flag %q", name))
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("bindFlags: %s: %v", name, err))
		}
	}
}

// loadConfig returns the effective configuration.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// newLogger builds the CLI logger: stderr, plus a daily file when
// logging.dir is set. The returned function closes the file.
func newLogger(cfg *config.Config) (logging.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	lc := &logging.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	}
	console := logging.NewLogger(lc)
	if cfg.Logging.Dir == "" {
		return console, func() {}, nil
	}

	file, err := logging.NewFileLogger(lc, cfg.Logging.Dir)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewMultiLogger(console, file), func() { _ = file.Close() }, nil
}

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
