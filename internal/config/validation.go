package config

import (
	"fmt"
	"strings"

	"github.com/conneroisu/payara-dev/internal/errors"
	"github.com/conneroisu/payara-dev/internal/logging"
	"github.com/conneroisu/payara-dev/internal/validation"
)

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	checks := []struct {
		section string
		fn      func(*Config) error
	}{
		{"watch", validateWatchConfig},
		{"build", validateBuildConfig},
		{"admin", validateAdminConfig},
		{"deploy", validateDeployConfig},
		{"server", validateServerConfig},
		{"livereload", validateLiveReloadConfig},
		{"logging", validateLoggingConfig},
	}
	for _, check := range checks {
		if err := check.fn(config); err != nil {
			return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, check.section+" config").
				WithContext("section", check.section)
		}
	}
	return nil
}

func validateWatchConfig(config *Config) error {
	w := config.Watch
	if w.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive, got %s", w.PollTimeout)
	}
	if w.Settle < 0 {
		return fmt.Errorf("settle must not be negative, got %s", w.Settle)
	}
	if w.DebounceWindow < 0 {
		return fmt.Errorf("debounce_window must not be negative, got %s", w.DebounceWindow)
	}
	return nil
}

func validateBuildConfig(config *Config) error {
	if err := validation.ValidateCommand(config.Build.Command, validation.BuildCommands); err != nil {
		return err
	}
	for _, kv := range config.Build.Properties {
		if err := validation.ValidateProperty(kv); err != nil {
			return err
		}
	}
	for _, profile := range config.Build.Profiles {
		if err := validation.ValidateArgument(profile); err != nil {
			return fmt.Errorf("profile %q: %w", profile, err)
		}
	}
	return nil
}

func validateAdminConfig(config *Config) error {
	a := config.Admin
	if err := validation.ValidateHost(a.Host); err != nil {
		return err
	}
	for name, port := range map[string]int{"port": a.Port, "http_port": a.HTTPPort, "https_port": a.HTTPSPort} {
		if err := validatePort(port); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if a.Protocol != "http" && a.Protocol != "https" {
		return fmt.Errorf("protocol must be http or https, got %q", a.Protocol)
	}
	if !strings.HasPrefix(a.PathPrefix, "/") || !strings.HasSuffix(a.PathPrefix, "/") {
		return fmt.Errorf("path_prefix must start and end with '/', got %q", a.PathPrefix)
	}
	if a.ConnectAttempts < 1 {
		return fmt.Errorf("connect_attempts must be at least 1, got %d", a.ConnectAttempts)
	}
	if a.ConnectTimeout <= 0 || a.ReadTimeout <= 0 || a.DeployTimeout <= 0 {
		return fmt.Errorf("connect_timeout, read_timeout and deploy_timeout must be positive")
	}
	return nil
}

func validateDeployConfig(config *Config) error {
	d := config.Deploy
	if d.Mode != DeployModeReload && d.Mode != DeployModeAdmin {
		return fmt.Errorf("mode must be %q or %q, got %q", DeployModeReload, DeployModeAdmin, d.Mode)
	}
	if err := validation.ValidateName(d.Name); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	if d.Instance != "" {
		if err := validation.ValidateName(d.Instance); err != nil {
			return fmt.Errorf("instance: %w", err)
		}
	}
	if d.ContextRoot != "" && strings.ContainsAny(d.ContextRoot, "?#& ") {
		return fmt.Errorf("context_root %q contains invalid characters", d.ContextRoot)
	}
	return nil
}

func validateServerConfig(config *Config) error {
	s := config.Server
	if !s.Managed {
		return nil
	}
	if s.Command == "" {
		return fmt.Errorf("command is required for a managed server")
	}
	if s.StopTimeout <= 0 {
		return fmt.Errorf("stop_timeout must be positive, got %s", s.StopTimeout)
	}
	for _, arg := range s.Args {
		if err := validation.ValidateArgument(arg); err != nil {
			return fmt.Errorf("arg %q: %w", arg, err)
		}
	}
	return nil
}

func validateLiveReloadConfig(config *Config) error {
	if !config.LiveReload.Enabled {
		return nil
	}
	if err := validation.ValidateHost(config.LiveReload.Host); err != nil {
		return err
	}
	return validatePort(config.LiveReload.Port)
}

func validateLoggingConfig(config *Config) error {
	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return err
	}
	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		return fmt.Errorf("format must be text or json, got %q", config.Logging.Format)
	}
	return nil
}

// validatePort allows 0 for system-assigned ports in testing.
func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", port)
	}
	return nil
}
