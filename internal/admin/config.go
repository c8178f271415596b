package admin

import (
	"github.com/conneroisu/payara-dev/internal/config"
	"github.com/conneroisu/payara-dev/internal/logging"
)

// NewClientFromConfig builds an instance and client from the admin section.
func NewClientFromConfig(cfg config.AdminConfig, logger logging.Logger) *Client {
	instance := NewServerInstance(cfg.Host, cfg.Port, cfg.Protocol)
	instance.Domain = cfg.Domain
	instance.User = cfg.User
	instance.Password = cfg.Password
	if cfg.PathPrefix != "" {
		instance.PathPrefix = cfg.PathPrefix
	}
	if cfg.HTTPPort > 0 {
		instance.HTTPPort = cfg.HTTPPort
	}
	if cfg.HTTPSPort > 0 {
		instance.HTTPSPort = cfg.HTTPSPort
	}
	return NewClient(instance, Options{
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		DeployTimeout:  cfg.DeployTimeout,
		RetryDelay:     cfg.RetryDelay,
		Logger:         logger,
	})
}

// DeployOptionsFromConfig maps the deploy section to DeployOptions.
func DeployOptionsFromConfig(cfg config.DeployConfig) DeployOptions {
	return DeployOptions{
		Name:        cfg.Name,
		Artifact:    cfg.Artifact,
		Instance:    cfg.Instance,
		ContextRoot: cfg.ContextRoot,
		Exploded:    cfg.Exploded,
		HotDeploy:   cfg.HotDeploy,
	}
}
