// Package config provides configuration management for payara-dev using
// Viper for loading from files, environment variables and command-line flags.
//
// Precedence is flag > environment (PAYARA_DEV_ prefix) > config file
// (.payara-dev.yml) > compiled default. Load resolves every default once,
// including the reboot-trigger list, so the watch loop only ever reads an
// immutable value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/viper"
)

// Deploy modes.
const (
	// DeployModeReload hot-reloads an exploded deployment through the .reload sentinel.
	DeployModeReload = "reload"
	// DeployModeAdmin pushes every successful build through the admin endpoint.
	DeployModeAdmin = "admin"
)

// DefaultRebootTriggers are files outside the source tree that a running
// server only reads at boot.
var DefaultRebootTriggers = []string{
	"pre-boot-commands.txt",
	"post-boot-commands.txt",
	"post-deploy-commands.txt",
}

type Config struct {
	Project    ProjectConfig    `mapstructure:"project" yaml:"project" json:"project"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch" json:"watch"`
	Build      BuildConfig      `mapstructure:"build" yaml:"build" json:"build"`
	Admin      AdminConfig      `mapstructure:"admin" yaml:"admin" json:"admin"`
	Deploy     DeployConfig     `mapstructure:"deploy" yaml:"deploy" json:"deploy"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	LiveReload LiveReloadConfig `mapstructure:"livereload" yaml:"livereload" json:"livereload"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging" json:"logging"`
}

type ProjectConfig struct {
	Root           string   `mapstructure:"root" yaml:"root" json:"root"`
	BuildOutput    string   `mapstructure:"build_output" yaml:"build_output" json:"build_output"`
	RebootTriggers []string `mapstructure:"reboot_triggers" yaml:"reboot_triggers" json:"reboot_triggers"`
}

type WatchConfig struct {
	PollTimeout    time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout" json:"poll_timeout"`
	Settle         time.Duration `mapstructure:"settle" yaml:"settle" json:"settle"`
	DebounceWindow time.Duration `mapstructure:"debounce_window" yaml:"debounce_window" json:"debounce_window"`
	Ignore         []string      `mapstructure:"ignore" yaml:"ignore" json:"ignore"`
}

type BuildConfig struct {
	Command    string   `mapstructure:"command" yaml:"command" json:"command"`
	Properties []string `mapstructure:"properties" yaml:"properties" json:"properties"`
	Profiles   []string `mapstructure:"profiles" yaml:"profiles" json:"profiles"`
	Offline    bool     `mapstructure:"offline" yaml:"offline" json:"offline"`
	Quiet      bool     `mapstructure:"quiet" yaml:"quiet" json:"quiet"`
}

type AdminConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" json:"host"`
	Port            int           `mapstructure:"port" yaml:"port" json:"port"`
	Protocol        string        `mapstructure:"protocol" yaml:"protocol" json:"protocol"`
	PathPrefix      string        `mapstructure:"path_prefix" yaml:"path_prefix" json:"path_prefix"`
	Domain          string        `mapstructure:"domain" yaml:"domain" json:"domain"`
	User            string        `mapstructure:"user" yaml:"user" json:"user"`
	Password        string        `mapstructure:"password" yaml:"-" json:"-"`
	HTTPPort        int           `mapstructure:"http_port" yaml:"http_port" json:"http_port"`
	HTTPSPort       int           `mapstructure:"https_port" yaml:"https_port" json:"https_port"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	DeployTimeout   time.Duration `mapstructure:"deploy_timeout" yaml:"deploy_timeout" json:"deploy_timeout"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" json:"retry_delay"`
	ConnectAttempts int           `mapstructure:"connect_attempts" yaml:"connect_attempts" json:"connect_attempts"`
	ConnectDelay    time.Duration `mapstructure:"connect_delay" yaml:"connect_delay" json:"connect_delay"`
}

type DeployConfig struct {
	Mode        string `mapstructure:"mode" yaml:"mode" json:"mode"`
	Name        string `mapstructure:"name" yaml:"name" json:"name"`
	Instance    string `mapstructure:"instance" yaml:"instance" json:"instance"`
	ContextRoot string `mapstructure:"context_root" yaml:"context_root" json:"context_root"`
	ExplodedDir string `mapstructure:"exploded_dir" yaml:"exploded_dir" json:"exploded_dir"`
	Artifact    string `mapstructure:"artifact" yaml:"artifact" json:"artifact"`
	Exploded    bool   `mapstructure:"exploded" yaml:"exploded" json:"exploded"`
	HotDeploy   bool   `mapstructure:"hot_deploy" yaml:"hot_deploy" json:"hot_deploy"`
	KeepState   bool   `mapstructure:"keep_state" yaml:"keep_state" json:"keep_state"`
}

type ServerConfig struct {
	Managed     bool          `mapstructure:"managed" yaml:"managed" json:"managed"`
	Command     string        `mapstructure:"command" yaml:"command" json:"command"`
	Args        []string      `mapstructure:"args" yaml:"args" json:"args"`
	Dir         string        `mapstructure:"dir" yaml:"dir" json:"dir"`
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout" json:"stop_timeout"`
}

type LiveReloadConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" yaml:"host" json:"host"`
	Port    int    `mapstructure:"port" yaml:"port" json:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// SetDefaults registers the compiled defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project.root", ".")
	v.SetDefault("project.build_output", "target")

	v.SetDefault("watch.poll_timeout", 60*time.Second)
	v.SetDefault("watch.settle", 100*time.Millisecond)
	v.SetDefault("watch.debounce_window", time.Second)

	v.SetDefault("build.command", "mvn")

	v.SetDefault("admin.host", "localhost")
	v.SetDefault("admin.port", 8080)
	v.SetDefault("admin.protocol", "http")
	v.SetDefault("admin.path_prefix", "/__asadmin/")
	v.SetDefault("admin.domain", "domain1")
	v.SetDefault("admin.user", "admin")
	v.SetDefault("admin.http_port", 8080)
	v.SetDefault("admin.https_port", 8181)
	v.SetDefault("admin.connect_timeout", 3*time.Second)
	v.SetDefault("admin.read_timeout", 3*time.Second)
	v.SetDefault("admin.deploy_timeout", 2*time.Minute)
	v.SetDefault("admin.retry_delay", 3*time.Second)
	v.SetDefault("admin.connect_attempts", 60)
	v.SetDefault("admin.connect_delay", time.Second)

	v.SetDefault("deploy.mode", DeployModeReload)
	v.SetDefault("deploy.exploded", true)
	v.SetDefault("deploy.hot_deploy", true)

	v.SetDefault("server.managed", true)
	v.SetDefault("server.command", "java")
	v.SetDefault("server.stop_timeout", 10*time.Second)

	v.SetDefault("livereload.enabled", true)
	v.SetDefault("livereload.host", "localhost")
	v.SetDefault("livereload.port", 35729)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applies derived defaults and
// validates the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := resolveDerived(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// resolveDerived fills defaults that depend on other values.
func resolveDerived(config *Config) error {
	root, err := filepath.Abs(config.Project.Root)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	config.Project.Root = root

	config.Project.RebootTriggers = mergeTriggers(DefaultRebootTriggers, config.Project.RebootTriggers)

	if config.Deploy.Name == "" {
		config.Deploy.Name = filepath.Base(root)
	}
	if config.Deploy.ExplodedDir == "" {
		config.Deploy.ExplodedDir = filepath.Join(root, config.Project.BuildOutput, config.Deploy.Name)
	} else if !filepath.IsAbs(config.Deploy.ExplodedDir) {
		config.Deploy.ExplodedDir = filepath.Join(root, config.Deploy.ExplodedDir)
	}
	if config.Deploy.Artifact == "" {
		if config.Deploy.Exploded {
			config.Deploy.Artifact = config.Deploy.ExplodedDir
		} else {
			config.Deploy.Artifact = filepath.Join(root, config.Project.BuildOutput, config.Deploy.Name+".war")
		}
	}
	if config.Server.Dir == "" {
		config.Server.Dir = root
	}
	return nil
}

func mergeTriggers(defaults, configured []string) []string {
	merged := make([]string, 0, len(defaults)+len(configured))
	for _, name := range append(slices.Clone(defaults), configured...) {
		if name == "" || slices.Contains(merged, name) {
			continue
		}
		merged = append(merged, name)
	}
	return merged
}

// Exists reports whether the project root exists and is a directory.
func (c *Config) Exists() bool {
	info, err := os.Stat(c.Project.Root)
	return err == nil && info.IsDir()
}
