// Package cmd provides the payara-dev command-line interface.
//
// Configuration System:
//
//	Values are resolved with this precedence (highest first):
//	1. Command-line flags (--config, --log-level, etc.)
//	2. PAYARA_DEV_<SECTION>_<OPTION> environment variables, including
//	   values loaded from a .env file in the working directory
//	3. The configuration file (.payara-dev.yml, --config, or PAYARA_DEV_CONFIG_FILE)
//	4. Compiled defaults
package cmd

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "payara-dev",
	Short: "Watch, rebuild and redeploy a Payara application while you edit it",
	Long: `payara-dev runs a development loop for a Maven web application on Payara
Micro or Payara Server: it watches the source tree, runs the smallest Maven
build that covers the change, and hot reloads, redeploys or restarts the
server.

Quick Start:
  payara-dev dev                      Watch and reload the project in the current directory
  payara-dev dev --mode admin         Push every build through the admin endpoint
  payara-dev deploy target/app.war    Deploy once
  payara-dev logs --follow            Tail the server log
  payara-dev config show              Print the effective configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .payara-dev.yml, can also use PAYARA_DEV_CONFIG_FILE env var)")
	pf.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.StringP("root", "r", ".", "project root directory")
	bindFlags(pf, map[string]string{
		"log-level":  "logging.level",
		"log-format": "logging.format",
		"root":       "project.root",
	})
}

// initConfig loads .env, selects the config file and enables PAYARA_DEV_
// environment overrides.
func initConfig() {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: failed to load .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("PAYARA_DEV_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".payara-dev")
	}

	viper.SetEnvPrefix("PAYARA_DEV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) && (cfgFile != "" || os.Getenv("PAYARA_DEV_CONFIG_FILE") != "") {
			fmt.Fprintln(os.Stderr, "Warning: failed to read config file:", err)
		}
	}
}
