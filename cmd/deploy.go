package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/payara-dev/internal/admin"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [artifact]",
	Short: "Deploy an application through the admin endpoint",
	Long: `Deploy a war file or an exploded directory once.

Without an argument the configured artifact (deploy.artifact, by default the
exploded build output) is deployed.

Examples:
  payara-dev deploy
  payara-dev deploy target/app.war --name app --context-root /`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

var undeployCmd = &cobra.Command{
	Use:   "undeploy [name]",
	Short: "Undeploy an application through the admin endpoint",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUndeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(undeployCmd)

	for _, c := range []*cobra.Command{deployCmd, undeployCmd} {
		c.Flags().String("name", "", "application name")
		c.Flags().String("target", "", "target instance")
	}
	deployCmd.Flags().String("context-root", "", "application context root")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := admin.DeployOptionsFromConfig(cfg.Deploy)
	if len(args) == 1 {
		artifact, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		opts.Artifact = artifact
		opts.Exploded = filepath.Ext(artifact) != ".war"
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		opts.Name = v
	}
	if v, _ := cmd.Flags().GetString("target"); v != "" {
		opts.Instance = v
	}
	if v, _ := cmd.Flags().GetString("context-root"); v != "" {
		opts.ContextRoot = v
	}

	ctx, stop := signalContext()
	defer stop()

	client := admin.NewClientFromConfig(cfg.Admin, logger)
	if err := client.Connect(ctx, cfg.Admin.ConnectAttempts, cfg.Admin.ConnectDelay); err != nil {
		return err
	}
	appURL, err := client.Deploy(ctx, opts)
	if err != nil {
		return err
	}
	if appURL != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Deployed %s at %s\n", opts.Name, appURL)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Deployed %s\n", opts.Name)
	}
	return nil
}

func runUndeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	name := cfg.Deploy.Name
	if len(args) == 1 {
		name = args[0]
	} else if v, _ := cmd.Flags().GetString("name"); v != "" {
		name = v
	}
	instance := cfg.Deploy.Instance
	if v, _ := cmd.Flags().GetString("target"); v != "" {
		instance = v
	}

	ctx, stop := signalContext()
	defer stop()

	client := admin.NewClientFromConfig(cfg.Admin, logger)
	if err := client.Undeploy(ctx, name, instance); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Undeployed %s\n", name)
	return nil
}
