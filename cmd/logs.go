package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/payara-dev/internal/admin"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the server log through the admin endpoint",
	Long: `Print the server log.

With --follow the log is polled until interrupted; only new lines are printed.

Examples:
  payara-dev logs
  payara-dev logs --follow --interval 2s`,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolP("follow", "f", false, "keep polling for new lines")
	logsCmd.Flags().Duration("interval", time.Second, "poll interval with --follow")
	logsCmd.Flags().String("target", "", "target instance")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	follow, _ := cmd.Flags().GetBool("follow")
	interval, _ := cmd.Flags().GetDuration("interval")
	instance, _ := cmd.Flags().GetString("target")
	if instance == "" {
		instance = cfg.Deploy.Instance
	}

	ctx, stop := signalContext()
	defer stop()

	client := admin.NewClientFromConfig(cfg.Admin, logger)
	out := cmd.OutOrStdout()
	for {
		text, err := client.FetchLogs(ctx, instance)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if text != "" {
			fmt.Fprint(out, text)
		}
		if !follow {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}
