package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/VCGI/VT-DataRail-Tools/internal/config"
	"github.com/VCGI/VT-DataRail-Tools/internal/temporal"
)

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Start the scheduled SendFreight workflow on the configured cron",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(configPath)
			if err != nil {
				return err
			}
			c, err := temporal.Dial(cfg.Temporal, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			run, err := temporal.Schedule(cmd.Context(), c, cfg.Temporal, abs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started workflow %s (run %s) on %q\n", run.GetID(), run.GetRunID(), cfg.Temporal.Cron)
			return nil
		},
	}
}
