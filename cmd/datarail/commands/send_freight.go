package commands

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/VCGI/VT-DataRail-Tools/internal/config"
	"github.com/VCGI/VT-DataRail-Tools/internal/freight"
	"github.com/VCGI/VT-DataRail-Tools/internal/logging"
)

func sendFreightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-freight",
		Short: "Copy data objects from the source geodatabase to the target and email a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := sendFreight(cmd.Context(), configPath)
			return err
		},
	}
}

func sendFreight(ctx context.Context, path string) (*freight.Report, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return freight.Execute(ctx, freight.Options{
		Config:  cfg,
		Console: consoleFor(cfg),
	})
}

// consoleFor applies the config's log settings unless --log-level was given.
func consoleFor(cfg *config.Config) zerolog.Logger {
	if !cfg.Log.Console {
		return zerolog.Nop()
	}
	if logLevel != "" {
		return logger
	}
	return logging.New(logging.Options{App: "datarail", Level: cfg.Log.Level})
}
