// Package commands implements the datarail CLI.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	// Workspace kinds
	_ "github.com/VCGI/VT-DataRail-Tools/internal/gdb/all"
	"github.com/VCGI/VT-DataRail-Tools/internal/logging"
)

const defaultConfigPath = "datarail.toml"

var (
	configPath string
	logLevel   string
	logger     zerolog.Logger
)

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRoot().ExecuteContext(ctx)
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "datarail",
		Short:        "VT DataRail Tools for the EGC geospatial data exchange protocol",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = logging.New(logging.Options{App: "datarail", Level: logLevel})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "TOML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "console log level (default from config, else info)")

	root.AddCommand(sendFreightCmd(), inspectMetadataCmd(), toolboxCmd(), initGDBCmd(), scheduleCmd())
	return root
}
