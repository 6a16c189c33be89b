// Package main runs the DataRail Temporal worker.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/VCGI/VT-DataRail-Tools/internal/config"
	_ "github.com/VCGI/VT-DataRail-Tools/internal/gdb/all"
	"github.com/VCGI/VT-DataRail-Tools/internal/logging"
	"github.com/VCGI/VT-DataRail-Tools/internal/temporal"
)

const healthService = "datarail.worker"

func main() {
	var configPath, logLevel string
	cmd := &cobra.Command{
		Use:          "datarail-worker",
		Short:        "Host the scheduled SendFreight workflow",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel == "" {
				logLevel = cfg.Log.Level
			}
			return run(cfg, logging.New(logging.Options{App: "datarail-worker", Level: logLevel}))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "datarail.toml", "TOML config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "console log level")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("address", cfg.Temporal.Host).
		Str("namespace", cfg.Temporal.Namespace).
		Str("queue", cfg.Temporal.TaskQueue).
		Msg("starting datarail worker")

	c, err := temporal.Dial(cfg.Temporal, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	lis, err := net.Listen("tcp", cfg.Worker.HealthAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Worker.HealthAddr, err)
	}
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	go func() {
		logger.Info().Str("addr", cfg.Worker.HealthAddr).Msg("health gRPC listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("health server stopped")
		}
	}()
	defer grpcServer.GracefulStop()

	w := temporal.NewWorker(c, cfg.Temporal, temporal.NewActivities(logger))
	logger.Info().Strs("activities", []string{temporal.ShipFreightActivity, temporal.SendFailureReportActivity}).Msg("registered workflow " + temporal.SendFreightWorkflow)

	err = w.Run(worker.InterruptCh())
	healthSrv.Shutdown()
	if err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}
	return nil
}
