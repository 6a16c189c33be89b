package temporal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/VCGI/VT-DataRail-Tools/internal/config"
)

// Dial connects to the configured Temporal frontend, logging through logger.
func Dial(cfg config.Temporal, logger zerolog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Host,
		Namespace: cfg.Namespace,
		Logger:    NewLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s: %w", cfg.Host, err)
	}
	return c, nil
}

// Register adds the workflow and activities to w.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(SendFreightWorkflowFunc, workflow.RegisterOptions{Name: SendFreightWorkflow})
	w.RegisterActivityWithOptions(acts.ShipFreight, activity.RegisterOptions{Name: ShipFreightActivity})
	w.RegisterActivityWithOptions(acts.SendFailureReport, activity.RegisterOptions{Name: SendFailureReportActivity})
}

// NewWorker creates a worker on the configured task queue with the SendFreight workflow
// registered. Activities run one at a time.
func NewWorker(c client.Client, cfg config.Temporal, acts *Activities) worker.Worker {
	w := worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 1,
	})
	Register(w, acts)
	return w
}

// ScheduleOptions builds the start options for the cron workflow.
func ScheduleOptions(cfg config.Temporal) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:           cfg.WorkflowID,
		TaskQueue:    cfg.TaskQueue,
		CronSchedule: cfg.Cron,
	}
}

// Schedule starts SendFreightWorkflow on cfg.Cron with the config at configPath. An empty
// cron starts a single run.
func Schedule(ctx context.Context, c client.Client, cfg config.Temporal, configPath string) (client.WorkflowRun, error) {
	run, err := c.ExecuteWorkflow(ctx, ScheduleOptions(cfg), SendFreightWorkflow, SendFreightInput{ConfigPath: configPath})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", SendFreightWorkflow, err)
	}
	return run, nil
}
