// Package temporal runs SendFreight on a schedule through Temporal.
package temporal

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/VCGI/VT-DataRail-Tools/internal/freight"
)

const (
	SendFreightWorkflow       = "sendFreightWorkflow"
	ShipFreightActivity       = "ShipFreight"
	SendFailureReportActivity = "SendFailureReport"
)

// Application error types raised by the activities.
const (
	ErrTypeConfig         = "CONFIG_INVALID"
	ErrTypeRunSetup       = "RUN_SETUP_FAILED"
	ErrTypeDispatchFailed = "DISPATCH_FAILED"
)

var shipActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 6 * time.Hour,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Minute,
		BackoffCoefficient: 2.0,
		MaximumInterval:    10 * time.Minute,
		MaximumAttempts:    2,
	},
}

var reportActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 5 * time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second * 5,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    3,
	},
}

// SendFreightInput is the input for SendFreightWorkflow.
type SendFreightInput struct {
	ConfigPath string `json:"configPath"`
	RunID      string `json:"runId,omitempty"`
}

// FailureReportInput is the input for SendFailureReport.
type FailureReportInput struct {
	ConfigPath string `json:"configPath"`
	RunID      string `json:"runId"`
	Error      string `json:"error"`
}

// SendFreightWorkflowFunc ships freight once per scheduled run. A dispatch failure has
// already emailed its ERROR report; any other activity failure sends one here.
func SendFreightWorkflowFunc(ctx workflow.Context, input SendFreightInput) (*freight.Report, error) {
	logger := workflow.GetLogger(ctx)
	if input.RunID == "" {
		input.RunID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}

	var report freight.Report
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, shipActivityOptions), ShipFreightActivity, input).Get(ctx, &report)
	if err == nil {
		return &report, nil
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == ErrTypeDispatchFailed {
		logger.Error("send freight run failed", "runId", input.RunID, "error", err)
		return nil, err
	}

	logger.Error("send freight activity failed, sending failure report", "runId", input.RunID, "error", err)
	failure := FailureReportInput{ConfigPath: input.ConfigPath, RunID: input.RunID, Error: err.Error()}
	if rerr := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, reportActivityOptions), SendFailureReportActivity, failure).Get(ctx, nil); rerr != nil {
		logger.Error("failure report not sent", "runId", input.RunID, "error", rerr)
	}
	return nil, err
}
