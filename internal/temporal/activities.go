package temporal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/VCGI/VT-DataRail-Tools/internal/config"
	"github.com/VCGI/VT-DataRail-Tools/internal/freight"
	"github.com/VCGI/VT-DataRail-Tools/internal/notify"
)

// Activities holds the SendFreight activity implementations.
type Activities struct {
	Logger zerolog.Logger
	// Notifier overrides the configured email notifier.
	Notifier notify.Notifier
}

// NewActivities creates the activities with the given console logger.
func NewActivities(logger zerolog.Logger) *Activities {
	return &Activities{Logger: logger}
}

// ShipFreight runs a full SendFreight dispatch from the config at input.ConfigPath.
func (a *Activities) ShipFreight(ctx context.Context, input SendFreightInput) (*freight.Report, error) {
	cfg, err := config.Load(input.ConfigPath)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeConfig, err)
	}
	activity.GetLogger(ctx).Info("shipping freight", "runId", input.RunID, "source", cfg.Source.Describe(), "target", cfg.Target.Describe())

	report, err := freight.Execute(ctx, freight.Options{
		Config:   cfg,
		Console:  a.Logger,
		Notifier: a.Notifier,
		RunID:    input.RunID,
	})
	if err != nil && report == nil {
		// No run log or notifier yet, so no ERROR email went out.
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeRunSetup, err)
	}
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeDispatchFailed, err, report)
	}
	return report, nil
}

// SendFailureReport emails an ERROR report for a run that stopped before it could send
// its own.
func (a *Activities) SendFailureReport(ctx context.Context, input FailureReportInput) error {
	notifier := a.Notifier
	if notifier == nil {
		cfg, err := config.Load(input.ConfigPath)
		if err != nil {
			return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeConfig, err)
		}
		if notifier, err = freight.NewNotifier(cfg.Email); err != nil {
			return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeConfig, err)
		}
	}
	body := fmt.Sprintf("Scheduled SendFreight run %s terminated before completing.\nError details:  %s\n", input.RunID, input.Error)
	if err := notifier.Send(ctx, notify.SubjectError, body); err != nil {
		return fmt.Errorf("send failure report: %w", err)
	}
	a.Logger.Warn().Str("runId", input.RunID).Msg("failure report sent")
	return nil
}
