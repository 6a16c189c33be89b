package freight

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VCGI/VT-DataRail-Tools/internal/archive"
	"github.com/VCGI/VT-DataRail-Tools/internal/config"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/journal"
	"github.com/VCGI/VT-DataRail-Tools/internal/notify"
	"github.com/VCGI/VT-DataRail-Tools/internal/objectstore"
)

// Options configures Execute.
type Options struct {
	Config   *config.Config
	Console  zerolog.Logger
	Notifier notify.Notifier  // nil builds one from Config.Email
	Now      func() time.Time // nil uses time.Now
	RunID    string           // "" generates one
}

// Execute performs a complete SendFreight run: it opens both geodatabases, dispatches
// the train, closes out the run log and emails the report. The returned error is the
// fatal error of the run, if any; the report is always returned.
func Execute(ctx context.Context, opts Options) (*Report, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("freight: config is required")
	}
	logger := opts.Console
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	j, err := journal.Open(cfg.Log.File, logger)
	if err != nil {
		return nil, err
	}
	defer j.Close()
	if opts.Now != nil {
		j.SetClock(opts.Now)
	}

	notifier := opts.Notifier
	if notifier == nil {
		if notifier, err = NewNotifier(cfg.Email); err != nil {
			return nil, err
		}
	}

	logger.Info().Str("runId", runID).Str("source", cfg.Source.Describe()).Str("target", cfg.Target.Describe()).Msg("send freight started")

	report, runErr := dispatch(ctx, cfg, j, logger, runID)

	subject := notify.SubjectReport
	if runErr != nil {
		j.Report("Script encountered error condition and terminated.")
		j.Note("Error details:  " + runErr.Error())
		subject = notify.SubjectError
		report.Failed = true
		report.Error = runErr.Error()
	} else {
		j.Report("Script completed.")
	}
	report.Body = j.Body()

	if err := notifier.Send(ctx, subject, report.Body); err != nil {
		logger.Error().Err(err).Msg("email report not sent")
		report.EmailError = err.Error()
	}

	logger.Info().
		Str("runId", runID).
		Int("copied", report.Count(ActionCopied)).
		Int("refreshed", report.Count(ActionRefreshed)).
		Int("unchanged", report.Count(ActionUnchanged)).
		Int("skipped", report.Count(ActionSkipped)).
		Int("failed", report.Count(ActionFailed)).
		Bool("fatal", report.Failed).
		Msg("send freight finished")
	return report, runErr
}

func dispatch(ctx context.Context, cfg *config.Config, j *journal.Journal, logger zerolog.Logger, runID string) (*Report, error) {
	started := j.Now()
	failed := func(err error) (*Report, error) {
		return &Report{
			RunID:    runID,
			Source:   cfg.Source.Describe(),
			Target:   cfg.Target.Describe(),
			Started:  started,
			Finished: j.Now(),
		}, err
	}

	source, err := openWorkspace(ctx, cfg.Source)
	if err != nil {
		j.Note("Verifying geodatabase connections...")
		j.Report("Can't connect to source geodatabase:  " + cfg.Source.Describe())
		return failed(fmt.Errorf("open source: %w", err))
	}
	defer source.Close()

	target, err := openWorkspace(ctx, cfg.Target)
	if err != nil {
		j.Note("Verifying geodatabase connections...")
		j.Report("Can't connect to target geodatabase:  " + cfg.Target.Describe())
		return failed(fmt.Errorf("open target: %w", err))
	}
	defer target.Close()

	d := &Dispatcher{
		Source:   source,
		Target:   target,
		Notes:    j,
		Loader:   NewLoader(cfg.Load.BatchSize, cfg.Load.RowsPerSecond),
		Archiver: openArchiver(ctx, cfg.Archive, j),
		RunID:    runID,
		Now:      j.Now,
		Logger:   logger,
	}
	return d.Run(ctx)
}

// openWorkspace opens a geodatabase, with an object store for rasters when configured.
func openWorkspace(ctx context.Context, ws config.Workspace) (gdb.Workspace, error) {
	var blobs gdb.BlobStore
	if ws.Rasters.Enabled() {
		client, err := objectstore.New(ws.Rasters)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx, ws.Rasters.Bucket); err != nil {
			return nil, err
		}
		blobs = client
	}
	return gdb.Open(ctx, ws.GDB(blobs))
}

// openArchiver returns nil when archiving is off or its store can't be reached.
func openArchiver(ctx context.Context, cfg config.Archive, j *journal.Journal) *archive.Archiver {
	if !cfg.Enabled {
		return nil
	}
	client, err := objectstore.New(cfg.Store)
	if err == nil {
		a := archive.New(client, cfg.Store.Bucket, cfg.Store.Prefix)
		if err = a.EnsureBucket(ctx); err == nil {
			return a
		}
	}
	j.Note("Archive store unavailable, snapshots disabled:  " + err.Error())
	return nil
}

// NewNotifier builds the SMTP notifier for cfg, or a no-op when email is off.
func NewNotifier(cfg config.Email) (notify.Notifier, error) {
	if !cfg.Enabled() {
		return notify.Nop{}, nil
	}
	return notify.NewSMTP(notify.SMTPConfig{
		Server:   cfg.Server,
		Port:     cfg.Port,
		From:     cfg.From,
		To:       cfg.To,
		Username: cfg.Username,
		Password: cfg.Password,
		TLS:      cfg.TLS,
	})
}
