package freight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/VCGI/VT-DataRail-Tools/internal/archive"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/protocol"
)

// Dispatcher runs one SendFreight pass between two open workspaces.
type Dispatcher struct {
	Source   gdb.Workspace
	Target   gdb.Workspace
	Notes    Notebook
	Loader   *Loader
	Archiver *archive.Archiver // nil disables snapshots
	RunID    string
	Now      func() time.Time
	Logger   zerolog.Logger

	report  *Report
	srcRole protocol.Role
	tgtRole protocol.Role
	params  string
	hasRows bool
	xlog    *protocol.ExchangeLog
	srcInv  *Inventory
	tgtInv  *Inventory
	created map[string]string // upper base name -> full name of datasets made or found empty
}

// Run checks both geodatabases, lines up the train and ships every car. A returned error
// is fatal; the report holds what was shipped before it.
func (d *Dispatcher) Run(ctx context.Context) (*Report, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Loader == nil {
		d.Loader = NewLoader(DefaultBatchSize, 0)
	}
	d.report = &Report{
		RunID:   d.RunID,
		Source:  d.Source.Path(),
		Target:  d.Target.Path(),
		Started: d.Now(),
	}
	defer func() { d.report.Finished = d.Now() }()

	if err := d.preflight(ctx); err != nil {
		return d.report, err
	}

	d.Notes.Note("Collecting info on pre-existing data-objects...")
	if err := d.takeInventories(ctx); err != nil {
		return d.report, err
	}
	if err := d.createDatasets(ctx); err != nil {
		return d.report, err
	}

	var directives []protocol.Parameter
	if d.srcRole == protocol.RoleSpoke && d.hasRows {
		d.Notes.Report("Source geodatabase is a spoke geodatabase w/ directives in A_XCHANGE_PARAMETERS table. Analyzing A_XCHANGE_PARAMETERS table...")
		var err error
		if directives, err = protocol.ReadParameters(ctx, d.Source, d.params); err != nil {
			return d.report, err
		}
	} else {
		d.Notes.Report("Analyzing source data-objects...")
	}
	train := BuildTrain(d.srcInv, d.tgtInv, directives, d.Notes)
	d.Logger.Debug().Int("cars", len(train)).Msg("train lined up")

	for _, car := range train {
		if err := ctx.Err(); err != nil {
			return d.report, err
		}
		wb, err := d.ship(ctx, car)
		d.report.Waybills = append(d.report.Waybills, wb)
		if err != nil {
			return d.report, err
		}
	}
	return d.report, nil
}

func (d *Dispatcher) preflight(ctx context.Context) error {
	d.Notes.Note("Verifying geodatabase connections...")
	if err := d.Source.Ping(ctx); err != nil {
		d.Notes.Report("Can't connect to source geodatabase:  " + d.Source.Path())
		return fmt.Errorf("connect source: %w", err)
	}
	if err := d.Target.Ping(ctx); err != nil {
		d.Notes.Report("Can't connect to target geodatabase:  " + d.Target.Path())
		return fmt.Errorf("connect target: %w", err)
	}
	d.Notes.Report("Source geodatabase: " + d.Source.Path())
	d.Notes.Report("Target geodatabase: " + d.Target.Path())

	d.Notes.Note("Reading and analyzing source-geodatabase's A_README table...")
	role, err := d.readRole(ctx, d.Source, "Source")
	if err != nil {
		return err
	}
	d.srcRole = role
	d.report.SourceRole = string(role)

	if role == protocol.RoleSpoke {
		d.Notes.Note("Verifying source geodatabase (spoke) has an A_XCHANGE_PARAMETERS table...")
		d.params, d.hasRows, err = protocol.FindParameters(ctx, d.Source)
		if errors.Is(err, protocol.ErrNoParameters) {
			d.Notes.Report("Source geodatabase doesn't have an A_XCHANGE_PARAMETERS table, which is required for a spoke geodatabase (can be an empty table if optional special directives aren't used).")
		}
		if err != nil {
			return err
		}
	}

	d.Notes.Note("Reading and analyzing target-geodatabase's A_README table...")
	if role, err = d.readRole(ctx, d.Target, "Target"); err != nil {
		return err
	}
	d.tgtRole = role
	d.report.TargetRole = string(role)

	if role == protocol.RoleHub {
		d.Notes.Note("Verifying target geodatabase (hub) has an A_XCHANGE_LOG table...")
		d.xlog, err = protocol.FindExchangeLog(ctx, d.Target)
		if errors.Is(err, protocol.ErrNoExchangeLog) {
			d.Notes.Report("Target geodatabase doesn't have an A_XCHANGE_LOG table, which is required for a hub geodatabase.")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) readRole(ctx context.Context, ws gdb.Workspace, side string) (protocol.Role, error) {
	rm, err := protocol.ReadReadme(ctx, ws)
	switch {
	case err == nil:
		d.Notes.Report(fmt.Sprintf("%s geodatabase is a %s geodatabase.", side, rm.Role))
		return rm.Role, nil
	case errors.Is(err, protocol.ErrNoReadme):
		d.Notes.Report(side + " geodatabase doesn't have an A_README table, which is required.")
	case errors.Is(err, protocol.ErrWrongProtocol), errors.Is(err, protocol.ErrEmptyReadme):
		d.Notes.Report(side + " geodatabase's A_README table isn't attributed for EGC Geospatial Data Exchange Protocol. Check its A_README table's PROTOCOL field.")
	case errors.Is(err, protocol.ErrBadRole):
		d.Notes.Report(side + " geodatabase's A_README table isn't properly attributed. DB_TYPE field should be 'hub' or 'spoke'.")
	}
	return "", fmt.Errorf("%s readme: %w", strings.ToLower(side), err)
}

func (d *Dispatcher) takeInventories(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		inv, err := TakeInventory(gctx, d.Source)
		if err != nil {
			return fmt.Errorf("source inventory: %w", err)
		}
		d.srcInv = inv
		return nil
	})
	g.Go(func() error {
		inv, err := TakeInventory(gctx, d.Target)
		if err != nil {
			return fmt.Errorf("target inventory: %w", err)
		}
		d.tgtInv = inv
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	d.Logger.Debug().
		Int("sourceClasses", len(d.srcInv.Classes)).
		Int("sourceTables", len(d.srcInv.Tables)).
		Int("sourceRasters", len(d.srcInv.Rasters)).
		Int("targetClasses", len(d.tgtInv.Classes)).
		Int("targetTables", len(d.tgtInv.Tables)).
		Int("targetRasters", len(d.tgtInv.Rasters)).
		Msg("inventories taken")
	return nil
}

// createDatasets makes every source feature dataset the target lacks. Empty target
// datasets count as present.
func (d *Dispatcher) createDatasets(ctx context.Context) error {
	d.created = make(map[string]string)
	for _, ds := range d.tgtInv.EmptyDatasets {
		d.created[strings.ToUpper(gdb.BaseName(ds))] = ds
	}

	for _, c := range d.srcInv.Classes {
		if c.Dataset == "" {
			continue
		}
		name := gdb.BaseName(c.Dataset)
		if _, ok := d.tgtInv.Dataset(name); ok {
			continue
		}
		if _, ok := d.created[strings.ToUpper(name)]; ok {
			continue
		}

		d.Notes.Report(fmt.Sprintf("Feature-dataset %s doesn't already exist in target geodatabase; creating it...", name))
		schema, err := d.Source.Describe(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("describe %s: %w", c.Name, err)
		}
		if _, err := d.Target.CreateFeatureDataset(ctx, name, schema.SpatialReference); err != nil {
			return fmt.Errorf("create feature dataset %s: %w", name, err)
		}
		datasets, err := d.Target.ListDatasets(ctx)
		if err != nil {
			return fmt.Errorf("list feature datasets: %w", err)
		}
		full, ok := gdb.FindByBaseName(datasets, name)
		if !ok {
			d.Notes.Report(fmt.Sprintf("Script encountered error condition when trying to get full name (prefixed) of feature-dataset %s from target geodatabase.", name))
			return fmt.Errorf("feature dataset %s not found after creating it", name)
		}
		d.created[strings.ToUpper(name)] = full
	}
	return nil
}

// targetDataset returns the full name of the target feature dataset matching a source one.
func (d *Dispatcher) targetDataset(name string) (string, bool) {
	if full, ok := d.tgtInv.Dataset(name); ok {
		return full, true
	}
	full, ok := d.created[strings.ToUpper(name)]
	return full, ok
}

// sourcePath renders a source object the way run notes show it.
func (d *Dispatcher) sourcePath(car Car) string {
	parts := []string{d.Source.Path()}
	if car.Dataset != "" {
		if ds, ok := d.srcInv.Dataset(car.Dataset); ok {
			parts = append(parts, ds)
		}
	}
	return strings.Join(append(parts, car.SourceName()), `\`)
}

func (d *Dispatcher) recordExchange(ctx context.Context, note string) error {
	if d.xlog == nil {
		return nil
	}
	return d.xlog.Record(ctx, d.Now(), note)
}
