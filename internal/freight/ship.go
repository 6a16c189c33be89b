package freight

import (
	"context"
	"fmt"

	"github.com/VCGI/VT-DataRail-Tools/internal/archive"
	"github.com/VCGI/VT-DataRail-Tools/internal/digest"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// ship sends one car down the track. Only raster reload failures are survivable.
func (d *Dispatcher) ship(ctx context.Context, car Car) (Waybill, error) {
	wb := Waybill{Car: car}
	var err error
	switch {
	case car.Type == gdb.TypeRaster && car.AlreadyThere:
		err = d.reloadRaster(ctx, &wb)
	case car.Type == gdb.TypeRaster:
		err = d.copyRaster(ctx, &wb)
	case car.AlreadyThere:
		err = d.refresh(ctx, &wb)
	default:
		err = d.copyObject(ctx, &wb)
	}
	if err != nil {
		wb.Action = ActionFailed
		wb.Error = err.Error()
	}
	d.Logger.Debug().Str("object", car.SourceName()).Str("action", string(wb.Action)).Msg("car shipped")
	return wb, err
}

func (d *Dispatcher) copyObject(ctx context.Context, wb *Waybill) error {
	car := wb.Car
	srcName := car.SourceName()
	schema, err := d.Source.Describe(ctx, srcName)
	if err != nil {
		return fmt.Errorf("describe %s: %w", srcName, err)
	}

	var dataset string
	if car.Type == gdb.TypeFeatureClass && car.Dataset != "" {
		var ok bool
		if dataset, ok = d.targetDataset(car.Dataset); !ok {
			return fmt.Errorf("target has no feature dataset %s", car.Dataset)
		}
	}
	full, err := d.Target.CreateObject(ctx, &gdb.ObjectSpec{
		Name:    car.Name,
		Type:    car.Type,
		Dataset: dataset,
		Schema: &gdb.Schema{
			Fields:           schema.DataFields(),
			SpatialReference: schema.SpatialReference,
			GeometryType:     schema.GeometryType,
		},
	})
	if err != nil {
		return fmt.Errorf("copy %s: %w", srcName, err)
	}
	wb.Target = full

	if err := d.loadRows(ctx, wb, full); err != nil {
		return err
	}
	if err := d.copyMetadata(ctx, srcName, full); err != nil {
		return err
	}
	wb.Action = ActionCopied

	if car.Type == gdb.TypeTable {
		if err := d.recordExchange(ctx, "Copied in new table "+full); err != nil {
			return err
		}
		d.Notes.Report(fmt.Sprintf("Copied table %s to target geodatabase. Source Row Count: %d. Target Row Count(after load): %d.", car.Name, wb.SourceRows, wb.TargetRows))
		return nil
	}
	if err := d.recordExchange(ctx, "Copied in new feature-class "+datasetPath(dataset, full)); err != nil {
		return err
	}
	d.Notes.Report(fmt.Sprintf("Copied %s to target geodatabase. Source Row Count: %d. Target Row Count (after load): %d.", datasetPath(car.Dataset, car.Name), wb.SourceRows, wb.TargetRows))
	return nil
}

func (d *Dispatcher) refresh(ctx context.Context, wb *Waybill) error {
	car := wb.Car
	full, ok := d.tgtInv.Lookup(car.Type, car.Name)
	if !ok {
		return fmt.Errorf("target has no %s %s", car.Type.Label(), car.Name)
	}
	wb.Target = full

	if car.DetectChanges {
		where := d.sourcePath(car)
		res, err := Compare(ctx, d.Source, car.SourceName(), d.Target, full, car.SortField)
		switch res {
		case ResultDifferent:
			d.Notes.Report("Change detected for " + where + ".")
		case ResultSame:
			d.Notes.Report("Change NOT detected for " + where + ".")
			wb.Action = ActionUnchanged
			return nil
		default:
			d.Notes.Report("Error... Couldn't conduct change-detection for " + where + ". Check fields. Skipping it.")
			if err != nil {
				d.Notes.Note("Change-detection error:  " + err.Error())
				wb.Error = err.Error()
			}
			wb.Action = ActionSkipped
			return nil
		}
	}

	if err := d.Target.DeleteRows(ctx, full); err != nil {
		return fmt.Errorf("delete rows of %s: %w", full, err)
	}
	if err := d.loadRows(ctx, wb, full); err != nil {
		return err
	}
	wb.Action = ActionRefreshed

	if car.Type == gdb.TypeTable {
		if err := d.recordExchange(ctx, "Refreshed rows of table "+full); err != nil {
			return err
		}
	} else {
		var dataset string
		if car.Dataset != "" {
			c, _ := d.tgtInv.Class(car.Name)
			dataset = c.Dataset
		}
		if err := d.recordExchange(ctx, "Refreshed rows of feature class "+datasetPath(dataset, full)); err != nil {
			return err
		}
	}
	d.Notes.Report(fmt.Sprintf("Loaded rows of %s to target geodatabase. Source Row Count: %d. Target Row Count (after load): %d.", datasetPath(car.Dataset, car.Name), wb.SourceRows, wb.TargetRows))
	return nil
}

// loadRows appends the source rows to target, archives them and fills in the row counts.
func (d *Dispatcher) loadRows(ctx context.Context, wb *Waybill, target string) error {
	srcName := wb.Car.SourceName()
	snap := d.startSnapshot(ctx, target)

	res, err := d.Loader.Load(ctx, d.Source, srcName, d.Target, target, snap)
	if err != nil {
		if snap != nil {
			snap.Abort()
		}
		return fmt.Errorf("load %s: %w", srcName, err)
	}
	wb.Digest = res.Digest
	if snap != nil {
		wb.Archive = d.commitSnapshot(ctx, snap, target)
	}

	if wb.SourceRows, err = d.Source.Count(ctx, srcName); err != nil {
		return fmt.Errorf("count %s: %w", srcName, err)
	}
	if wb.TargetRows, err = d.Target.Count(ctx, target); err != nil {
		return fmt.Errorf("count %s: %w", target, err)
	}
	return nil
}

func (d *Dispatcher) startSnapshot(ctx context.Context, target string) *archive.Snapshot {
	if d.Archiver == nil {
		return nil
	}
	schema, err := d.Target.Describe(ctx, target)
	if err == nil {
		var snap *archive.Snapshot
		if snap, err = d.Archiver.NewSnapshot(&gdb.Schema{Fields: schema.DataFields()}); err == nil {
			return snap
		}
	}
	d.Notes.Note(fmt.Sprintf("Couldn't start archive snapshot of %s:  %v", target, err))
	return nil
}

func (d *Dispatcher) commitSnapshot(ctx context.Context, snap *archive.Snapshot, target string) string {
	loc, err := d.Archiver.Commit(ctx, snap, d.RunID, target, d.Now())
	if err != nil {
		d.Notes.Note(fmt.Sprintf("Couldn't archive snapshot of %s:  %v", target, err))
		return ""
	}
	d.Notes.Note(fmt.Sprintf("Archived %d rows of %s to %s", snap.Rows(), target, loc))
	return loc
}

func (d *Dispatcher) copyMetadata(ctx context.Context, srcName, target string) error {
	md, err := d.Source.Metadata(ctx, srcName)
	if err != nil {
		return fmt.Errorf("read metadata of %s: %w", srcName, err)
	}
	if md.Empty() {
		return nil
	}
	if err := d.Target.SetMetadata(ctx, target, md); err != nil {
		return fmt.Errorf("write metadata of %s: %w", target, err)
	}
	return nil
}

func (d *Dispatcher) copyRaster(ctx context.Context, wb *Waybill) error {
	if err := d.transferRaster(ctx, wb); err != nil {
		return err
	}
	wb.Action = ActionCopied
	if err := d.recordExchange(ctx, "Copied in new raster-dataset "+wb.Car.Name); err != nil {
		return err
	}
	d.Notes.Report(fmt.Sprintf("Copied raster-dataset %s to target geodatabase.", wb.Car.Name))
	return nil
}

// reloadRaster replaces an existing raster. Failures are noted and the run goes on.
func (d *Dispatcher) reloadRaster(ctx context.Context, wb *Waybill) error {
	car := wb.Car
	full, ok := d.tgtInv.Lookup(gdb.TypeRaster, car.Name)
	if !ok {
		return fmt.Errorf("target has no raster-dataset %s", car.Name)
	}

	err := d.Target.Delete(ctx, full)
	if err == nil {
		err = d.transferRaster(ctx, wb)
	}
	if err == nil {
		err = d.recordExchange(ctx, "Refreshed raster-dataset "+full)
	}
	if err != nil {
		d.Notes.Report(fmt.Sprintf("Couldn't re-load raster-dataset %s. A lock might be blocking the operation. An exclusive lock is required (consult w/ a DBA for more info).", car.Name))
		d.Notes.Note("Raster re-load error:  " + err.Error())
		wb.Action = ActionFailed
		wb.Error = err.Error()
		return nil
	}
	wb.Action = ActionRefreshed
	d.Notes.Report(fmt.Sprintf("Re-loaded raster-dataset %s to target geodatabase.", car.Name))
	return nil
}

func (d *Dispatcher) transferRaster(ctx context.Context, wb *Waybill) error {
	srcName := wb.Car.SourceName()
	data, err := d.Source.ReadRaster(ctx, srcName)
	if err != nil {
		return fmt.Errorf("read raster %s: %w", srcName, err)
	}
	full, err := d.Target.CreateObject(ctx, &gdb.ObjectSpec{Name: wb.Car.Name, Type: gdb.TypeRaster})
	if err != nil {
		return fmt.Errorf("copy %s: %w", srcName, err)
	}
	if err := d.Target.WriteRaster(ctx, full, data); err != nil {
		return fmt.Errorf("write raster %s: %w", full, err)
	}
	wb.Target = full
	wb.Digest = digest.Bytes(data)
	return d.copyMetadata(ctx, srcName, full)
}

func datasetPath(dataset, name string) string {
	if dataset == "" {
		return name
	}
	return dataset + `\` + name
}
