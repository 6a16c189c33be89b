package freight_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/VCGI/VT-DataRail-Tools/internal/archive"
	"github.com/VCGI/VT-DataRail-Tools/internal/freight"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/objectstore"
	"github.com/VCGI/VT-DataRail-Tools/internal/protocol"
)

func fixedClock() time.Time { return time.Date(2024, 3, 5, 17, 42, 0, 0, time.UTC) }

func dispatcher(t *testing.T, src, dst gdb.Workspace) (*freight.Dispatcher, func() string) {
	t.Helper()
	j, _ := newJournal(t)
	j.SetClock(fixedClock)
	return &freight.Dispatcher{
		Source: src,
		Target: dst,
		Notes:  j,
		Loader: freight.NewLoader(2, 0),
		RunID:  "run-1",
		Now:    fixedClock,
	}, j.Body
}

func TestDispatcher_FirstRunCopiesEverything(t *testing.T) {
	ctx := context.Background()
	src := spokeSource(t)
	dst := newGDB(t, t.TempDir(), protocol.RoleHub)

	d, body := dispatcher(t, src, dst)
	report, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, body())
	}

	assertContains(t, body(),
		"Source geodatabase: "+src.Path(),
		"Source geodatabase is a spoke geodatabase.",
		"Target geodatabase is a hub geodatabase.",
		"Feature-dataset Transportation doesn't already exist in target geodatabase; creating it...",
		"Analyzing source data-objects...",
		`Copied Transportation\Roads to target geodatabase. Source Row Count: 3. Target Row Count (after load): 3.`,
		"Copied Towns to target geodatabase. Source Row Count: 2. Target Row Count (after load): 2.",
		"Copied table Contacts to target geodatabase. Source Row Count: 2. Target Row Count(after load): 2.",
		"Copied raster-dataset Elevation to target geodatabase.",
	)
	if strings.Contains(body(), "Verifying geodatabase connections") {
		t.Errorf("log-only note leaked into the report body")
	}

	if got := report.Count(freight.ActionCopied); got != 4 {
		t.Fatalf("expected 4 copies, got %d: %+v", got, report.Waybills)
	}
	if report.SourceRole != "spoke" || report.TargetRole != "hub" {
		t.Fatalf("unexpected roles %q/%q", report.SourceRole, report.TargetRole)
	}

	roads, err := dst.ListFeatureClasses(ctx, "Transportation")
	if err != nil || len(roads) != 1 || roads[0] != "Roads" {
		t.Fatalf("expected Roads inside Transportation, got %v (%v)", roads, err)
	}
	md, err := dst.Metadata(ctx, "Roads")
	if err != nil || md.Empty() {
		t.Fatalf("expected metadata to travel with Roads: %v", err)
	}
	raster, err := dst.ReadRaster(ctx, "Elevation")
	if err != nil || string(raster) != "DEM-v1" {
		t.Fatalf("unexpected raster %q (%v)", raster, err)
	}

	want := []string{
		`Copied in new feature-class Transportation\Roads`,
		"Copied in new feature-class Towns",
		"Copied in new table Contacts",
		"Copied in new raster-dataset Elevation",
	}
	if got := exchangeNotes(t, dst); !reflect.DeepEqual(got, want) {
		t.Fatalf("exchange log = %v, want %v", got, want)
	}
}

func TestDispatcher_SecondRunRefreshes(t *testing.T) {
	ctx := context.Background()
	src := spokeSource(t)
	dst := newGDB(t, t.TempDir(), protocol.RoleHub)

	d, _ := dispatcher(t, src, dst)
	if _, err := d.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	mustInsert(t, src, "Roads", gdb.Record{"SHAPE": "LINESTRING (3 3, 4 4)", "NAME": "VT 12", "LANES": 2})
	if err := src.WriteRaster(ctx, "Elevation", []byte("DEM-v2")); err != nil {
		t.Fatalf("WriteRaster: %v", err)
	}

	d, body := dispatcher(t, src, dst)
	report, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	assertContains(t, body(),
		`Loaded rows of Transportation\Roads to target geodatabase. Source Row Count: 4. Target Row Count (after load): 4.`,
		"Loaded rows of Towns to target geodatabase. Source Row Count: 2. Target Row Count (after load): 2.",
		"Loaded rows of Contacts to target geodatabase. Source Row Count: 2. Target Row Count (after load): 2.",
		"Re-loaded raster-dataset Elevation to target geodatabase.",
	)
	if strings.Contains(body(), "creating it") {
		t.Errorf("feature dataset should not be created twice")
	}
	if got := report.Count(freight.ActionRefreshed); got != 4 {
		t.Fatalf("expected 4 refreshes, got %d", got)
	}
	if n := mustCount(t, dst, "Roads"); n != 4 {
		t.Fatalf("expected 4 target rows, got %d", n)
	}
	raster, _ := dst.ReadRaster(ctx, "Elevation")
	if string(raster) != "DEM-v2" {
		t.Fatalf("raster not reloaded: %q", raster)
	}

	notes := exchangeNotes(t, dst)
	assertContains(t, strings.Join(notes, "\n"),
		`Refreshed rows of feature class Transportation\Roads`,
		"Refreshed rows of feature class Towns",
		"Refreshed rows of table Contacts",
		"Refreshed raster-dataset Elevation",
	)
}

func TestDispatcher_Directives(t *testing.T) {
	ctx := context.Background()
	src := spokeSource(t)
	dst := newGDB(t, t.TempDir(), protocol.RoleSpoke)

	d, _ := dispatcher(t, src, dst)
	if _, err := d.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	mustInsert(t, src, protocol.ParametersTable,
		gdb.Record{"OBJECT_NAME": "Transportation", "IS_FDATASET": 1, "DIRECTIVE": "detect_changes", "SORT_FIELD": " NAME "},
		gdb.Record{"OBJECT_NAME": "Towns", "IS_FDATASET": 0, "DIRECTIVE": "STATIC"},
		gdb.Record{"OBJECT_NAME": "Contacts", "IS_FDATASET": 0, "DIRECTIVE": "DETECT_CHANGES", "SORT_FIELD": "NOPE"},
		gdb.Record{"OBJECT_NAME": "Hydrography", "IS_FDATASET": 1, "DIRECTIVE": nil},
		gdb.Record{"OBJECT_NAME": "Parcels", "IS_FDATASET": 0, "DIRECTIVE": nil},
	)

	d, body := dispatcher(t, src, dst)
	report, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertContains(t, body(),
		"Source geodatabase is a spoke geodatabase w/ directives in A_XCHANGE_PARAMETERS table. Analyzing A_XCHANGE_PARAMETERS table...",
		`Change NOT detected for `+src.Path()+`\Transportation\Roads.`,
		`Error... Couldn't conduct change-detection for `+src.Path()+`\Contacts. Check fields. Skipping it.`,
		"A_XCHANGE_PARAMETERS table has a directive for a feature dataset named Hydrography. However source geodatabase doesn't have a feature dataset by that name. Skipping it.",
		"A_XCHANGE_PARAMETERS table has a directive for a data object named Parcels. However source geodatabase doesn't have a data object by that name. Skipping it.",
	)
	if len(report.Waybills) != 2 {
		t.Fatalf("expected Roads and Contacts only, got %+v", report.Waybills)
	}
	if report.Waybills[0].Action != freight.ActionUnchanged || report.Waybills[1].Action != freight.ActionSkipped {
		t.Fatalf("unexpected actions %+v", report.Waybills)
	}

	// A change in Roads is picked up and shipped.
	mustInsert(t, src, "Roads", gdb.Record{"SHAPE": "LINESTRING (3 3, 4 4)", "NAME": "VT 12", "LANES": 2})
	d, body = dispatcher(t, src, dst)
	if _, err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertContains(t, body(),
		`Change detected for `+src.Path()+`\Transportation\Roads.`,
		`Loaded rows of Transportation\Roads to target geodatabase. Source Row Count: 4. Target Row Count (after load): 4.`,
	)
}

func TestDispatcher_LockedRasterDoesNotStopRun(t *testing.T) {
	ctx := context.Background()
	src := spokeSource(t)
	dst := newGDB(t, t.TempDir(), protocol.RoleSpoke)

	d, _ := dispatcher(t, src, dst)
	if _, err := d.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	unlock, err := dst.Lock("Elevation")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	d, body := dispatcher(t, src, dst)
	report, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertContains(t, body(), "Couldn't re-load raster-dataset Elevation. A lock might be blocking the operation. An exclusive lock is required (consult w/ a DBA for more info).")
	last := report.Waybills[len(report.Waybills)-1]
	if last.Action != freight.ActionFailed || last.Car.Type != gdb.TypeRaster {
		t.Fatalf("unexpected raster waybill %+v", last)
	}
	if report.Count(freight.ActionRefreshed) != 3 {
		t.Fatalf("other cars should still ship: %+v", report.Waybills)
	}
}

func TestDispatcher_Preflight(t *testing.T) {
	ctx := context.Background()

	t.Run("source without readme", func(t *testing.T) {
		src := newGDB(t, t.TempDir(), "")
		dst := newGDB(t, t.TempDir(), protocol.RoleHub)
		d, body := dispatcher(t, src, dst)
		_, err := d.Run(ctx)
		if !errors.Is(err, protocol.ErrNoReadme) {
			t.Fatalf("expected ErrNoReadme, got %v", err)
		}
		assertContains(t, body(), "Source geodatabase doesn't have an A_README table, which is required.")
	})

	t.Run("spoke without parameters", func(t *testing.T) {
		src := newGDB(t, t.TempDir(), protocol.RoleSpoke)
		if err := src.Delete(ctx, protocol.ParametersTable); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		dst := newGDB(t, t.TempDir(), protocol.RoleHub)
		d, body := dispatcher(t, src, dst)
		if _, err := d.Run(ctx); !errors.Is(err, protocol.ErrNoParameters) {
			t.Fatalf("expected ErrNoParameters, got %v", err)
		}
		assertContains(t, body(), "Source geodatabase doesn't have an A_XCHANGE_PARAMETERS table, which is required for a spoke geodatabase")
	})

	t.Run("hub without exchange log", func(t *testing.T) {
		src := newGDB(t, t.TempDir(), protocol.RoleHub)
		dst := newGDB(t, t.TempDir(), protocol.RoleHub)
		if err := dst.Delete(ctx, protocol.ExchangeLogTable); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		d, body := dispatcher(t, src, dst)
		if _, err := d.Run(ctx); !errors.Is(err, protocol.ErrNoExchangeLog) {
			t.Fatalf("expected ErrNoExchangeLog, got %v", err)
		}
		assertContains(t, body(),
			"Source geodatabase is a hub geodatabase.",
			"Target geodatabase doesn't have an A_XCHANGE_LOG table, which is required for a hub geodatabase.",
		)
	})

	t.Run("target with wrong protocol", func(t *testing.T) {
		src := newGDB(t, t.TempDir(), protocol.RoleHub)
		dst := newGDB(t, t.TempDir(), protocol.RoleHub)
		if err := dst.DeleteRows(ctx, protocol.ReadmeTable); err != nil {
			t.Fatalf("DeleteRows: %v", err)
		}
		mustInsert(t, dst, protocol.ReadmeTable, gdb.Record{"PROTOCOL": "SOME OTHER PROTOCOL", "DB_TYPE": "hub"})
		d, body := dispatcher(t, src, dst)
		if _, err := d.Run(ctx); !errors.Is(err, protocol.ErrWrongProtocol) {
			t.Fatalf("expected ErrWrongProtocol, got %v", err)
		}
		assertContains(t, body(), "Target geodatabase's A_README table isn't attributed for EGC Geospatial Data Exchange Protocol. Check its A_README table's PROTOCOL field.")
	})
}

func TestDispatcher_ArchivesLoadedRows(t *testing.T) {
	ctx := context.Background()
	src := spokeSource(t)
	dst := newGDB(t, t.TempDir(), protocol.RoleSpoke)
	store := objectstore.NewMemory()
	a := archive.New(store, "datarail-archive", "snapshots")
	if err := a.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}

	d, _ := dispatcher(t, src, dst)
	d.Archiver = a
	report, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, wb := range report.Waybills {
		if wb.Car.Type == gdb.TypeRaster {
			if wb.Archive != "" {
				t.Fatalf("rasters are not archived: %+v", wb)
			}
			continue
		}
		if !strings.HasPrefix(wb.Archive, "minio://datarail-archive/snapshots/") {
			t.Fatalf("expected archive location for %s, got %q", wb.Car.Name, wb.Archive)
		}
	}
	keys, err := store.ListPrefix(ctx, "datarail-archive", "snapshots/roads/")
	if err != nil || len(keys) != 1 {
		t.Fatalf("expected one Roads snapshot, got %v (%v)", keys, err)
	}
	if !strings.Contains(keys[0], "dt=2024-03-05/run=run-1/") {
		t.Fatalf("unexpected snapshot key %s", keys[0])
	}
}
