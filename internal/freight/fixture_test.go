package freight_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb/filegdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/journal"
	"github.com/VCGI/VT-DataRail-Tools/internal/protocol"
)

func newGDB(t *testing.T, dir string, role protocol.Role) *filegdb.Workspace {
	t.Helper()
	ws, err := filegdb.Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if role != "" {
		if err := protocol.Provision(context.Background(), ws, role, "test"); err != nil {
			t.Fatalf("Provision: %v", err)
		}
	}
	return ws
}

func lineSchema(extra ...gdb.Field) *gdb.Schema {
	fields := []gdb.Field{
		{Name: "SHAPE", Type: gdb.FieldGeometry},
		{Name: "NAME", Type: gdb.FieldString, Length: 50, Nullable: true},
	}
	return &gdb.Schema{
		Fields:           append(fields, extra...),
		SpatialReference: "EPSG:32145",
		GeometryType:     "Polyline",
	}
}

func mustCreate(t *testing.T, ws gdb.Workspace, spec *gdb.ObjectSpec) string {
	t.Helper()
	full, err := ws.CreateObject(context.Background(), spec)
	if err != nil {
		t.Fatalf("CreateObject %s: %v", spec.Name, err)
	}
	return full
}

func mustInsert(t *testing.T, ws gdb.Workspace, name string, rows ...gdb.Record) {
	t.Helper()
	if _, err := ws.Insert(context.Background(), name, rows); err != nil {
		t.Fatalf("Insert %s: %v", name, err)
	}
}

func mustCount(t *testing.T, ws gdb.Workspace, name string) int64 {
	t.Helper()
	n, err := ws.Count(context.Background(), name)
	if err != nil {
		t.Fatalf("Count %s: %v", name, err)
	}
	return n
}

// spokeSource builds a spoke holding a feature dataset with one class, a standalone
// class, a table and a raster.
func spokeSource(t *testing.T) *filegdb.Workspace {
	t.Helper()
	ctx := context.Background()
	ws := newGDB(t, t.TempDir(), protocol.RoleSpoke)

	ds, err := ws.CreateFeatureDataset(ctx, "Transportation", "EPSG:32145")
	if err != nil {
		t.Fatalf("CreateFeatureDataset: %v", err)
	}
	roads := mustCreate(t, ws, &gdb.ObjectSpec{Name: "Roads", Type: gdb.TypeFeatureClass, Dataset: ds,
		Schema: lineSchema(gdb.Field{Name: "LANES", Type: gdb.FieldInteger, Nullable: true})})
	mustInsert(t, ws, roads,
		gdb.Record{"SHAPE": "LINESTRING (0 0, 1 1)", "NAME": "US 2", "LANES": 2},
		gdb.Record{"SHAPE": "LINESTRING (1 1, 2 2)", "NAME": "VT 100", "LANES": 2},
		gdb.Record{"SHAPE": "LINESTRING (2 2, 3 3)", "NAME": "I 89", "LANES": 4},
	)
	if err := ws.SetMetadata(ctx, roads, &gdb.Metadata{CSDGM: []byte("<metadata><idinfo/></metadata>")}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}

	towns := mustCreate(t, ws, &gdb.ObjectSpec{Name: "Towns", Type: gdb.TypeFeatureClass,
		Schema: lineSchema(gdb.Field{Name: "TOWNGEOID", Type: gdb.FieldInteger, Nullable: true})})
	mustInsert(t, ws, towns,
		gdb.Record{"SHAPE": "POLYGON ((0 0, 1 0, 1 1, 0 0))", "NAME": "Montpelier", "TOWNGEOID": 5002346225},
		gdb.Record{"SHAPE": "POLYGON ((1 0, 2 0, 2 1, 1 0))", "NAME": "Barre", "TOWNGEOID": 5002303250},
	)

	contacts := mustCreate(t, ws, &gdb.ObjectSpec{Name: "Contacts", Type: gdb.TypeTable, Schema: &gdb.Schema{Fields: []gdb.Field{
		{Name: "NAME", Type: gdb.FieldString, Length: 50, Nullable: true},
		{Name: "PHONE", Type: gdb.FieldString, Length: 20, Nullable: true},
	}}})
	mustInsert(t, ws, contacts,
		gdb.Record{"NAME": "VCGI", "PHONE": "802-882-3000"},
		gdb.Record{"NAME": "ANR", "PHONE": nil},
	)

	elevation := mustCreate(t, ws, &gdb.ObjectSpec{Name: "Elevation", Type: gdb.TypeRaster})
	if err := ws.WriteRaster(ctx, elevation, []byte("DEM-v1")); err != nil {
		t.Fatalf("WriteRaster: %v", err)
	}
	return ws
}

func newJournal(t *testing.T) (*journal.Journal, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return journal.New(&buf, zerolog.Nop()), &buf
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func exchangeNotes(t *testing.T, ws gdb.Workspace) []string {
	t.Helper()
	xlog, err := protocol.FindExchangeLog(context.Background(), ws)
	if err != nil {
		t.Fatalf("FindExchangeLog: %v", err)
	}
	it, err := ws.Read(context.Background(), xlog.Table(), "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	rows, err := gdb.Collect(it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	notes := make([]string, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, gdb.StringValue(r, "NOTE"))
	}
	return notes
}
