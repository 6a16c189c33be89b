package protocol_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb/filegdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/protocol"
)

func newWorkspace(t *testing.T) *filegdb.Workspace {
	t.Helper()
	ws, err := filegdb.Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ws
}

func TestParseRole(t *testing.T) {
	for raw, want := range map[string]protocol.Role{"hub": protocol.RoleHub, " SPOKE ": protocol.RoleSpoke, "Hub": protocol.RoleHub} {
		got, err := protocol.ParseRole(raw)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := protocol.ParseRole("wheel"); !errors.Is(err, protocol.ErrBadRole) {
		t.Fatalf("expected ErrBadRole, got %v", err)
	}
}

func TestIsProtocolTable(t *testing.T) {
	for _, name := range []string{"A_README", "vcgi.gis.a_xchange_parameters", "A_Xchange_Log"} {
		if !protocol.IsProtocolTable(name) {
			t.Fatalf("%s should be a protocol table", name)
		}
	}
	if protocol.IsProtocolTable("ROADS") {
		t.Fatalf("ROADS is not a protocol table")
	}
}

func TestReadReadme_Missing(t *testing.T) {
	ws := newWorkspace(t)
	if _, err := protocol.ReadReadme(context.Background(), ws); !errors.Is(err, protocol.ErrNoReadme) {
		t.Fatalf("expected ErrNoReadme, got %v", err)
	}
}

func TestProvisionSpoke(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)

	if err := protocol.Provision(ctx, ws, protocol.RoleSpoke, "test spoke"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	// Second run keeps the existing tables and row.
	if err := protocol.Provision(ctx, ws, protocol.RoleSpoke, "again"); err != nil {
		t.Fatalf("Provision again: %v", err)
	}

	rm, err := protocol.ReadReadme(ctx, ws)
	if err != nil {
		t.Fatalf("ReadReadme: %v", err)
	}
	if rm.Role != protocol.RoleSpoke || rm.Note != "test spoke" {
		t.Fatalf("unexpected readme %+v", rm)
	}
	if n, _ := ws.Count(ctx, rm.Table); n != 1 {
		t.Fatalf("expected one readme row, got %d", n)
	}

	table, hasRows, err := protocol.FindParameters(ctx, ws)
	if err != nil {
		t.Fatalf("FindParameters: %v", err)
	}
	if hasRows {
		t.Fatalf("fresh parameters table should be empty")
	}
	if gdb.BaseName(table) != protocol.ParametersTable {
		t.Fatalf("unexpected parameters table %q", table)
	}
	if _, err := protocol.FindExchangeLog(ctx, ws); !errors.Is(err, protocol.ErrNoExchangeLog) {
		t.Fatalf("spoke should not get an exchange log, got %v", err)
	}
}

func TestReadReadme_WrongProtocol(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	if _, err := ws.CreateObject(ctx, &gdb.ObjectSpec{Name: protocol.ReadmeTable, Type: gdb.TypeTable, Schema: &gdb.Schema{Fields: []gdb.Field{
		{Name: "PROTOCOL", Type: gdb.FieldString, Nullable: true},
		{Name: "DB_TYPE", Type: gdb.FieldString, Nullable: true},
	}}}); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	if _, err := protocol.ReadReadme(ctx, ws); !errors.Is(err, protocol.ErrEmptyReadme) {
		t.Fatalf("expected ErrEmptyReadme, got %v", err)
	}

	if _, err := ws.Insert(ctx, protocol.ReadmeTable, []gdb.Record{{"PROTOCOL": "SOMETHING ELSE", "DB_TYPE": "hub"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := protocol.ReadReadme(ctx, ws); !errors.Is(err, protocol.ErrWrongProtocol) {
		t.Fatalf("expected ErrWrongProtocol, got %v", err)
	}
}

func TestReadReadme_BadRole(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	if err := protocol.Provision(ctx, ws, protocol.RoleHub, ""); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := ws.DeleteRows(ctx, protocol.ReadmeTable); err != nil {
		t.Fatalf("DeleteRows: %v", err)
	}
	if _, err := ws.Insert(ctx, protocol.ReadmeTable, []gdb.Record{{"PROTOCOL": " egc geospatial data exchange protocol ", "DB_TYPE": "relay"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := protocol.ReadReadme(ctx, ws); !errors.Is(err, protocol.ErrBadRole) {
		t.Fatalf("expected ErrBadRole, got %v", err)
	}
}

func TestReadParameters(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	if err := protocol.Provision(ctx, ws, protocol.RoleSpoke, ""); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	rows := []gdb.Record{
		{"OBJECT_NAME": "Transportation", "IS_FDATASET": 1, "DIRECTIVE": " static "},
		{"OBJECT_NAME": " Towns ", "IS_FDATASET": 0, "DIRECTIVE": "detect_changes", "SORT_FIELD": " TOWNGEOID "},
		{"OBJECT_NAME": "Parcels", "IS_FDATASET": nil, "DIRECTIVE": nil},
	}
	if _, err := ws.Insert(ctx, protocol.ParametersTable, rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	table, hasRows, err := protocol.FindParameters(ctx, ws)
	if err != nil || !hasRows {
		t.Fatalf("FindParameters: %v hasRows=%v", err, hasRows)
	}
	params, err := protocol.ReadParameters(ctx, ws, table)
	if err != nil {
		t.Fatalf("ReadParameters: %v", err)
	}
	if len(params) != 3 {
		t.Fatalf("expected 3 parameters, got %d", len(params))
	}
	if !params[0].IsFeatureDataset || !params[0].Static() {
		t.Fatalf("unexpected first parameter %+v", params[0])
	}
	if params[1].ObjectName != "Towns" || !params[1].DetectChanges() || params[1].SortField != "TOWNGEOID" || params[1].IsFeatureDataset {
		t.Fatalf("unexpected second parameter %+v", params[1])
	}
	if params[2].Directive != "" || params[2].IsFeatureDataset {
		t.Fatalf("unexpected third parameter %+v", params[2])
	}
}

func TestExchangeLogRecord(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	if err := protocol.Provision(ctx, ws, protocol.RoleHub, "hub"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	xlog, err := protocol.FindExchangeLog(ctx, ws)
	if err != nil {
		t.Fatalf("FindExchangeLog: %v", err)
	}
	when := time.Date(2024, 3, 5, 17, 42, 0, 0, time.Local)
	if err := xlog.Record(ctx, when, `Copied in new feature-class Transportation\ROADS`); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rows, err := gdb.Collect(mustRead(t, ws, xlog.Table()))
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one log row, got %d (%v)", len(rows), err)
	}
	got, ok := gdb.ToTime(rows[0]["DATE"])
	if !ok || !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected DATE %v", rows[0]["DATE"])
	}
	if rows[0]["NOTE"] != `Copied in new feature-class Transportation\ROADS` {
		t.Fatalf("unexpected NOTE %v", rows[0]["NOTE"])
	}
}

func mustRead(t *testing.T, ws gdb.Workspace, name string) gdb.Iterator[gdb.Record] {
	t.Helper()
	it, err := ws.Read(context.Background(), name, "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return it
}
