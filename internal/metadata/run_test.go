package metadata

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb/filegdb"
)

var inspectedAt = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

func TestSplitItems(t *testing.T) {
	got := SplitItems(" Roads ;;Towns;  ")
	if len(got) != 2 || got[0] != "Roads" || got[1] != "Towns" {
		t.Errorf("SplitItems = %q", got)
	}
}

func TestReportLayout(t *testing.T) {
	var buf bytes.Buffer
	rw := NewReportWriter(&buf)
	rw.Header(inspectedAt)
	rw.Item(&Result{
		Item:     "Roads",
		Findings: []Finding{{Severity: SeverityError, Text: "ERROR: Doesn't have required title."}},
		Verdict:  VerdictFails,
	})
	rw.Footer()
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	stars := strings.Repeat("*", 44)
	want := stars + "\n" +
		"METADATA-INSPECTION REPORT - 03/05/2024\n" +
		"\n" + strings.Repeat("+", 44) + "\n" +
		"Roads\n" +
		"ERROR: Doesn't have required title.\n" +
		string(VerdictFails) + "\n" +
		"\nEND OF REPORT\n" + stars + "\n"
	if buf.String() != want {
		t.Errorf("report =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRunWorkspaceItems(t *testing.T) {
	ctx := context.Background()
	ws, err := filegdb.Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	roads, err := ws.CreateObject(ctx, &gdb.ObjectSpec{Name: "Roads", Type: gdb.TypeFeatureClass, Schema: &gdb.Schema{
		Fields: []gdb.Field{{Name: "SHAPE", Type: gdb.FieldGeometry}, {Name: "NAME", Type: gdb.FieldString, Alias: "Road Name"}, {Name: "LANES", Type: gdb.FieldInteger}},
	}})
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := ws.SetMetadata(ctx, roads, &gdb.Metadata{ISO: []byte(completeISO), CSDGM: []byte(completeFGDC)}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if _, err := ws.CreateObject(ctx, &gdb.ObjectSpec{Name: "Elevation", Type: gdb.TypeRaster}); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("earlier report\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rw, err := OpenReport(path)
	if err != nil {
		t.Fatalf("OpenReport: %v", err)
	}
	results, err := Run(ctx, WorkspaceSource{Workspace: ws}, SplitItems("Roads;Elevation"), rw, inspectedAt, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Verdict != VerdictMeetsStandard || results[1].Verdict != VerdictFails {
		t.Errorf("verdicts = %q, %q", results[0].Verdict, results[1].Verdict)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	report := string(data)
	if !strings.HasPrefix(report, "earlier report\n") {
		t.Errorf("report was not appended to")
	}
	for _, want := range []string{"\nRoads\nFound field description for field NAME.", "\nElevation\nERROR: Doesn't have required title.", "\nEND OF REPORT\n"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRunStopsOnMissingItem(t *testing.T) {
	ws, err := filegdb.Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var buf bytes.Buffer
	rw := NewReportWriter(&buf)
	_, err = Run(context.Background(), WorkspaceSource{Workspace: ws}, []string{"Nope"}, rw, inspectedAt, zerolog.Nop())
	if !gdb.HasCode(err, gdb.CodeObjectNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if strings.Contains(buf.String(), "END OF REPORT") {
		t.Errorf("footer written after failure")
	}
}

func TestFileSources(t *testing.T) {
	dir := t.TempDir()
	stem := filepath.Join(dir, "Roads")
	if err := os.WriteFile(stem+".iso.xml", []byte(completeISO), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stem+".fgdc.xml", []byte(completeFGDC), 0o644); err != nil {
		t.Fatal(err)
	}

	item, err := FileSource{}.Item(context.Background(), stem)
	if err != nil {
		t.Fatalf("FileSource: %v", err)
	}
	if item.Name != "Roads" || len(item.Metadata.ISO) == 0 || len(item.Metadata.CSDGM) == 0 {
		t.Errorf("item = %+v", item)
	}
	if _, err := (FileSource{}).Item(context.Background(), filepath.Join(dir, "Towns")); err == nil {
		t.Errorf("expected error for stem without files")
	}

	pair := PairSource{ISO: stem + ".iso.xml", FGDC: stem + ".fgdc.xml"}
	item, err = pair.Item(context.Background(), "")
	if err != nil {
		t.Fatalf("PairSource: %v", err)
	}
	if item.Name != "Roads" {
		t.Errorf("name = %q", item.Name)
	}
}

type unreachableDescribe struct {
	gdb.Workspace
}

func (unreachableDescribe) Describe(ctx context.Context, name string) (*gdb.Schema, error) {
	return nil, gdb.WrapError(gdb.CodeWorkspaceUnreachable, true, errors.New("connection reset"))
}

func TestWorkspaceSourceDescribeFailure(t *testing.T) {
	ctx := context.Background()
	ws, err := filegdb.Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ws.CreateObject(ctx, &gdb.ObjectSpec{Name: "Roads", Type: gdb.TypeTable, Schema: &gdb.Schema{
		Fields: []gdb.Field{{Name: "NAME", Type: gdb.FieldString}},
	}}); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	_, err = WorkspaceSource{Workspace: unreachableDescribe{ws}}.Item(ctx, "Roads")
	if !gdb.HasCode(err, gdb.CodeWorkspaceUnreachable) {
		t.Fatalf("err = %v, want workspace unreachable", err)
	}

	if _, err := ws.CreateObject(ctx, &gdb.ObjectSpec{Name: "Elevation", Type: gdb.TypeRaster}); err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	item, err := WorkspaceSource{Workspace: ws}.Item(ctx, "Elevation")
	if err != nil {
		t.Fatalf("Item raster: %v", err)
	}
	if item.Name != "Elevation" || len(item.Fields) != 0 {
		t.Errorf("raster item = %+v", item)
	}
}
