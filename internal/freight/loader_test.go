package freight_test

import (
	"context"
	"testing"

	"github.com/VCGI/VT-DataRail-Tools/internal/freight"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

func TestLoader_MapsFieldsByName(t *testing.T) {
	ctx := context.Background()
	src := newGDB(t, t.TempDir(), "")
	dst := newGDB(t, t.TempDir(), "")

	mustCreate(t, src, &gdb.ObjectSpec{Name: "Sites", Type: gdb.TypeTable, Schema: &gdb.Schema{Fields: []gdb.Field{
		{Name: "NAME", Type: gdb.FieldString, Nullable: true},
		{Name: "LEGACY", Type: gdb.FieldString, Nullable: true},
	}}})
	mustCreate(t, dst, &gdb.ObjectSpec{Name: "Sites", Type: gdb.TypeTable, Schema: &gdb.Schema{Fields: []gdb.Field{
		{Name: "name", Type: gdb.FieldString, Nullable: true},
		{Name: "STATUS", Type: gdb.FieldString, Nullable: true},
	}}})
	var rows []gdb.Record
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		rows = append(rows, gdb.Record{"NAME": n, "LEGACY": "x"})
	}
	mustInsert(t, src, "Sites", rows...)

	l := freight.NewLoader(2, 1000)
	res, err := l.Load(ctx, src, "Sites", dst, "Sites", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Rows != 5 || res.Digest == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	it, err := dst.Read(ctx, "Sites", "OBJECTID")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, err := gdb.Collect(it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(got))
	}
	for i, r := range got {
		if r["name"] != rows[i]["NAME"] {
			t.Errorf("row %d name = %v", i, r["name"])
		}
		if r["STATUS"] != nil {
			t.Errorf("row %d STATUS should be NULL, got %v", i, r["STATUS"])
		}
		if _, ok := r["LEGACY"]; ok {
			t.Errorf("row %d carried a source-only field", i)
		}
		if oid, _ := r["OBJECTID"].(int64); oid != int64(i+1) {
			t.Errorf("row %d OBJECTID = %v, want target-assigned %d", i, r["OBJECTID"], i+1)
		}
	}

	// Loading the same rows into an identical object yields the same digest.
	other := newGDB(t, t.TempDir(), "")
	mustCreate(t, other, &gdb.ObjectSpec{Name: "Sites", Type: gdb.TypeTable, Schema: &gdb.Schema{Fields: []gdb.Field{
		{Name: "NAME", Type: gdb.FieldString, Nullable: true},
		{Name: "STATUS", Type: gdb.FieldString, Nullable: true},
	}}})
	again, err := freight.NewLoader(0, 0).Load(ctx, src, "Sites", other, "Sites", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Digest != res.Digest {
		t.Fatalf("digest should not depend on batch size: %s vs %s", again.Digest, res.Digest)
	}
}
