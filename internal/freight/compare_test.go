package freight_test

import (
	"context"
	"testing"

	"github.com/VCGI/VT-DataRail-Tools/internal/freight"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

func contactsSchema(fields ...gdb.Field) *gdb.Schema {
	return &gdb.Schema{Fields: fields}
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	name := gdb.Field{Name: "NAME", Type: gdb.FieldString, Nullable: true}
	phone := gdb.Field{Name: "PHONE", Type: gdb.FieldString, Nullable: true}

	src := newGDB(t, t.TempDir(), "")
	dst := newGDB(t, t.TempDir(), "")
	mustCreate(t, src, &gdb.ObjectSpec{Name: "Contacts", Type: gdb.TypeTable, Schema: contactsSchema(name, phone)})
	// Field order and case differ on the target.
	mustCreate(t, dst, &gdb.ObjectSpec{Name: "contacts", Type: gdb.TypeTable, Schema: contactsSchema(
		gdb.Field{Name: "phone", Type: gdb.FieldString, Alias: "Phone number", Nullable: true},
		gdb.Field{Name: "name", Type: gdb.FieldString, Nullable: true},
	)})

	mustInsert(t, src, "Contacts",
		gdb.Record{"NAME": "VCGI", "PHONE": "802-882-3000"},
		gdb.Record{"NAME": "ANR", "PHONE": nil},
		gdb.Record{"NAME": "ANR", "PHONE": "802-828-1294"},
	)
	// Same rows in a different insertion order, so OBJECTIDs differ and ties on NAME
	// come back in another order.
	mustInsert(t, dst, "contacts",
		gdb.Record{"name": "ANR", "phone": "802-828-1294"},
		gdb.Record{"name": "VCGI", "phone": "802-882-3000"},
		gdb.Record{"name": "ANR", "phone": nil},
	)

	res, err := freight.Compare(ctx, src, "Contacts", dst, "contacts", "NAME")
	if err != nil || res != freight.ResultSame {
		t.Fatalf("expected same, got %s (%v)", res, err)
	}

	if res, err := freight.Compare(ctx, src, "Contacts", dst, "contacts", "TOWN"); res != freight.ResultError || err == nil {
		t.Fatalf("expected error for missing sort field, got %s (%v)", res, err)
	}
	if res, _ := freight.Compare(ctx, src, "Contacts", dst, "contacts", ""); res != freight.ResultError {
		t.Fatalf("expected error for empty sort field, got %s", res)
	}

	if err := dst.DeleteRows(ctx, "contacts"); err != nil {
		t.Fatalf("DeleteRows: %v", err)
	}
	mustInsert(t, dst, "contacts",
		gdb.Record{"name": "ANR", "phone": "802-828-1294"},
		gdb.Record{"name": "VCGI", "phone": "802-882-3001"},
		gdb.Record{"name": "ANR", "phone": nil},
	)
	if res, err := freight.Compare(ctx, src, "Contacts", dst, "contacts", "NAME"); res != freight.ResultDifferent {
		t.Fatalf("expected different values, got %s (%v)", res, err)
	}

	mustInsert(t, dst, "contacts", gdb.Record{"name": "DPS"})
	if res, err := freight.Compare(ctx, src, "Contacts", dst, "contacts", "NAME"); res != freight.ResultDifferent {
		t.Fatalf("expected different row counts, got %s (%v)", res, err)
	}
}

func TestCompare_SchemaDifferences(t *testing.T) {
	ctx := context.Background()
	src := newGDB(t, t.TempDir(), "")
	dst := newGDB(t, t.TempDir(), "")
	name := gdb.Field{Name: "NAME", Type: gdb.FieldString, Nullable: true}

	mustCreate(t, src, &gdb.ObjectSpec{Name: "A", Type: gdb.TypeTable, Schema: contactsSchema(name, gdb.Field{Name: "CODE", Type: gdb.FieldInteger})})
	mustCreate(t, dst, &gdb.ObjectSpec{Name: "A", Type: gdb.TypeTable, Schema: contactsSchema(name, gdb.Field{Name: "CODE", Type: gdb.FieldString})})
	if res, err := freight.Compare(ctx, src, "A", dst, "A", "NAME"); res != freight.ResultDifferent {
		t.Fatalf("expected different field types, got %s (%v)", res, err)
	}

	mustCreate(t, src, &gdb.ObjectSpec{Name: "B", Type: gdb.TypeTable, Schema: contactsSchema(name)})
	mustCreate(t, dst, &gdb.ObjectSpec{Name: "B", Type: gdb.TypeTable, Schema: contactsSchema(name, gdb.Field{Name: "EXTRA", Type: gdb.FieldString, Nullable: true})})
	if res, err := freight.Compare(ctx, src, "B", dst, "B", "NAME"); res != freight.ResultDifferent {
		t.Fatalf("expected different field sets, got %s (%v)", res, err)
	}
}
