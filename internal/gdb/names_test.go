package gdb_test

import (
	"testing"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

func TestSchemaPrefix(t *testing.T) {
	cases := map[string]string{
		"vcgi.gisadmin.Roads": "vcgi.gisadmin.",
		"Roads":               "",
		"owner.Roads":         "owner.",
		"":                    "",
	}
	for in, want := range cases {
		if got := gdb.SchemaPrefix(in); got != want {
			t.Errorf("SchemaPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"vcgi.gisadmin.Roads": "Roads",
		"Roads":               "Roads",
		"owner.":              "",
	}
	for in, want := range cases {
		if got := gdb.BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIndexFold(t *testing.T) {
	list := []string{"A_README", "Roads", "roads"}
	if i := gdb.IndexFold(list, "ROADS"); i != 1 {
		t.Errorf("expected first case-insensitive match at 1, got %d", i)
	}
	if i := gdb.IndexFold(list, "Bridges"); i != -1 {
		t.Errorf("expected -1 for missing item, got %d", i)
	}
}

func TestFindByBaseName(t *testing.T) {
	full, ok := gdb.FindByBaseName([]string{"db.owner.Roads", "db.owner.A_README"}, "a_readme")
	if !ok || full != "db.owner.A_README" {
		t.Errorf("FindByBaseName = %q, %v", full, ok)
	}
	if _, ok := gdb.FindByBaseName(nil, "x"); ok {
		t.Error("expected no match on empty list")
	}
}
