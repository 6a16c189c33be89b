package gdb_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

func TestCanonicalValue_NumbersAgreeAcrossRepresentations(t *testing.T) {
	intField := gdb.Field{Name: "LANES", Type: gdb.FieldInteger}
	reps := []any{int32(4), int64(4), float64(4), json.Number("4"), "4"}
	for _, v := range reps {
		if got := gdb.CanonicalValue(intField, v); got != "4" {
			t.Errorf("CanonicalValue(%T %v) = %q, want 4", v, v, got)
		}
	}

	dbl := gdb.Field{Name: "LEN", Type: gdb.FieldDouble}
	if a, b := gdb.CanonicalValue(dbl, 1.5), gdb.CanonicalValue(dbl, json.Number("1.5")); a != b {
		t.Errorf("double encodings differ: %q vs %q", a, b)
	}
}

func TestCanonicalValue_Dates(t *testing.T) {
	f := gdb.Field{Name: "EDITED", Type: gdb.FieldDate}
	ts := time.Date(2019, 9, 26, 14, 33, 0, 0, time.UTC)
	a := gdb.CanonicalValue(f, ts)
	b := gdb.CanonicalValue(f, ts.Format(time.RFC3339))
	if a != b {
		t.Errorf("date encodings differ: %q vs %q", a, b)
	}
}

func TestCanonicalValue_Null(t *testing.T) {
	if got := gdb.CanonicalValue(gdb.Field{Type: gdb.FieldString}, nil); got != gdb.NullToken {
		t.Errorf("expected null token, got %q", got)
	}
}

func TestNormalizeValue(t *testing.T) {
	if v := gdb.NormalizeValue(gdb.Field{Type: gdb.FieldInteger}, json.Number("12")); v != int64(12) {
		t.Errorf("expected int64 12, got %#v", v)
	}
	date := gdb.NormalizeValue(gdb.Field{Type: gdb.FieldDate}, "09/26/2019")
	if date != "2019-09-26T00:00:00Z" {
		t.Errorf("unexpected normalized date %#v", date)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{1, int64(1), true, "1", "TRUE", float64(1)} {
		if !gdb.Truthy(v) {
			t.Errorf("Truthy(%#v) = false", v)
		}
	}
	for _, v := range []any{0, false, "", "0", nil, "no"} {
		if gdb.Truthy(v) {
			t.Errorf("Truthy(%#v) = true", v)
		}
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	rec := gdb.Record{"Db_Type": "hub"}
	if got := gdb.StringValue(rec, "DB_TYPE"); got != "hub" {
		t.Errorf("StringValue = %q", got)
	}
	if got := gdb.StringValue(rec, "NOTE"); got != "" {
		t.Errorf("expected empty for missing key, got %q", got)
	}
}

func TestCompareValues(t *testing.T) {
	num := gdb.Field{Type: gdb.FieldInteger}
	if gdb.CompareValues(num, int64(9), json.Number("10")) >= 0 {
		t.Error("expected 9 < 10 numerically")
	}
	if gdb.CompareValues(num, nil, int64(1)) >= 0 {
		t.Error("expected NULL to sort first")
	}
	str := gdb.Field{Type: gdb.FieldString}
	if gdb.CompareValues(str, "b", "a") <= 0 {
		t.Error("expected b > a")
	}
}
