package gdb_test

import (
	"context"
	"testing"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

func TestRegistry_OpenUnknownKind(t *testing.T) {
	r := gdb.NewRegistry()
	if _, err := r.Open(context.Background(), gdb.Config{Kind: "coverage"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestRegistry_RegisterTwicePanics(t *testing.T) {
	r := gdb.NewRegistry()
	factory := func(ctx context.Context, cfg gdb.Config) (gdb.Workspace, error) { return nil, nil }
	r.Register("fgdb", factory)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register("FGDB", factory)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := gdb.NewRegistry()
	factory := func(ctx context.Context, cfg gdb.Config) (gdb.Workspace, error) { return nil, nil }
	r.Register("postgres", factory)
	r.Register("fgdb", factory)

	kinds := r.List()
	if len(kinds) != 2 || kinds[0] != "fgdb" || kinds[1] != "postgres" {
		t.Errorf("unexpected kinds %v", kinds)
	}
}
