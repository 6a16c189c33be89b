package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Source resolves item names to inspectable items.
type Source interface {
	Item(ctx context.Context, name string) (Item, error)
}

// SplitItems splits a ";"-delimited item list, dropping blanks.
func SplitItems(list string) []string {
	var items []string
	for _, s := range strings.Split(list, ";") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// WorkspaceSource reads items from a geodatabase workspace.
type WorkspaceSource struct {
	Workspace gdb.Workspace
}

// Item reads the named object's metadata and, when it has any, its fields.
func (s WorkspaceSource) Item(ctx context.Context, name string) (Item, error) {
	md, err := s.Workspace.Metadata(ctx, name)
	if err != nil {
		return Item{}, fmt.Errorf("read metadata of %s: %w", name, err)
	}
	item := Item{Name: gdb.BaseName(name), Metadata: md}
	// Rasters and feature datasets have no fields and describe as not found.
	schema, err := s.Workspace.Describe(ctx, name)
	switch {
	case err == nil:
		item.Fields = schema.Fields
	case gdb.HasCode(err, gdb.CodeObjectNotFound), gdb.HasCode(err, gdb.CodeUnsupported):
	default:
		return Item{}, fmt.Errorf("describe %s: %w", name, err)
	}
	return item, nil
}

// FileSource reads exported metadata files. An item name is a path stem: the ISO document
// is <stem>.iso.xml and the FGDC document is <stem>.fgdc.xml. A missing file reads as an
// empty document.
type FileSource struct{}

// Item reads the stem's two documents.
func (FileSource) Item(_ context.Context, stem string) (Item, error) {
	iso, err := readOptional(stem + ".iso.xml")
	if err != nil {
		return Item{}, err
	}
	fgdc, err := readOptional(stem + ".fgdc.xml")
	if err != nil {
		return Item{}, err
	}
	if iso == nil && fgdc == nil {
		return Item{}, fmt.Errorf("no metadata files for %s", stem)
	}
	return Item{Name: filepath.Base(stem), Metadata: &gdb.Metadata{ISO: iso, CSDGM: fgdc}}, nil
}

// PairSource serves a single item from explicit ISO and FGDC file paths.
type PairSource struct {
	ISO  string
	FGDC string
}

// Item reads the pair; name only labels the report block.
func (p PairSource) Item(_ context.Context, name string) (Item, error) {
	iso, err := os.ReadFile(p.ISO)
	if err != nil {
		return Item{}, fmt.Errorf("read ISO metadata: %w", err)
	}
	fgdc, err := os.ReadFile(p.FGDC)
	if err != nil {
		return Item{}, fmt.Errorf("read FGDC metadata: %w", err)
	}
	if name == "" {
		name = filepath.Base(p.ISO)
		if stem := strings.TrimSuffix(name, ".iso.xml"); stem != name {
			name = stem
		} else {
			name = strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return Item{Name: name, Metadata: &gdb.Metadata{ISO: iso, CSDGM: fgdc}}, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
