package freight

import (
	"context"
	"fmt"
	"strings"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/protocol"
)

// Class is a feature class and its containing feature dataset ("" if standalone).
type Class struct {
	Name    string
	Dataset string
}

// Inventory lists the data objects of a geodatabase by full name.
type Inventory struct {
	Classes       []Class
	Tables        []string // protocol tables excluded
	Rasters       []string
	EmptyDatasets []string // feature datasets holding no feature classes
}

// TakeInventory lists every feature class (dataset members first), table and raster.
func TakeInventory(ctx context.Context, ws gdb.Workspace) (*Inventory, error) {
	inv := &Inventory{}

	datasets, err := ws.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feature datasets: %w", err)
	}
	for _, ds := range datasets {
		classes, err := ws.ListFeatureClasses(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("list feature classes of %s: %w", ds, err)
		}
		if len(classes) == 0 {
			inv.EmptyDatasets = append(inv.EmptyDatasets, ds)
			continue
		}
		for _, fc := range classes {
			inv.Classes = append(inv.Classes, Class{Name: fc, Dataset: ds})
		}
	}

	standalone, err := ws.ListFeatureClasses(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list feature classes: %w", err)
	}
	for _, fc := range standalone {
		inv.Classes = append(inv.Classes, Class{Name: fc})
	}

	tables, err := ws.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	for _, t := range tables {
		if protocol.IsProtocolTable(t) {
			continue
		}
		inv.Tables = append(inv.Tables, t)
	}

	if inv.Rasters, err = ws.ListRasters(ctx); err != nil {
		return nil, fmt.Errorf("list raster datasets: %w", err)
	}
	return inv, nil
}

// Class returns the first feature class whose base name is name.
func (inv *Inventory) Class(name string) (Class, bool) {
	for _, c := range inv.Classes {
		if strings.EqualFold(gdb.BaseName(c.Name), name) {
			return c, true
		}
	}
	return Class{}, false
}

// ClassByFullName returns the feature class with the given full name.
func (inv *Inventory) ClassByFullName(full string) (Class, bool) {
	for _, c := range inv.Classes {
		if strings.EqualFold(c.Name, full) {
			return c, true
		}
	}
	return Class{}, false
}

// Dataset returns the full name of the first non-empty feature dataset whose base name is name.
func (inv *Inventory) Dataset(name string) (string, bool) {
	for _, c := range inv.Classes {
		if c.Dataset != "" && strings.EqualFold(gdb.BaseName(c.Dataset), name) {
			return c.Dataset, true
		}
	}
	return "", false
}

// DatasetByFullName reports whether a non-empty feature dataset has the given full name.
func (inv *Inventory) DatasetByFullName(full string) (string, bool) {
	for _, c := range inv.Classes {
		if c.Dataset != "" && strings.EqualFold(c.Dataset, full) {
			return c.Dataset, true
		}
	}
	return "", false
}

// Members returns the feature classes of a dataset.
func (inv *Inventory) Members(dataset string) []Class {
	var out []Class
	for _, c := range inv.Classes {
		if c.Dataset != "" && strings.EqualFold(c.Dataset, dataset) {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the full name of the first object of type t whose base name is name.
func (inv *Inventory) Lookup(t gdb.ObjectType, name string) (string, bool) {
	switch t {
	case gdb.TypeFeatureClass:
		c, ok := inv.Class(name)
		return c.Name, ok
	case gdb.TypeTable:
		return gdb.FindByBaseName(inv.Tables, name)
	case gdb.TypeRaster:
		return gdb.FindByBaseName(inv.Rasters, name)
	}
	return "", false
}
