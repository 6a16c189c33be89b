package filegdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

const catalogFile = "catalog.yaml"

// item is one catalog entry.
type item struct {
	Name             string         `yaml:"name"`
	Type             gdb.ObjectType `yaml:"type"`
	Dataset          string         `yaml:"dataset,omitempty"`
	SpatialReference string         `yaml:"spatial_reference,omitempty"`
	GeometryType     string         `yaml:"geometry_type,omitempty"`
	Fields           []gdb.Field    `yaml:"fields,omitempty"`
	NextOID          int64          `yaml:"next_oid,omitempty"`
}

func (it *item) schema() *gdb.Schema {
	fields := make([]gdb.Field, len(it.Fields))
	copy(fields, it.Fields)
	return &gdb.Schema{
		Fields:           fields,
		SpatialReference: it.SpatialReference,
		GeometryType:     it.GeometryType,
	}
}

func (it *item) oidField() (gdb.Field, bool) {
	for _, f := range it.Fields {
		if f.Type == gdb.FieldOID {
			return f, true
		}
	}
	return gdb.Field{}, false
}

// catalog is the persisted list of data objects.
type catalog struct {
	Items []*item `yaml:"items"`
}

func (c *catalog) find(name string) *item {
	base := gdb.BaseName(name)
	for _, it := range c.Items {
		if strings.EqualFold(it.Name, base) {
			return it
		}
	}
	return nil
}

func (c *catalog) names(match func(*item) bool) []string {
	var out []string
	for _, it := range c.Items {
		if match(it) {
			out = append(out, it.Name)
		}
	}
	return out
}

func (c *catalog) remove(target *item) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it != target {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

func loadCatalog(dir string) (*catalog, error) {
	data, err := os.ReadFile(filepath.Join(dir, catalogFile))
	if err != nil {
		return nil, err
	}
	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse %s: %w", catalogFile, err)
	}
	return &cat, nil
}

// saveCatalog writes the catalog through a temp file so readers never see a partial file.
func saveCatalog(dir string, cat *catalog) error {
	data, err := yaml.Marshal(cat)
	if err != nil {
		return fmt.Errorf("encode %s: %w", catalogFile, err)
	}
	tmp := filepath.Join(dir, catalogFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, catalogFile))
}
