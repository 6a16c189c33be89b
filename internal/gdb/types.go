package gdb

import "strings"

// ObjectType classifies data objects.
type ObjectType string

const (
	TypeFeatureDataset ObjectType = "fdataset"
	TypeFeatureClass   ObjectType = "fclass"
	TypeTable          ObjectType = "table"
	TypeRaster         ObjectType = "raster"
)

// ParseObjectType accepts the short and long spellings of an object type.
func ParseObjectType(raw string) (ObjectType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fdataset", "feature_dataset", "featuredataset":
		return TypeFeatureDataset, true
	case "fclass", "feature_class", "featureclass":
		return TypeFeatureClass, true
	case "table":
		return TypeTable, true
	case "raster", "raster_dataset", "rasterdataset":
		return TypeRaster, true
	}
	return "", false
}

// Label is the human-readable name used in notes and exchange-log entries.
func (t ObjectType) Label() string {
	switch t {
	case TypeFeatureDataset:
		return "feature-dataset"
	case TypeFeatureClass:
		return "feature-class"
	case TypeRaster:
		return "raster-dataset"
	default:
		return string(t)
	}
}

// Record represents a single row as field-name/value pairs.
type Record = map[string]any

// Iterator provides streaming access to rows.
type Iterator[T any] interface {
	// Next advances to the next row. Returns false when done or on error.
	Next() bool

	// Value returns the current row. Only valid after Next() returns true.
	Value() T

	// Err returns any error encountered during iteration.
	Err() error

	// Close releases resources. Must be called when done.
	Close() error
}

// Canonical field types, named after geodatabase field types.
const (
	FieldOID          = "OID"
	FieldSmallInteger = "SmallInteger"
	FieldInteger      = "Integer"
	FieldDouble       = "Double"
	FieldString       = "String"
	FieldDate         = "Date"
	FieldGeometry     = "Geometry"
	FieldBlob         = "Blob"
	FieldGUID         = "GUID"
)

// Field describes one column of a feature class or table.
type Field struct {
	Name       string `yaml:"name" json:"name"`
	Type       string `yaml:"type" json:"type"`
	Alias      string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Length     int    `yaml:"length,omitempty" json:"length,omitempty"`
	Nullable   bool   `yaml:"nullable" json:"nullable"`
	NativeType string `yaml:"native_type,omitempty" json:"nativeType,omitempty"`
}

// IsOID reports whether the field is the workspace-managed object ID.
func (f Field) IsOID() bool {
	return f.Type == FieldOID || strings.EqualFold(f.Name, "OBJECTID")
}

// IsShape reports whether the field is the geometry column.
func (f Field) IsShape() bool {
	return f.Type == FieldGeometry || strings.EqualFold(f.Name, "shape")
}

// Schema describes a feature class or table.
type Schema struct {
	Fields           []Field `yaml:"fields" json:"fields"`
	SpatialReference string  `yaml:"spatial_reference,omitempty" json:"spatialReference,omitempty"`
	GeometryType     string  `yaml:"geometry_type,omitempty" json:"geometryType,omitempty"`
}

// Field returns the field matching name case-insensitively.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// DataFields returns the fields that carry user data (OID excluded).
func (s *Schema) DataFields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.IsOID() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Metadata holds an item's metadata documents.
type Metadata struct {
	ISO   []byte // ISO 19139 XML
	CSDGM []byte // FGDC CSDGM XML
}

// Empty reports whether neither document is present.
func (m *Metadata) Empty() bool {
	return m == nil || (len(m.ISO) == 0 && len(m.CSDGM) == 0)
}

// ObjectSpec describes a data object to create.
type ObjectSpec struct {
	Name    string // base name, without schema prefix
	Type    ObjectType
	Dataset string // containing feature dataset (full or base name), "" if standalone
	Schema  *Schema
}
