// Package gdb defines the geodatabase workspace contract shared by every workspace kind.
//
// Architecture:
//
//	Workspace   - list, describe, read and write data objects of one geodatabase
//	Registry    - workspace factories indexed by kind ("fgdb", "postgres")
//	Object      - a data object addressed by its full (possibly schema-prefixed) name
//
// Data objects are feature datasets, feature classes, tables and raster datasets.
// Names compare case-insensitively everywhere, the way geodatabases resolve them.
package gdb

import "context"

// Workspace is the contract every geodatabase kind implements.
type Workspace interface {
	// Kind returns the registered workspace kind (e.g., "fgdb", "postgres").
	Kind() string

	// Path returns a human-readable location of the workspace (directory, host/database).
	Path() string

	// Ping verifies the workspace is reachable.
	Ping(ctx context.Context) error

	// ListDatasets returns the full names of feature datasets.
	ListDatasets(ctx context.Context) ([]string, error)

	// ListFeatureClasses returns feature classes inside dataset, or the standalone
	// feature classes when dataset is empty.
	ListFeatureClasses(ctx context.Context, dataset string) ([]string, error)

	// ListTables returns non-spatial tables (and discoverable non-spatial views).
	ListTables(ctx context.Context) ([]string, error)

	// ListRasters returns raster datasets.
	ListRasters(ctx context.Context) ([]string, error)

	// Describe returns the schema of a feature class or table.
	Describe(ctx context.Context, name string) (*Schema, error)

	// Count returns the row count of a feature class or table.
	Count(ctx context.Context, name string) (int64, error)

	// Read streams rows, ordered by orderBy when it is not empty.
	Read(ctx context.Context, name string, orderBy string) (Iterator[Record], error)

	// Insert appends rows. OID fields are assigned by the workspace.
	Insert(ctx context.Context, name string, records []Record) (int64, error)

	// DeleteRows removes every row while keeping the object.
	DeleteRows(ctx context.Context, name string) error

	// CreateFeatureDataset creates a feature dataset and returns its full name.
	CreateFeatureDataset(ctx context.Context, name string, spatialReference string) (string, error)

	// CreateObject creates a feature class, table or raster dataset and returns its full name.
	CreateObject(ctx context.Context, spec *ObjectSpec) (string, error)

	// Delete removes a data object entirely.
	Delete(ctx context.Context, name string) error

	// ReadRaster returns the raster dataset's bytes.
	ReadRaster(ctx context.Context, name string) ([]byte, error)

	// WriteRaster replaces the raster dataset's bytes.
	WriteRaster(ctx context.Context, name string, data []byte) error

	// Metadata returns the item's metadata documents.
	Metadata(ctx context.Context, name string) (*Metadata, error)

	// SetMetadata replaces the item's metadata documents.
	SetMetadata(ctx context.Context, name string, md *Metadata) error

	// Close releases any resources held by the workspace.
	Close() error
}
