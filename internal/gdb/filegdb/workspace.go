// Package filegdb implements a file geodatabase: a directory holding a YAML catalog,
// one JSON-lines file of rows per feature class or table, raster bytes and metadata XML.
//
// Layout:
//
//	catalog.yaml              items, fields, next OBJECTID
//	rows/<name>.jsonl         one JSON object per row
//	rasters/<name>            raster dataset bytes
//	metadata/<name>.iso.xml   ISO 19139 metadata
//	metadata/<name>.fgdc.xml  FGDC CSDGM metadata
//	locks/<name>.lock         presence blocks deletes and reloads of <name>
//
// Full names carry no schema prefix.
package filegdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Kind is the registered workspace kind.
const Kind = "fgdb"

const (
	rowsDir     = "rows"
	rastersDir  = "rasters"
	metadataDir = "metadata"
	locksDir    = "locks"
)

func init() {
	gdb.Register(Kind, func(ctx context.Context, cfg gdb.Config) (gdb.Workspace, error) {
		return Open(cfg.Path)
	})
}

// Workspace is a file geodatabase rooted at a directory.
type Workspace struct {
	dir string
	mu  sync.Mutex
	cat *catalog
}

var _ gdb.Workspace = (*Workspace)(nil)

// Open opens an existing file geodatabase.
func Open(dir string) (*Workspace, error) {
	if dir == "" {
		return nil, gdb.WrapError(gdb.CodeWorkspaceUnreachable, false, errors.New("file geodatabase path is required"))
	}
	cat, err := loadCatalog(dir)
	if err != nil {
		return nil, gdb.WrapError(gdb.CodeWorkspaceUnreachable, false, fmt.Errorf("open file geodatabase %s: %w", dir, err))
	}
	return &Workspace{dir: dir, cat: cat}, nil
}

// Create initializes an empty file geodatabase at dir. An existing catalog is kept.
func Create(dir string) (*Workspace, error) {
	for _, sub := range []string{"", rowsDir, rastersDir, metadataDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create file geodatabase %s: %w", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, catalogFile)); errors.Is(err, fs.ErrNotExist) {
		if err := saveCatalog(dir, &catalog{}); err != nil {
			return nil, fmt.Errorf("create file geodatabase %s: %w", dir, err)
		}
	}
	return Open(dir)
}

func (w *Workspace) Kind() string { return Kind }
func (w *Workspace) Path() string { return w.dir }

func (w *Workspace) Ping(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(w.dir, catalogFile)); err != nil {
		return gdb.WrapError(gdb.CodeWorkspaceUnreachable, true, err)
	}
	return nil
}

func (w *Workspace) ListDatasets(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cat.names(func(it *item) bool { return it.Type == gdb.TypeFeatureDataset }), nil
}

func (w *Workspace) ListFeatureClasses(ctx context.Context, dataset string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ds := gdb.BaseName(dataset)
	return w.cat.names(func(it *item) bool {
		return it.Type == gdb.TypeFeatureClass && strings.EqualFold(it.Dataset, ds)
	}), nil
}

func (w *Workspace) ListTables(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cat.names(func(it *item) bool { return it.Type == gdb.TypeTable }), nil
}

func (w *Workspace) ListRasters(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cat.names(func(it *item) bool { return it.Type == gdb.TypeRaster }), nil
}

func (w *Workspace) Describe(ctx context.Context, name string) (*gdb.Schema, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, err := w.tabular(name)
	if err != nil {
		return nil, err
	}
	return it.schema(), nil
}

func (w *Workspace) Count(ctx context.Context, name string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, err := w.tabular(name)
	if err != nil {
		return 0, err
	}
	rows, err := w.readRows(it)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Read loads the rows into memory and sorts them by orderBy (stable on OBJECTID order).
func (w *Workspace) Read(ctx context.Context, name string, orderBy string) (gdb.Iterator[gdb.Record], error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, err := w.tabular(name)
	if err != nil {
		return nil, err
	}
	rows, err := w.readRows(it)
	if err != nil {
		return nil, err
	}
	if orderBy != "" {
		field, ok := it.schema().Field(orderBy)
		if !ok {
			return nil, gdb.WrapError(gdb.CodeSchemaMismatch, false, fmt.Errorf("%s has no field %q", it.Name, orderBy))
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return gdb.CompareValues(field, rows[i][field.Name], rows[j][field.Name]) < 0
		})
	}
	return gdb.NewSliceIterator(rows), nil
}

// Insert appends rows, keeping only catalog fields and assigning OBJECTID values.
func (w *Workspace) Insert(ctx context.Context, name string, records []gdb.Record) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, err := w.tabular(name)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	// Encode the whole batch before touching the row file so a bad record
	// leaves both the rows and NextOID as they were.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	oid, hasOID := it.oidField()
	nextOID := it.NextOID
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		row := make(gdb.Record, len(it.Fields))
		for _, field := range it.Fields {
			if field.Type == gdb.FieldOID {
				continue
			}
			v, _ := gdb.Lookup(rec, field.Name)
			row[field.Name] = gdb.NormalizeValue(field, v)
		}
		if hasOID {
			nextOID++
			row[oid.Name] = nextOID
		}
		if err := enc.Encode(row); err != nil {
			return 0, fmt.Errorf("encode record %d of %s: %w", i, it.Name, err)
		}
	}

	path := w.rowsPath(it.Name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Truncate(info.Size())
		return 0, err
	}

	previous := it.NextOID
	it.NextOID = nextOID
	if err := saveCatalog(w.dir, w.cat); err != nil {
		it.NextOID = previous
		_ = f.Truncate(info.Size())
		return 0, err
	}
	return int64(len(records)), nil
}

func (w *Workspace) DeleteRows(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, err := w.tabular(name)
	if err != nil {
		return err
	}
	if err := w.checkLock(it.Name); err != nil {
		return err
	}
	return os.WriteFile(w.rowsPath(it.Name), nil, 0o644)
}

func (w *Workspace) CreateFeatureDataset(ctx context.Context, name string, spatialReference string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	base := gdb.BaseName(name)
	if base == "" {
		return "", fmt.Errorf("feature dataset name is required")
	}
	if w.cat.find(base) != nil {
		return "", gdb.Exists(base)
	}
	w.cat.Items = append(w.cat.Items, &item{
		Name:             base,
		Type:             gdb.TypeFeatureDataset,
		SpatialReference: spatialReference,
	})
	if err := saveCatalog(w.dir, w.cat); err != nil {
		return "", err
	}
	return base, nil
}

// CreateObject adds a feature class, table or raster dataset. Tabular objects without an
// OID field get an OBJECTID field.
func (w *Workspace) CreateObject(ctx context.Context, spec *gdb.ObjectSpec) (string, error) {
	if spec == nil || spec.Name == "" {
		return "", fmt.Errorf("object name is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	base := gdb.BaseName(spec.Name)
	if w.cat.find(base) != nil {
		return "", gdb.Exists(base)
	}
	it := &item{Name: base, Type: spec.Type}
	if spec.Dataset != "" {
		ds := w.cat.find(spec.Dataset)
		if ds == nil || ds.Type != gdb.TypeFeatureDataset {
			return "", gdb.NotFound(spec.Dataset)
		}
		it.Dataset = ds.Name
	}

	switch spec.Type {
	case gdb.TypeFeatureClass, gdb.TypeTable:
		if spec.Schema != nil {
			it.Fields = append(it.Fields, spec.Schema.Fields...)
			it.SpatialReference = spec.Schema.SpatialReference
			it.GeometryType = spec.Schema.GeometryType
		}
		if _, ok := it.oidField(); !ok {
			it.Fields = append([]gdb.Field{{Name: "OBJECTID", Type: gdb.FieldOID}}, dropOIDNamed(it.Fields)...)
		}
		if err := os.WriteFile(w.rowsPath(base), nil, 0o644); err != nil {
			return "", err
		}
	case gdb.TypeRaster:
		if err := os.WriteFile(w.rasterPath(base), nil, 0o644); err != nil {
			return "", err
		}
	default:
		return "", gdb.WrapError(gdb.CodeUnsupported, false, fmt.Errorf("cannot create object of type %q", spec.Type))
	}

	w.cat.Items = append(w.cat.Items, it)
	if err := saveCatalog(w.dir, w.cat); err != nil {
		return "", err
	}
	return base, nil
}

// Delete removes an object with its rows, raster and metadata. A feature dataset must be
// empty.
func (w *Workspace) Delete(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	it := w.cat.find(name)
	if it == nil {
		return gdb.NotFound(name)
	}
	if err := w.checkLock(it.Name); err != nil {
		return err
	}
	if it.Type == gdb.TypeFeatureDataset {
		for _, other := range w.cat.Items {
			if strings.EqualFold(other.Dataset, it.Name) {
				return fmt.Errorf("feature dataset %s is not empty", it.Name)
			}
		}
	}
	w.cat.remove(it)
	if err := saveCatalog(w.dir, w.cat); err != nil {
		return err
	}
	for _, path := range []string{
		w.rowsPath(it.Name),
		w.rasterPath(it.Name),
		w.metadataPath(it.Name, isoSuffix),
		w.metadataPath(it.Name, fgdcSuffix),
	} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (w *Workspace) ReadRaster(ctx context.Context, name string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, err := w.raster(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(w.rasterPath(it.Name))
}

func (w *Workspace) WriteRaster(ctx context.Context, name string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	it, err := w.raster(name)
	if err != nil {
		return err
	}
	if err := w.checkLock(it.Name); err != nil {
		return err
	}
	return os.WriteFile(w.rasterPath(it.Name), data, 0o644)
}

const (
	isoSuffix  = ".iso.xml"
	fgdcSuffix = ".fgdc.xml"
)

func (w *Workspace) Metadata(ctx context.Context, name string) (*gdb.Metadata, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	it := w.cat.find(name)
	if it == nil {
		return nil, gdb.NotFound(name)
	}
	md := &gdb.Metadata{}
	var err error
	if md.ISO, err = readOptional(w.metadataPath(it.Name, isoSuffix)); err != nil {
		return nil, err
	}
	if md.CSDGM, err = readOptional(w.metadataPath(it.Name, fgdcSuffix)); err != nil {
		return nil, err
	}
	return md, nil
}

func (w *Workspace) SetMetadata(ctx context.Context, name string, md *gdb.Metadata) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	it := w.cat.find(name)
	if it == nil {
		return gdb.NotFound(name)
	}
	if md == nil {
		md = &gdb.Metadata{}
	}
	if err := os.MkdirAll(filepath.Join(w.dir, metadataDir), 0o755); err != nil {
		return err
	}
	if err := writeOptional(w.metadataPath(it.Name, isoSuffix), md.ISO); err != nil {
		return err
	}
	return writeOptional(w.metadataPath(it.Name, fgdcSuffix), md.CSDGM)
}

func (w *Workspace) Close() error { return nil }

// Lock marks name as exclusively locked until the returned func is called.
func (w *Workspace) Lock(name string) (func() error, error) {
	path := w.lockPath(gdb.BaseName(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return nil, err
	}
	return func() error { return os.Remove(path) }, nil
}

// --- internals (callers hold w.mu) ---

func (w *Workspace) tabular(name string) (*item, error) {
	it := w.cat.find(name)
	if it == nil || (it.Type != gdb.TypeFeatureClass && it.Type != gdb.TypeTable) {
		return nil, gdb.NotFound(name)
	}
	return it, nil
}

func (w *Workspace) raster(name string) (*item, error) {
	it := w.cat.find(name)
	if it == nil || it.Type != gdb.TypeRaster {
		return nil, gdb.NotFound(name)
	}
	return it, nil
}

func (w *Workspace) checkLock(name string) error {
	if _, err := os.Stat(w.lockPath(name)); err == nil {
		return gdb.WrapError(gdb.CodeLocked, true, fmt.Errorf("%s is locked", name))
	}
	return nil
}

func (w *Workspace) readRows(it *item) ([]gdb.Record, error) {
	data, err := os.ReadFile(w.rowsPath(it.Name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []gdb.Record
	for {
		var row gdb.Record
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("read rows of %s: %w", it.Name, err)
		}
		for _, field := range it.Fields {
			if v, ok := row[field.Name]; ok {
				row[field.Name] = gdb.NormalizeValue(field, v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (w *Workspace) rowsPath(name string) string {
	return filepath.Join(w.dir, rowsDir, fileKey(name)+".jsonl")
}

func (w *Workspace) rasterPath(name string) string {
	return filepath.Join(w.dir, rastersDir, fileKey(name))
}

func (w *Workspace) metadataPath(name, suffix string) string {
	return filepath.Join(w.dir, metadataDir, fileKey(name)+suffix)
}

func (w *Workspace) lockPath(name string) string {
	return filepath.Join(w.dir, locksDir, fileKey(name)+".lock")
}

func fileKey(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(strings.ToLower(name))
}

func dropOIDNamed(fields []gdb.Field) []gdb.Field {
	out := fields[:0:0]
	for _, f := range fields {
		if strings.EqualFold(f.Name, "OBJECTID") {
			continue
		}
		out = append(out, f)
	}
	return out
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func writeOptional(path string, data []byte) error {
	if len(data) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(path, data, 0o644)
}
