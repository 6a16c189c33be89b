// Package archive writes Parquet snapshots of shipped data objects to the object store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/objectstore"
)

// Archiver stores snapshots under <prefix>/<object>/dt=<date>/run=<run>/part-000000.parquet.
type Archiver struct {
	store  objectstore.Store
	bucket string
	prefix string
}

// New creates an archiver writing into bucket.
func New(store objectstore.Store, bucket, prefix string) *Archiver {
	return &Archiver{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// EnsureBucket creates the archive bucket when missing.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	return a.store.EnsureBucket(ctx, a.bucket)
}

// Snapshot accumulates rows of one object into an in-memory Parquet file.
type Snapshot struct {
	buf     *bytes.Buffer
	pfw     source.ParquetFile
	pw      *writer.JSONWriter
	columns []column
	rows    int64
}

type column struct {
	field gdb.Field
	name  string
}

// NewSnapshot starts a snapshot with one column per schema field.
func (a *Archiver) NewSnapshot(schema *gdb.Schema) (*Snapshot, error) {
	if schema == nil || len(schema.Fields) == 0 {
		return nil, fmt.Errorf("snapshot requires a schema")
	}
	cols := make([]column, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		cols = append(cols, column{field: f, name: columnName(f.Name)})
	}

	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(buildParquetSchema(cols), pfw, 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	return &Snapshot{buf: buf, pfw: pfw, pw: pw, columns: cols}, nil
}

// Add appends one record.
func (s *Snapshot) Add(rec gdb.Record) error {
	row := make(map[string]any, len(s.columns))
	for _, c := range s.columns {
		v, _ := gdb.Lookup(rec, c.field.Name)
		row[c.name] = parquetValue(c.field, v)
	}
	line, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if err := s.pw.Write(string(line)); err != nil {
		return fmt.Errorf("write parquet row: %w", err)
	}
	s.rows++
	return nil
}

// Rows returns the number of rows added.
func (s *Snapshot) Rows() int64 { return s.rows }

// Abort discards the snapshot.
func (s *Snapshot) Abort() {
	_ = s.pw.WriteStop()
	_ = s.pfw.Close()
}

// Commit finalizes the snapshot and uploads it. Returns the minio:// location.
func (a *Archiver) Commit(ctx context.Context, s *Snapshot, runID, object string, when time.Time) (string, error) {
	if err := s.pw.WriteStop(); err != nil {
		_ = s.pfw.Close()
		return "", fmt.Errorf("finish parquet file: %w", err)
	}
	_ = s.pfw.Close()

	key := a.Key(object, runID, when)
	if err := a.store.PutObject(ctx, a.bucket, key, s.buf.Bytes()); err != nil {
		return "", err
	}
	return fmt.Sprintf("minio://%s/%s", a.bucket, key), nil
}

// Key returns the object key of a snapshot.
func (a *Archiver) Key(object, runID string, when time.Time) string {
	return path.Join(
		a.prefix,
		strings.ToLower(gdb.BaseName(object)),
		"dt="+when.UTC().Format("2006-01-02"),
		"run="+runID,
		fmt.Sprintf("part-%06d.parquet", 0),
	)
}

func buildParquetSchema(cols []column) string {
	fields := make([]map[string]string, 0, len(cols))
	for _, c := range cols {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.name, parquetType(c.field)),
		})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func parquetType(f gdb.Field) string {
	switch f.Type {
	case gdb.FieldOID, gdb.FieldSmallInteger, gdb.FieldInteger:
		return "type=INT64"
	case gdb.FieldDouble:
		return "type=DOUBLE"
	default:
		return "type=BYTE_ARRAY, convertedtype=UTF8"
	}
}

func parquetValue(f gdb.Field, v any) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case gdb.FieldOID, gdb.FieldSmallInteger, gdb.FieldInteger, gdb.FieldDouble:
		return gdb.NormalizeValue(f, v)
	}
	return gdb.CanonicalValue(f, v)
}

// columnName folds a field name into a Parquet-safe column name.
func columnName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
