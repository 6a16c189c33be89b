package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/VCGI/VT-DataRail-Tools/internal/digest"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

const insertItemSQL = `
INSERT INTO sde.items (schema_name, name, type, dataset, spatial_reference, geometry_type, fields)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (w *Workspace) CreateFeatureDataset(ctx context.Context, name string, spatialReference string) (string, error) {
	schema, base := w.targetName(name)
	if base == "" {
		return "", errors.New("feature dataset name is required")
	}
	if _, err := w.locate(ctx, schema+"."+base); err == nil {
		return "", gdb.Exists(base)
	}
	if _, err := w.pool.Exec(ctx, insertItemSQL, schema, base, string(gdb.TypeFeatureDataset), "", spatialReference, "", []byte("[]")); err != nil {
		return "", classify(fmt.Errorf("failed to create feature dataset %s: %w", base, err))
	}
	return w.fullName(schema, base), nil
}

// CreateObject creates a table for feature classes and tables, or a catalog entry for a
// raster dataset. Names and columns are folded to lower case.
func (w *Workspace) CreateObject(ctx context.Context, spec *gdb.ObjectSpec) (string, error) {
	if spec == nil || spec.Name == "" {
		return "", errors.New("object name is required")
	}
	schema, base := w.targetName(spec.Name)
	if _, err := w.locate(ctx, schema+"."+base); err == nil {
		return "", gdb.Exists(base)
	}

	dataset := ""
	if spec.Dataset != "" {
		ds, err := w.locate(ctx, spec.Dataset, gdb.TypeFeatureDataset)
		if err != nil {
			return "", err
		}
		dataset = ds.name
	}

	switch spec.Type {
	case gdb.TypeFeatureClass, gdb.TypeTable:
		return w.createTable(ctx, schema, base, dataset, spec)
	case gdb.TypeRaster:
		err := pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, insertItemSQL, schema, base, string(gdb.TypeRaster), dataset, "", "", []byte("[]")); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO sde.rasters (schema_name, name, bucket) VALUES ($1, $2, $3)`, schema, base, w.blobBucket)
			return err
		})
		if err != nil {
			return "", classify(fmt.Errorf("failed to create raster %s: %w", base, err))
		}
		return w.fullName(schema, base), nil
	default:
		return "", gdb.WrapError(gdb.CodeUnsupported, false, fmt.Errorf("cannot create object of type %q", spec.Type))
	}
}

func (w *Workspace) createTable(ctx context.Context, schema, base, dataset string, spec *gdb.ObjectSpec) (string, error) {
	fields := []gdb.Field{{Name: "objectid", Type: gdb.FieldOID}}
	var sr, geomType string
	if spec.Schema != nil {
		sr, geomType = spec.Schema.SpatialReference, spec.Schema.GeometryType
		for _, f := range spec.Schema.Fields {
			if f.IsOID() {
				continue
			}
			f.Name = strings.ToLower(f.Name)
			fields = append(fields, f)
		}
	}

	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, pgx.Identifier{f.Name}.Sanitize()+" "+nativeType(f))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{schema, base}.Sanitize(), strings.Join(cols, ", "))

	recorded, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	err = pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insertItemSQL, schema, base, string(spec.Type), dataset, sr, geomType, recorded)
		return err
	})
	if err != nil {
		return "", classify(fmt.Errorf("failed to create %s: %w", base, err))
	}
	return w.fullName(schema, base), nil
}

// Delete drops the object with its catalog rows, metadata and raster blob.
func (w *Workspace) Delete(ctx context.Context, name string) error {
	e, err := w.locate(ctx, name)
	if err != nil {
		return err
	}

	var blobKey string
	if e.typ == gdb.TypeRaster {
		err := w.pool.QueryRow(ctx, `SELECT object_key FROM sde.rasters WHERE schema_name = $1 AND name = $2`, e.schema, e.name).Scan(&blobKey)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}

	err = pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
			return err
		}
		switch e.typ {
		case gdb.TypeFeatureDataset:
			var members int
			if err := tx.QueryRow(ctx, `SELECT count(*) FROM sde.items WHERE schema_name = $1 AND lower(dataset) = lower($2)`, e.schema, e.name).Scan(&members); err != nil {
				return err
			}
			if members > 0 {
				return fmt.Errorf("feature dataset %s is not empty", e.name)
			}
		case gdb.TypeFeatureClass, gdb.TypeTable:
			kind := "TABLE"
			if e.view {
				kind = "VIEW"
			}
			if _, err := tx.Exec(ctx, "DROP "+kind+" "+ident(e)); err != nil {
				return err
			}
		case gdb.TypeRaster:
			if _, err := tx.Exec(ctx, `DELETE FROM sde.rasters WHERE schema_name = $1 AND name = $2`, e.schema, e.name); err != nil {
				return err
			}
		}
		for _, table := range []string{"sde.items", "sde.metadata"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE schema_name = $1 AND name = $2", e.schema, e.name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(fmt.Errorf("failed to delete %s: %w", e.name, err))
	}

	if blobKey != "" && w.blobs != nil {
		if err := w.blobs.DeleteObject(ctx, w.blobBucket, blobKey); err != nil {
			return fmt.Errorf("delete raster blob %s: %w", blobKey, err)
		}
	}
	return nil
}

func (w *Workspace) ReadRaster(ctx context.Context, name string) ([]byte, error) {
	e, err := w.locate(ctx, name, gdb.TypeRaster)
	if err != nil {
		return nil, err
	}
	var bucket, key string
	err = w.pool.QueryRow(ctx, `SELECT bucket, object_key FROM sde.rasters WHERE schema_name = $1 AND name = $2`, e.schema, e.name).Scan(&bucket, &key)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && key == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if w.blobs == nil {
		return nil, gdb.WrapError(gdb.CodeUnsupported, false, errors.New("no raster object store configured"))
	}
	return w.blobs.GetObject(ctx, bucket, key)
}

// rasterKey scopes a raster blob to its owning object so identical rasters in
// different objects never share a key.
func rasterKey(prefix, schema, name, sum string) string {
	return prefix + schema + "/" + name + "/" + sum
}

// WriteRaster stores data under the object's digest key and repoints the catalog row.
func (w *Workspace) WriteRaster(ctx context.Context, name string, data []byte) error {
	e, err := w.locate(ctx, name, gdb.TypeRaster)
	if err != nil {
		return err
	}
	if w.blobs == nil {
		return gdb.WrapError(gdb.CodeUnsupported, false, errors.New("no raster object store configured"))
	}

	sum := digest.Bytes(data)
	key := rasterKey(w.blobPrefix, e.schema, e.name, sum)
	if err := w.blobs.PutObject(ctx, w.blobBucket, key, data); err != nil {
		return fmt.Errorf("store raster %s: %w", e.name, err)
	}

	var previous string
	err = w.pool.QueryRow(ctx, `
INSERT INTO sde.rasters (schema_name, name, bucket, object_key, digest, size_bytes, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (schema_name, name) DO UPDATE
SET bucket = EXCLUDED.bucket, object_key = EXCLUDED.object_key, digest = EXCLUDED.digest,
    size_bytes = EXCLUDED.size_bytes, updated_at = now()
RETURNING COALESCE((SELECT object_key FROM sde.rasters WHERE schema_name = $1 AND name = $2), '')
`, e.schema, e.name, w.blobBucket, key, sum, int64(len(data))).Scan(&previous)
	if err != nil {
		return classify(fmt.Errorf("failed to record raster %s: %w", e.name, err))
	}
	if previous != "" && previous != key {
		if err := w.blobs.DeleteObject(ctx, w.blobBucket, previous); err != nil {
			return fmt.Errorf("delete replaced raster blob %s: %w", previous, err)
		}
	}
	return nil
}

func (w *Workspace) Metadata(ctx context.Context, name string) (*gdb.Metadata, error) {
	e, err := w.locate(ctx, name)
	if err != nil {
		return nil, err
	}
	md := &gdb.Metadata{}
	err = w.pool.QueryRow(ctx, `SELECT iso, fgdc FROM sde.metadata WHERE schema_name = $1 AND name = $2`, e.schema, e.name).Scan(&md.ISO, &md.CSDGM)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read metadata of %s: %w", e.name, err)
	}
	return md, nil
}

func (w *Workspace) SetMetadata(ctx context.Context, name string, md *gdb.Metadata) error {
	e, err := w.locate(ctx, name)
	if err != nil {
		return err
	}
	if md == nil {
		md = &gdb.Metadata{}
	}
	_, err = w.pool.Exec(ctx, `
INSERT INTO sde.metadata (schema_name, name, iso, fgdc, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (schema_name, name) DO UPDATE
SET iso = EXCLUDED.iso, fgdc = EXCLUDED.fgdc, updated_at = now()
`, e.schema, e.name, nullBytes(md.ISO), nullBytes(md.CSDGM))
	if err != nil {
		return fmt.Errorf("failed to write metadata of %s: %w", e.name, err)
	}
	return nil
}

// targetName resolves the schema new objects go to and folds the base name.
func (w *Workspace) targetName(name string) (schema, base string) {
	schema, base = splitName(name)
	if schema == "" {
		schema = w.schema
	}
	return strings.ToLower(schema), strings.ToLower(base)
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
