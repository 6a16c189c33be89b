package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

const describeColumnsSQL = `
SELECT a.attname, format_type(a.atttypid, a.atttypmod), NOT a.attnotnull
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attnum
`

const describeItemSQL = `
SELECT spatial_reference, geometry_type, fields
FROM sde.items
WHERE schema_name = $1 AND name = $2
`

func (w *Workspace) Describe(ctx context.Context, name string) (*gdb.Schema, error) {
	e, err := w.locate(ctx, name, gdb.TypeFeatureClass, gdb.TypeTable)
	if err != nil {
		return nil, err
	}
	return w.describe(ctx, e)
}

// describe merges live column definitions with the canonical types and aliases recorded
// in sde.items when the object was created there.
func (w *Workspace) describe(ctx context.Context, e *entry) (*gdb.Schema, error) {
	rows, err := w.pool.Query(ctx, describeColumnsSQL, e.schema, e.name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", e.name, err)
	}
	schema := &gdb.Schema{}
	for rows.Next() {
		var colName, native string
		var nullable bool
		if err := rows.Scan(&colName, &native, &nullable); err != nil {
			rows.Close()
			return nil, err
		}
		schema.Fields = append(schema.Fields, fieldFromNative(colName, native, nullable))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var recorded []byte
	err = w.pool.QueryRow(ctx, describeItemSQL, e.schema, e.name).Scan(&schema.SpatialReference, &schema.GeometryType, &recorded)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to read sde item %s: %w", e.name, err)
	default:
		var fields []gdb.Field
		if err := json.Unmarshal(recorded, &fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", e.name, err)
		}
		overlayFields(schema, fields)
	}
	return schema, nil
}

func overlayFields(schema *gdb.Schema, recorded []gdb.Field) {
	for i, f := range schema.Fields {
		for _, r := range recorded {
			if !strings.EqualFold(f.Name, r.Name) {
				continue
			}
			if r.Type != "" {
				schema.Fields[i].Type = r.Type
			}
			schema.Fields[i].Alias = r.Alias
			if r.Length > 0 {
				schema.Fields[i].Length = r.Length
			}
		}
	}
}

// fieldFromNative maps a PostgreSQL column type (format_type output) to a field.
func fieldFromNative(name, native string, nullable bool) gdb.Field {
	f := gdb.Field{Name: name, NativeType: native, Nullable: nullable}
	lower := strings.ToLower(native)
	switch {
	case strings.EqualFold(name, "objectid"):
		f.Type = gdb.FieldOID
	case strings.HasPrefix(lower, "geometry") || strings.HasPrefix(lower, "geography"):
		f.Type = gdb.FieldGeometry
	case strings.EqualFold(name, "shape"):
		f.Type = gdb.FieldGeometry
	case lower == "smallint":
		f.Type = gdb.FieldSmallInteger
	case lower == "integer" || lower == "bigint":
		f.Type = gdb.FieldInteger
	case lower == "real" || lower == "double precision" || strings.HasPrefix(lower, "numeric"):
		f.Type = gdb.FieldDouble
	case lower == "date" || strings.HasPrefix(lower, "timestamp"):
		f.Type = gdb.FieldDate
	case lower == "bytea":
		f.Type = gdb.FieldBlob
	case lower == "uuid":
		f.Type = gdb.FieldGUID
	default:
		f.Type = gdb.FieldString
		f.Length = varcharLength(lower)
	}
	return f
}

func varcharLength(native string) int {
	open := strings.IndexByte(native, '(')
	end := strings.IndexByte(native, ')')
	if open == -1 || end < open {
		return 0
	}
	n, err := strconv.Atoi(native[open+1 : end])
	if err != nil {
		return 0
	}
	return n
}

// nativeType maps a canonical field to the column type used when creating objects.
// Geometry is stored as text (WKT or JSON) so no spatial extension is required.
func nativeType(f gdb.Field) string {
	switch f.Type {
	case gdb.FieldOID:
		return "bigserial PRIMARY KEY"
	case gdb.FieldSmallInteger:
		return "smallint"
	case gdb.FieldInteger:
		return "bigint"
	case gdb.FieldDouble:
		return "double precision"
	case gdb.FieldDate:
		return "timestamptz"
	case gdb.FieldBlob:
		return "bytea"
	case gdb.FieldString:
		if f.Length > 0 {
			return fmt.Sprintf("varchar(%d)", f.Length)
		}
		return "text"
	default:
		return "text"
	}
}
