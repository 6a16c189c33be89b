package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// entry is one data object as seen through information_schema and sde.items.
type entry struct {
	schema  string
	name    string
	typ     gdb.ObjectType
	dataset string
	view    bool
}

const listRelationsSQL = `
SELECT t.table_schema, t.table_name, t.table_type,
       COALESCE(i.type, ''), COALESCE(i.dataset, ''),
       EXISTS (
           SELECT 1 FROM information_schema.columns c
           WHERE c.table_schema = t.table_schema
             AND c.table_name = t.table_name
             AND (lower(c.column_name) = 'shape' OR c.udt_name = 'geometry')
       )
FROM information_schema.tables t
LEFT JOIN sde.items i ON i.schema_name = t.table_schema AND i.name = t.table_name
WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema', 'sde')
  AND t.table_schema NOT LIKE 'pg\_%'
ORDER BY t.table_schema, t.table_name
`

const listCatalogOnlySQL = `
SELECT schema_name, name, type, dataset
FROM sde.items
WHERE type IN ('fdataset', 'raster')
ORDER BY schema_name, name
`

// entries returns every data object: relations first, then datasets and rasters.
func (w *Workspace) entries(ctx context.Context) ([]entry, error) {
	rows, err := w.pool.Query(ctx, listRelationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	var out []entry
	for rows.Next() {
		var (
			e                      entry
			tableType, typ, dsName string
			spatial                bool
		)
		if err := rows.Scan(&e.schema, &e.name, &tableType, &typ, &dsName, &spatial); err != nil {
			rows.Close()
			return nil, err
		}
		e.view = strings.Contains(strings.ToUpper(tableType), "VIEW")
		e.dataset = dsName
		switch {
		case typ == string(gdb.TypeFeatureClass) || (typ == "" && spatial):
			e.typ = gdb.TypeFeatureClass
		default:
			e.typ = gdb.TypeTable
		}
		out = append(out, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = w.pool.Query(ctx, listCatalogOnlySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list sde items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e entry
		var typ string
		if err := rows.Scan(&e.schema, &e.name, &typ, &e.dataset); err != nil {
			return nil, err
		}
		e.typ = gdb.ObjectType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// splitName separates an optional schema from the base name of database.schema.name,
// schema.name or name.
func splitName(full string) (schema, base string) {
	parts := strings.Split(full, ".")
	base = parts[len(parts)-1]
	if len(parts) >= 2 {
		schema = parts[len(parts)-2]
	}
	return schema, base
}

// locate finds the first object matching name case-insensitively. A schema given in
// name must match too.
func (w *Workspace) locate(ctx context.Context, name string, types ...gdb.ObjectType) (*entry, error) {
	schema, base := splitName(name)
	all, err := w.entries(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		e := &all[i]
		if !strings.EqualFold(e.name, base) {
			continue
		}
		if schema != "" && !strings.EqualFold(e.schema, schema) {
			continue
		}
		if len(types) > 0 && !hasType(types, e.typ) {
			continue
		}
		return e, nil
	}
	return nil, gdb.NotFound(name)
}

func hasType(types []gdb.ObjectType, t gdb.ObjectType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (w *Workspace) list(ctx context.Context, match func(entry) bool) ([]string, error) {
	all, err := w.entries(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range all {
		if match(e) {
			out = append(out, w.fullName(e.schema, e.name))
		}
	}
	return out, nil
}

func (w *Workspace) ListDatasets(ctx context.Context) ([]string, error) {
	return w.list(ctx, func(e entry) bool { return e.typ == gdb.TypeFeatureDataset })
}

func (w *Workspace) ListFeatureClasses(ctx context.Context, dataset string) ([]string, error) {
	ds := gdb.BaseName(dataset)
	return w.list(ctx, func(e entry) bool {
		return e.typ == gdb.TypeFeatureClass && strings.EqualFold(e.dataset, ds)
	})
}

func (w *Workspace) ListTables(ctx context.Context) ([]string, error) {
	return w.list(ctx, func(e entry) bool { return e.typ == gdb.TypeTable })
}

func (w *Workspace) ListRasters(ctx context.Context) ([]string, error) {
	return w.list(ctx, func(e entry) bool { return e.typ == gdb.TypeRaster })
}
