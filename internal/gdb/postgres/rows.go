package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// lockTimeout bounds how long writes wait for conflicting locks before reporting E_LOCKED.
const lockTimeout = "5s"

func (w *Workspace) Count(ctx context.Context, name string) (int64, error) {
	e, err := w.locate(ctx, name, gdb.TypeFeatureClass, gdb.TypeTable)
	if err != nil {
		return 0, err
	}
	var n int64
	query := "SELECT count(*) FROM " + ident(e)
	if err := w.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", e.name, err)
	}
	return n, nil
}

func (w *Workspace) Read(ctx context.Context, name string, orderBy string) (gdb.Iterator[gdb.Record], error) {
	e, err := w.locate(ctx, name, gdb.TypeFeatureClass, gdb.TypeTable)
	if err != nil {
		return nil, err
	}
	schema, err := w.describe(ctx, e)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + ident(e)
	if orderBy != "" {
		field, ok := schema.Field(orderBy)
		if !ok {
			return nil, gdb.WrapError(gdb.CodeSchemaMismatch, false, fmt.Errorf("%s has no field %q", e.name, orderBy))
		}
		query += " ORDER BY " + orderClause(field)
	}

	rows, err := w.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.name, err)
	}
	return &rowIterator{rows: rows, schema: schema}, nil
}

// orderClause sorts text bytewise so orders agree with other workspace kinds.
func orderClause(f gdb.Field) string {
	col := pgx.Identifier{f.Name}.Sanitize()
	native := strings.ToLower(f.NativeType)
	if native == "text" || strings.HasPrefix(native, "character") {
		col += ` COLLATE "C"`
	}
	return col + " NULLS FIRST"
}

// Insert appends rows inside one transaction. OBJECTID comes from the column default.
func (w *Workspace) Insert(ctx context.Context, name string, records []gdb.Record) (int64, error) {
	e, err := w.locate(ctx, name, gdb.TypeFeatureClass, gdb.TypeTable)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	schema, err := w.describe(ctx, e)
	if err != nil {
		return 0, err
	}

	var fields []gdb.Field
	var cols, params []string
	for _, f := range schema.Fields {
		if f.IsOID() {
			continue
		}
		fields = append(fields, f)
		cols = append(cols, pgx.Identifier{f.Name}.Sanitize())
		params = append(params, fmt.Sprintf("$%d", len(params)+1))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", ident(e), strings.Join(cols, ", "), strings.Join(params, ", "))

	batch := &pgx.Batch{}
	for _, rec := range records {
		args := make([]any, len(fields))
		for i, f := range fields {
			v, _ := gdb.Lookup(rec, f.Name)
			args[i] = toPG(f, v)
		}
		batch.Queue(query, args...)
	}

	err = pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, classify(fmt.Errorf("failed to insert into %s: %w", e.name, err))
	}
	return int64(len(records)), nil
}

func (w *Workspace) DeleteRows(ctx context.Context, name string) error {
	e, err := w.locate(ctx, name, gdb.TypeFeatureClass, gdb.TypeTable)
	if err != nil {
		return err
	}
	err = pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "DELETE FROM "+ident(e))
		return err
	})
	if err != nil {
		return classify(fmt.Errorf("failed to delete rows of %s: %w", e.name, err))
	}
	return nil
}

func ident(e *entry) string {
	return pgx.Identifier{e.schema, e.name}.Sanitize()
}

// classify maps PostgreSQL errors onto workspace error codes.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "55P03", "40P01": // lock_not_available, deadlock_detected
		return gdb.WrapError(gdb.CodeLocked, true, err)
	case "42P07", "23505": // duplicate_table, unique_violation
		return gdb.WrapError(gdb.CodeObjectExists, false, err)
	case "42P01": // undefined_table
		return gdb.WrapError(gdb.CodeObjectNotFound, false, err)
	case "42703", "42804": // undefined_column, datatype_mismatch
		return gdb.WrapError(gdb.CodeSchemaMismatch, false, err)
	}
	return err
}

// toPG converts a stored value into a query argument for column f.
func toPG(f gdb.Field, v any) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case gdb.FieldDate:
		if t, ok := gdb.ToTime(v); ok {
			return t
		}
	case gdb.FieldBlob:
		switch b := v.(type) {
		case []byte:
			return b
		case string:
			if decoded, err := base64.StdEncoding.DecodeString(b); err == nil {
				return decoded
			}
			return []byte(b)
		}
	}
	return gdb.NormalizeValue(f, v)
}

// fromPG converts a pgx value into the plain values every workspace kind returns.
func fromPG(f gdb.Field, v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		fv, err := t.Float64Value()
		if err != nil || !fv.Valid {
			return nil
		}
		v = fv.Float64
	case [16]byte:
		v = uuid.UUID(t).String()
	case map[string]any, []any:
		if data, err := json.Marshal(t); err == nil {
			v = string(data)
		}
	case time.Time:
		v = t.UTC()
	}
	return gdb.NormalizeValue(f, v)
}

// rowIterator streams pgx rows as records keyed by column name.
type rowIterator struct {
	rows    pgx.Rows
	schema  *gdb.Schema
	current gdb.Record
	err     error
}

func (it *rowIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	values, err := it.rows.Values()
	if err != nil {
		it.err = err
		return false
	}
	descs := it.rows.FieldDescriptions()
	rec := make(gdb.Record, len(values))
	for i, v := range values {
		col := descs[i].Name
		field, ok := it.schema.Field(col)
		if !ok {
			field = gdb.Field{Name: col, Type: gdb.FieldString}
		}
		rec[col] = fromPG(field, v)
	}
	it.current = rec
	return true
}

func (it *rowIterator) Value() gdb.Record { return it.current }

func (it *rowIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *rowIterator) Close() error {
	it.rows.Close()
	return nil
}
