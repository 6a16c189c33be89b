package freight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/VCGI/VT-DataRail-Tools/internal/digest"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Result is the outcome of change detection.
type Result string

const (
	ResultSame      Result = "same"
	ResultDifferent Result = "different"
	ResultError     Result = "error"
)

// Compare reports whether two feature classes or tables hold the same data. OBJECTID,
// field aliases and field order are ignored. Rows are paired by sortField; a missing sort
// field on either side is an error.
func Compare(ctx context.Context, src gdb.Workspace, srcName string, dst gdb.Workspace, dstName string, sortField string) (Result, error) {
	if strings.TrimSpace(sortField) == "" {
		return ResultError, fmt.Errorf("no sort field given")
	}
	srcSchema, err := src.Describe(ctx, srcName)
	if err != nil {
		return ResultError, fmt.Errorf("describe %s: %w", srcName, err)
	}
	dstSchema, err := dst.Describe(ctx, dstName)
	if err != nil {
		return ResultError, fmt.Errorf("describe %s: %w", dstName, err)
	}
	srcSort, ok := srcSchema.Field(sortField)
	if !ok {
		return ResultError, fmt.Errorf("%s has no field %q", srcName, sortField)
	}
	dstSort, ok := dstSchema.Field(sortField)
	if !ok {
		return ResultError, fmt.Errorf("%s has no field %q", dstName, sortField)
	}

	fields, same := matchFields(srcSchema, dstSchema)
	if !same {
		return ResultDifferent, nil
	}

	srcCount, err := src.Count(ctx, srcName)
	if err != nil {
		return ResultError, fmt.Errorf("count %s: %w", srcName, err)
	}
	dstCount, err := dst.Count(ctx, dstName)
	if err != nil {
		return ResultError, fmt.Errorf("count %s: %w", dstName, err)
	}
	if srcCount != dstCount {
		return ResultDifferent, nil
	}

	srcSum, err := rowDigest(ctx, src, srcName, srcSort, fields)
	if err != nil {
		return ResultError, err
	}
	dstSum, err := rowDigest(ctx, dst, dstName, dstSort, fields)
	if err != nil {
		return ResultError, err
	}
	if srcSum != dstSum {
		return ResultDifferent, nil
	}
	return ResultSame, nil
}

// matchFields returns the shared data fields sorted by upper-cased name, and whether both
// schemas have the same data fields with the same types.
func matchFields(a, b *gdb.Schema) ([]gdb.Field, bool) {
	af, bf := a.DataFields(), b.DataFields()
	if len(af) != len(bf) {
		return nil, false
	}
	for _, f := range af {
		other, ok := b.Field(f.Name)
		if !ok || other.IsOID() || other.Type != f.Type {
			return nil, false
		}
	}
	sort.Slice(af, func(i, j int) bool {
		return strings.ToUpper(af[i].Name) < strings.ToUpper(af[j].Name)
	})
	return af, true
}

type sortedRow struct {
	key     any
	encoded []string
	joined  string
}

// rowDigest hashes every row in sort-field order; ties are broken by the canonical encoding
// so the digest does not depend on how a workspace orders equal keys.
func rowDigest(ctx context.Context, ws gdb.Workspace, name string, sortField gdb.Field, fields []gdb.Field) (string, error) {
	it, err := ws.Read(ctx, name, sortField.Name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	defer it.Close()

	var rows []sortedRow
	for it.Next() {
		rec := it.Value()
		row := sortedRow{encoded: make([]string, len(fields))}
		row.key, _ = gdb.Lookup(rec, sortField.Name)
		for i, f := range fields {
			v, _ := gdb.Lookup(rec, f.Name)
			row.encoded[i] = gdb.CanonicalValue(f, v)
		}
		row.joined = strings.Join(row.encoded, "\x1f")
		rows = append(rows, row)
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := gdb.CompareValues(sortField, rows[i].key, rows[j].key); c != 0 {
			return c < 0
		}
		return rows[i].joined < rows[j].joined
	})

	h := digest.NewHasher()
	for _, row := range rows {
		h.AddRow(row.encoded...)
	}
	sum, err := h.Sum()
	if err != nil {
		return "", err
	}
	return sum.String(), nil
}
