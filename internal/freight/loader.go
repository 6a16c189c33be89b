package freight

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/VCGI/VT-DataRail-Tools/internal/archive"
	"github.com/VCGI/VT-DataRail-Tools/internal/digest"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// DefaultBatchSize is the number of rows per insert when none is configured.
const DefaultBatchSize = 1000

// Loader appends rows from a source object to a target object in batches.
type Loader struct {
	batchSize int
	limiter   *rate.Limiter
}

// NewLoader creates a loader. rowsPerSecond <= 0 disables throttling.
func NewLoader(batchSize int, rowsPerSecond float64) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	l := &Loader{batchSize: batchSize}
	if rowsPerSecond > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(rowsPerSecond), batchSize)
	}
	return l
}

// LoadResult describes one append.
type LoadResult struct {
	Rows   int64
	Digest string
}

// Load appends every source row to the target. Target fields missing from the source
// get NULL, source fields missing from the target are dropped and OBJECTID is never
// carried. snap, when not nil, receives each appended row.
func (l *Loader) Load(ctx context.Context, src gdb.Workspace, srcName string, dst gdb.Workspace, dstName string, snap *archive.Snapshot) (LoadResult, error) {
	schema, err := dst.Describe(ctx, dstName)
	if err != nil {
		return LoadResult{}, fmt.Errorf("describe %s: %w", dstName, err)
	}
	fields := schema.DataFields()

	it, err := src.Read(ctx, srcName, "")
	if err != nil {
		return LoadResult{}, fmt.Errorf("read %s: %w", srcName, err)
	}
	defer it.Close()

	var res LoadResult
	h := digest.NewHasher()
	batch := make([]gdb.Record, 0, l.batchSize)
	encoded := make([]string, len(fields))

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if l.limiter != nil {
			if err := l.limiter.WaitN(ctx, len(batch)); err != nil {
				return err
			}
		}
		n, err := dst.Insert(ctx, dstName, batch)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", dstName, err)
		}
		res.Rows += n
		batch = batch[:0]
		return nil
	}

	for it.Next() {
		rec := it.Value()
		row := make(gdb.Record, len(fields))
		for i, f := range fields {
			v, _ := gdb.Lookup(rec, f.Name)
			row[f.Name] = v
			encoded[i] = gdb.CanonicalValue(f, v)
		}
		h.AddRow(encoded...)
		if snap != nil {
			if err := snap.Add(row); err != nil {
				return res, err
			}
		}
		batch = append(batch, row)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return res, fmt.Errorf("read %s: %w", srcName, err)
	}
	if err := flush(); err != nil {
		return res, err
	}

	sum, err := h.Sum()
	if err != nil {
		return res, err
	}
	res.Digest = sum.String()
	return res, nil
}
