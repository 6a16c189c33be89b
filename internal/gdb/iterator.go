package gdb

// SliceIterator iterates over rows already held in memory.
type SliceIterator struct {
	rows []Record
	pos  int
}

// NewSliceIterator wraps rows in an Iterator.
func NewSliceIterator(rows []Record) *SliceIterator {
	return &SliceIterator{rows: rows, pos: -1}
}

func (it *SliceIterator) Next() bool {
	if it.pos+1 >= len(it.rows) {
		it.pos = len(it.rows)
		return false
	}
	it.pos++
	return true
}

func (it *SliceIterator) Value() Record {
	if it.pos < 0 || it.pos >= len(it.rows) {
		return nil
	}
	return it.rows[it.pos]
}

func (it *SliceIterator) Err() error   { return nil }
func (it *SliceIterator) Close() error { return nil }

// Collect drains an iterator into a slice and closes it.
func Collect(it Iterator[Record]) ([]Record, error) {
	defer it.Close()
	var rows []Record
	for it.Next() {
		rows = append(rows, it.Value())
	}
	return rows, it.Err()
}
