package storage

import (
	"bufio"
	"os"
	"strings"

	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/domain/record"
)

// RowIter streams a table's body rows in file order. It reads the file
// lazily; calling Store.Rows again restarts from the beginning.
//
//	it, err := store.Rows("Users")
//	...
//	defer it.Close()
//	for it.Next() {
//		rec := it.Record()
//	}
//	if err := it.Err(); err != nil { ... }
type RowIter struct {
	table  string
	file   *os.File
	sc     *bufio.Scanner
	header []string
	cur    record.Record
	err    error
}

// Rows opens a streaming iterator over the table's records.
func (s *Store) Rows(table string) (*RowIter, error) {
	const op = "read"

	f, err := os.Open(s.tablePath(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dberr.NewNotFound(op, table, "table does not exist")
		}
		return nil, dberr.NewIO(op, table, err)
	}

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if scanErr := sc.Err(); scanErr != nil {
			f.Close()
			return nil, dberr.NewIO(op, table, scanErr)
		}
		f.Close()
		e := dberr.NewValidation(op, "table file has no header line")
		e.Table = table
		return nil, e
	}

	return &RowIter{
		table:  table,
		file:   f,
		sc:     sc,
		header: strings.Split(sc.Text(), Delimiter),
	}, nil
}

// Header returns the column list of the table being iterated.
func (it *RowIter) Header() []string { return it.header }

// Next advances to the next record, skipping blank lines. It returns
// false at end of input or on the first error (see Err).
func (it *RowIter) Next() bool {
	if it.err != nil {
		return false
	}
	for it.sc.Scan() {
		line := it.sc.Text()
		if line == "" {
			continue
		}
		rec, err := decodeLine(it.header, line)
		if err != nil {
			e := dberr.NewValidation("read", err.Error())
			e.Table = it.table
			it.err = e
			return false
		}
		it.cur = rec
		return true
	}
	if err := it.sc.Err(); err != nil {
		it.err = dberr.NewIO("read", it.table, err)
	}
	return false
}

// Record returns the row produced by the last successful Next.
func (it *RowIter) Record() record.Record { return it.cur }

// Err reports the first error hit while iterating, if any.
func (it *RowIter) Err() error { return it.err }

// Close releases the underlying file. Safe to call more than once.
func (it *RowIter) Close() error {
	if it.file == nil {
		return nil
	}
	err := it.file.Close()
	it.file = nil
	return err
}
