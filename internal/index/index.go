package index

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leengari/flatdb/internal/config"
	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/domain/record"
	"github.com/leengari/flatdb/internal/storage"
)

// FormatVersion is bumped whenever the on-disk index layout changes,
// so an old engine fails loudly on a new file instead of misparsing.
const FormatVersion = 1

// indexFileExt is the suffix of every index file.
const indexFileExt = ".idx"

// File is the persisted form of one index: metadata plus a snapshot of
// full record copies as of the last create/reindex, grown on insert.
// The snapshot is a cache, not a live view; updates and deletes on the
// table do not touch it until an explicit reindex.
type File struct {
	Version   int             `json:"version"`
	Table     string          `json:"table"`
	Column    string          `json:"column"`
	CreatedOn time.Time       `json:"created_on"`
	Records   []record.Record `json:"records"`
}

// Info summarizes one index for ListIndexes.
type Info struct {
	Name      string
	Table     string
	Column    string
	CreatedOn time.Time
	RowCount  int
}

// Manager owns index lifecycle: create, append-on-insert, reindex,
// delete. It depends on the record store for rebuilds.
type Manager struct {
	dir    string
	store  *storage.Store
	logger *slog.Logger
}

// NewManager creates the index manager, backing files live in an
// indexes/ subdirectory of the data dir.
func NewManager(cfg config.Config, store *storage.Store, logger *slog.Logger) (*Manager, error) {
	dir := filepath.Join(cfg.DataDir, "indexes")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberr.NewIO("open_indexes", "", err)
	}
	return &Manager{dir: dir, store: store, logger: logger}, nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name+indexFileExt)
}

// Exists reports whether an index file with the given name is present.
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.path(name))
	return err == nil
}

// Create persists a new index with empty snapshot. Fails AlreadyExists
// on a name collision and Validation when the column is not part of
// the target table's header.
func (m *Manager) Create(table, column, name string) error {
	const op = "create_index"

	if !storage.ValidName(name) {
		e := dberr.NewValidation(op, "index name must be alphanumeric or underscore: "+name)
		e.Index = name
		return e
	}
	if m.Exists(name) {
		e := &dberr.Error{Kind: dberr.KindAlreadyExists, Op: op, Index: name, Reason: "index name already taken"}
		return e
	}

	header, err := m.store.Header(table)
	if err != nil {
		if e, ok := err.(*dberr.Error); ok {
			e.Op = op
			e.Index = name
		}
		return err
	}
	found := false
	for _, col := range header {
		if col == column {
			found = true
			break
		}
	}
	if !found {
		e := dberr.NewValidation(op, "column is not part of the table: "+column)
		e.Table = table
		e.Column = column
		e.Index = name
		return e
	}

	f := &File{
		Version:   FormatVersion,
		Table:     table,
		Column:    column,
		CreatedOn: time.Now().UTC(),
		Records:   []record.Record{},
	}
	if err := m.persist(name, f); err != nil {
		return err
	}

	m.logger.Info("index created",
		slog.String("index", name),
		slog.String("table", table),
		slog.String("column", column),
	)
	return nil
}

// OnInsert appends a copy of the just-inserted record to every index
// targeting its table and persists each. The table append is already
// committed when this runs; a failure here is reported to the caller
// but never rolls the insert back, leaving a divergence a reindex
// repairs.
func (m *Manager) OnInsert(table string, rec record.Record) error {
	const op = "insert"

	names, err := m.names()
	if err != nil {
		return err
	}

	for _, name := range names {
		f, err := m.load(op, name)
		if err != nil {
			// A broken index file must not fail inserts, least of all
			// on tables it never covered. It stays broken until a
			// delete or a repaired file; reads of it still fail loudly.
			if errors.Is(err, dberr.ErrValidation) {
				m.logger.Warn("skipping index with malformed metadata during insert",
					slog.String("index", name),
					slog.String("table", table),
					slog.Any("error", err),
				)
				continue
			}
			return err
		}
		if f.Table != table {
			continue
		}

		f.Records = append(f.Records, rec.Copy())
		if err := m.persist(name, f); err != nil {
			return err
		}

		m.logger.Debug("index snapshot appended",
			slog.String("index", name),
			slog.String("table", table),
			slog.String("id", rec[record.ColumnID]),
		)
	}
	return nil
}

// Reindex replaces the snapshot wholesale with the table's current
// contents. Records that were inserted and since deleted from the
// table drop out. CreatedOn is preserved; it documents index creation,
// not the last rebuild.
func (m *Manager) Reindex(name string) error {
	const op = "reindex"

	f, err := m.load(op, name)
	if err != nil {
		return err
	}

	if !m.store.Exists(f.Table) {
		e := dberr.NewNotFound(op, f.Table, "indexed table does not exist")
		e.Index = name
		return e
	}

	rows, err := m.store.ReadAll(f.Table)
	if err != nil {
		if e, ok := err.(*dberr.Error); ok {
			e.Op = op
			e.Index = name
		}
		return err
	}

	snapshot := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		snapshot = append(snapshot, row.Copy())
	}
	f.Records = snapshot

	if err := m.persist(name, f); err != nil {
		return err
	}

	m.logger.Info("index rebuilt",
		slog.String("index", name),
		slog.String("table", f.Table),
		slog.Int("row_count", len(f.Records)),
	)
	return nil
}

// Delete removes the persisted index. Terminal; fails NotFound when
// the index does not exist.
func (m *Manager) Delete(name string) error {
	const op = "delete_index"

	if !m.Exists(name) {
		e := dberr.NewNotFound(op, "", "index does not exist")
		e.Index = name
		return e
	}
	if err := os.Remove(m.path(name)); err != nil {
		return dberr.NewIO(op, "", err)
	}

	m.logger.Info("index deleted", slog.String("index", name))
	return nil
}

// List enumerates all indexes with their metadata, sorted by name.
func (m *Manager) List() ([]Info, error) {
	const op = "list_indexes"

	names, err := m.names()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		f, err := m.load(op, name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{
			Name:      name,
			Table:     f.Table,
			Column:    f.Column,
			CreatedOn: f.CreatedOn,
			RowCount:  len(f.Records),
		})
	}
	return infos, nil
}

// Find returns the first index (by name order) whose table matches and
// whose column appears as a key of the filter. The bool reports
// whether one was found.
func (m *Manager) Find(table string, f record.Filter) (string, *File, bool, error) {
	const op = "query"

	names, err := m.names()
	if err != nil {
		return "", nil, false, err
	}

	for _, name := range names {
		idx, err := m.load(op, name)
		if err != nil {
			return "", nil, false, err
		}
		if idx.Table != table {
			continue
		}
		if _, ok := f[idx.Column]; !ok {
			continue
		}
		return name, idx, true, nil
	}
	return "", nil, false, nil
}

// TableOf resolves which table an index targets, loading and
// validating its metadata.
func (m *Manager) TableOf(name string) (string, error) {
	f, err := m.load("describe_index", name)
	if err != nil {
		return "", err
	}
	return f.Table, nil
}

func (m *Manager) names() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, dberr.NewIO("list_indexes", "", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), indexFileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), indexFileExt))
	}
	sort.Strings(names)
	return names, nil
}

// load reads and validates one index file. Malformed JSON, a missing
// table/column field or a version mismatch are Validation errors.
func (m *Manager) load(op, name string) (*File, error) {
	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			e := dberr.NewNotFound(op, "", "index does not exist")
			e.Index = name
			return nil, e
		}
		return nil, dberr.NewIO(op, "", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		e := dberr.NewValidation(op, "malformed index metadata: "+err.Error())
		e.Index = name
		return nil, e
	}
	if f.Version != FormatVersion {
		e := dberr.NewValidation(op, "unsupported index format version")
		e.Index = name
		return nil, e
	}
	if f.Table == "" || f.Column == "" {
		e := dberr.NewValidation(op, "index metadata missing table or column")
		e.Index = name
		return nil, e
	}
	return &f, nil
}

// persist writes the index via temp file + atomic rename.
func (m *Manager) persist(name string, f *File) error {
	const op = "persist_index"

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		e := dberr.NewIO(op, f.Table, err)
		e.Index = name
		return e
	}

	path := m.path(name)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		e := dberr.NewIO(op, f.Table, err)
		e.Index = name
		return e
	}
	if err := os.Rename(tmpPath, path); err != nil {
		e := dberr.NewIO(op, f.Table, err)
		e.Index = name
		return e
	}
	return nil
}
