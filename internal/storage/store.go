package storage

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leengari/flatdb/internal/config"
	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/domain/record"
)

// tableFileExt is the suffix of every table file in the data directory.
const tableFileExt = ".tbl"

// nameRE constrains table and column names; anything outside this set
// could collide with the file format or the filesystem.
var nameRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Store owns the on-disk representation of tables: header layout, ID
// allocation, appends, scans and full rewrites.
type Store struct {
	dir    string
	logger *slog.Logger
}

// TableInfo describes one table for ListTables/DescribeTable.
type TableInfo struct {
	Name     string
	Columns  []string
	RowCount int
}

// New creates a Store rooted at the configured data directory,
// creating the directory if needed.
func New(cfg config.Config, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, dberr.NewIO("open_store", "", err)
	}
	return &Store{dir: cfg.DataDir, logger: logger}, nil
}

// Dir returns the data directory the store operates on.
func (s *Store) Dir() string { return s.dir }

func (s *Store) tablePath(name string) string {
	return filepath.Join(s.dir, name+tableFileExt)
}

// Exists reports whether a table's backing file is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.tablePath(name))
	return err == nil
}

// ValidName reports whether name is a legal table/column name.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

// Create writes a new table file containing only the header line:
// the implicit columns followed by the deduplicated user columns.
// The final header is returned.
func (s *Store) Create(name string, columns []string) ([]string, error) {
	const op = "create_table"

	if !ValidName(name) {
		return nil, dberr.NewValidation(op, "table name must be alphanumeric or underscore: "+name)
	}
	for _, col := range columns {
		if !ValidName(col) {
			e := dberr.NewValidation(op, "column name must be alphanumeric or underscore: "+col)
			e.Table = name
			e.Column = col
			return nil, e
		}
	}
	if s.Exists(name) {
		return nil, dberr.NewAlreadyExists(op, name, "table file already exists")
	}

	// Implicit columns first, then user columns with duplicates
	// (against the implicit set and among themselves) dropped.
	header := record.ImplicitColumns()
	seen := map[string]bool{record.ColumnID: true, record.ColumnCreationTime: true}
	for _, col := range columns {
		if seen[col] {
			s.logger.Warn("duplicate column dropped from table definition",
				slog.String("table", name),
				slog.String("column", col),
			)
			continue
		}
		seen[col] = true
		header = append(header, col)
	}

	line := strings.Join(header, Delimiter) + "\n"
	if err := os.WriteFile(s.tablePath(name), []byte(line), 0644); err != nil {
		return nil, dberr.NewIO(op, name, err)
	}

	s.logger.Info("table created",
		slog.String("table", name),
		slog.Int("columns", len(header)),
	)
	return header, nil
}

// Header reads a table's column list in file order.
func (s *Store) Header(name string) ([]string, error) {
	const op = "describe_table"

	f, err := os.Open(s.tablePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dberr.NewNotFound(op, name, "table does not exist")
		}
		return nil, dberr.NewIO(op, name, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, dberr.NewIO(op, name, err)
		}
		e := dberr.NewValidation(op, "table file has no header line")
		e.Table = name
		return nil, e
	}
	return strings.Split(sc.Text(), Delimiter), nil
}

// Insert assigns ID and CreationTime, renders fields in header order
// and appends one line to the table file. Caller-supplied values for
// the implicit columns are discarded with a warning; unknown columns
// are rejected. The fully assigned record is returned.
func (s *Store) Insert(table string, fields record.Record) (record.Record, error) {
	const op = "insert"

	header, err := s.Header(table)
	if err != nil {
		if e, ok := err.(*dberr.Error); ok {
			e.Op = op
		}
		return nil, err
	}

	known := make(map[string]bool, len(header))
	for _, col := range header {
		known[col] = true
	}

	rec := make(record.Record, len(header))
	for col, val := range fields {
		if record.IsImplicit(col) {
			s.logger.Warn("caller-supplied value for implicit column discarded",
				slog.String("table", table),
				slog.String("column", col),
				slog.String("value", val),
			)
			continue
		}
		if !known[col] {
			e := dberr.NewValidation(op, "unknown column: "+col)
			e.Table = table
			e.Column = col
			return nil, e
		}
		if err := ValidateValue(col, val); err != nil {
			e := dberr.NewValidation(op, err.Error())
			e.Table = table
			e.Column = col
			return nil, e
		}
		rec[col] = val
	}

	// newID = 1 + max(existing IDs); a full scan per insert, by the
	// format's nature there is nowhere else the high-water mark lives.
	maxID, err := s.maxID(table, header)
	if err != nil {
		return nil, err
	}
	rec[record.ColumnID] = strconv.FormatInt(maxID+1, 10)
	rec[record.ColumnCreationTime] = time.Now().UTC().Format(time.RFC3339)

	f, err := os.OpenFile(s.tablePath(table), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, dberr.NewIO(op, table, err)
	}
	defer f.Close()

	if _, err := f.WriteString(encodeLine(header, rec) + "\n"); err != nil {
		return nil, dberr.NewIO(op, table, err)
	}

	s.logger.Debug("record appended",
		slog.String("table", table),
		slog.String("id", rec[record.ColumnID]),
	)
	return rec, nil
}

// maxID scans every row for the highest assigned ID (0 when empty).
func (s *Store) maxID(table string, header []string) (int64, error) {
	it, err := s.Rows(table)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var max int64
	for it.Next() {
		raw := it.Record()[record.ColumnID]
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.logger.Warn("row with unparsable ID skipped during ID allocation",
				slog.String("table", table),
				slog.String("id", raw),
			)
			continue
		}
		if id > max {
			max = id
		}
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return max, nil
}

// ReadAll materializes every row of the table in file order.
func (s *Store) ReadAll(table string) ([]record.Record, error) {
	it, err := s.Rows(table)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []record.Record
	for it.Next() {
		rows = append(rows, it.Record())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Rewrite replaces the table body with rows, preserving the header.
// The new contents go to a temp file first and are renamed over the
// original, so a crash never leaves a half-written table.
func (s *Store) Rewrite(table string, rows []record.Record) error {
	const op = "rewrite"

	header, err := s.Header(table)
	if err != nil {
		if e, ok := err.(*dberr.Error); ok {
			e.Op = op
		}
		return err
	}

	for _, rec := range rows {
		for col, val := range rec {
			if err := ValidateValue(col, val); err != nil {
				e := dberr.NewValidation(op, err.Error())
				e.Table = table
				e.Column = col
				return e
			}
		}
	}

	path := s.tablePath(table)
	tmpPath := path + ".tmp"

	var b strings.Builder
	b.WriteString(strings.Join(header, Delimiter) + "\n")
	for _, rec := range rows {
		b.WriteString(encodeLine(header, rec) + "\n")
	}

	if err := os.WriteFile(tmpPath, []byte(b.String()), 0644); err != nil {
		return dberr.NewIO(op, table, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return dberr.NewIO(op, table, err)
	}

	s.logger.Info("table rewritten",
		slog.String("table", table),
		slog.Int("row_count", len(rows)),
	)
	return nil
}

// List enumerates all table names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, dberr.NewIO("list_tables", "", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), tableFileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), tableFileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Describe returns a table's columns and current row count.
func (s *Store) Describe(name string) (TableInfo, error) {
	header, err := s.Header(name)
	if err != nil {
		return TableInfo{}, err
	}

	rows, err := s.ReadAll(name)
	if err != nil {
		return TableInfo{}, err
	}

	return TableInfo{Name: name, Columns: header, RowCount: len(rows)}, nil
}
