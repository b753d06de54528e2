package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/leengari/flatdb/internal/config"
	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/domain/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestCreateHeaderLayout(t *testing.T) {
	s := newTestStore(t)

	header, err := s.Create("Users", []string{"Name", "Email", "Name", "ID"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := []string{"ID", "CreationTime", "Name", "Email"}
	if len(header) != len(want) {
		t.Fatalf("header = %v, want %v", header, want)
	}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("header[%d] = %s, want %s", i, header[i], want[i])
		}
	}
}

func TestCreateRejectsBadNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "bad-name", "bad name", "bad,name"} {
		if _, err := s.Create(name, nil); !errors.Is(err, dberr.ErrValidation) {
			t.Errorf("Create(%q): want validation error, got %v", name, err)
		}
	}

	if _, err := s.Create("ok", []string{"bad col"}); !errors.Is(err, dberr.ErrValidation) {
		t.Errorf("bad column name: want validation error, got %v", err)
	}
}

func TestCreateTwiceFailsAndPreservesContents(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("Users", []string{"Name"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := s.Insert("Users", record.Record{"Name": "John"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	before, err := os.ReadFile(filepath.Join(s.Dir(), "Users.tbl"))
	if err != nil {
		t.Fatalf("read table file: %v", err)
	}

	if _, err := s.Create("Users", []string{"Other"}); !errors.Is(err, dberr.ErrAlreadyExists) {
		t.Fatalf("second Create: want already-exists, got %v", err)
	}

	after, err := os.ReadFile(filepath.Join(s.Dir(), "Users.tbl"))
	if err != nil {
		t.Fatalf("read table file: %v", err)
	}
	if string(before) != string(after) {
		t.Error("failed Create changed the table file")
	}
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("Users", []string{"Name"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 1; i <= 5; i++ {
		rec, err := s.Insert("Users", record.Record{"Name": "u" + strconv.Itoa(i)})
		if err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
		if got := rec[record.ColumnID]; got != strconv.Itoa(i) {
			t.Errorf("insert %d: ID = %s, want %d", i, got, i)
		}
		if rec[record.ColumnCreationTime] == "" {
			t.Errorf("insert %d: CreationTime not assigned", i)
		}
	}
}

func TestInsertIgnoresCallerImplicitColumns(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("Users", []string{"Name"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rec, err := s.Insert("Users", record.Record{
		"Name":         "John",
		"ID":           "999",
		"CreationTime": "1999-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if rec[record.ColumnID] != "1" {
		t.Errorf("ID = %s, want 1 (caller value must be discarded)", rec[record.ColumnID])
	}
	if rec[record.ColumnCreationTime] == "1999-01-01T00:00:00Z" {
		t.Error("caller CreationTime was not discarded")
	}
}

func TestInsertRejections(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("Users", []string{"Name"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("missing table", func(t *testing.T) {
		if _, err := s.Insert("Nope", record.Record{"Name": "x"}); !errors.Is(err, dberr.ErrNotFound) {
			t.Errorf("want not-found, got %v", err)
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		if _, err := s.Insert("Users", record.Record{"Age": "3"}); !errors.Is(err, dberr.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("embedded delimiter", func(t *testing.T) {
		if _, err := s.Insert("Users", record.Record{"Name": "a,b"}); !errors.Is(err, dberr.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("embedded newline", func(t *testing.T) {
		if _, err := s.Insert("Users", record.Record{"Name": "a\nb"}); !errors.Is(err, dberr.ErrValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})
}

func TestInsertAbsentFieldWrittenEmpty(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("Users", []string{"Name", "Email"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Insert("Users", record.Record{"Name": "John"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rows, err := s.ReadAll("Users")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("row count = %d, want 1", len(rows))
	}
	if got, ok := rows[0]["Email"]; !ok || got != "" {
		t.Errorf("Email = %q (present=%v), want empty string", got, ok)
	}
}

func TestRowIterIsRestartable(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("Users", []string{"Name"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, n := range []string{"a", "b", "c"} {
		if _, err := s.Insert("Users", record.Record{"Name": n}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	for pass := 0; pass < 2; pass++ {
		it, err := s.Rows("Users")
		if err != nil {
			t.Fatalf("Rows failed: %v", err)
		}
		count := 0
		for it.Next() {
			count++
		}
		if err := it.Err(); err != nil {
			t.Fatalf("iteration error: %v", err)
		}
		it.Close()
		if count != 3 {
			t.Errorf("pass %d: count = %d, want 3", pass, count)
		}
	}
}

func TestRewriteReplacesBodyKeepsHeader(t *testing.T) {
	s := newTestStore(t)

	header, err := s.Create("Users", []string{"Name"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	rec, err := s.Insert("Users", record.Record{"Name": "old"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	updated := rec.Copy()
	updated["Name"] = "new"
	if err := s.Rewrite("Users", []record.Record{updated}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	gotHeader, err := s.Header("Users")
	if err != nil {
		t.Fatalf("Header failed: %v", err)
	}
	if len(gotHeader) != len(header) {
		t.Errorf("header changed: %v", gotHeader)
	}

	rows, err := s.ReadAll("Users")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["Name"] != "new" {
		t.Errorf("rows = %v, want single row with Name=new", rows)
	}
}

func TestListAndDescribe(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("B_table", []string{"X"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create("A_table", []string{"Y"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Insert("A_table", record.Record{"Y": "1"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 || names[0] != "A_table" || names[1] != "B_table" {
		t.Errorf("List = %v, want [A_table B_table]", names)
	}

	info, err := s.Describe("A_table")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if info.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", info.RowCount)
	}
	if len(info.Columns) != 3 {
		t.Errorf("Columns = %v, want ID, CreationTime, Y", info.Columns)
	}

	if _, err := s.Describe("Missing"); !errors.Is(err, dberr.ErrNotFound) {
		t.Errorf("Describe missing table: want not-found, got %v", err)
	}
}
