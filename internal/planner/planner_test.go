package planner

import (
	"io"
	"log/slog"
	"testing"

	"github.com/leengari/flatdb/internal/config"
	"github.com/leengari/flatdb/internal/domain/record"
	"github.com/leengari/flatdb/internal/index"
	"github.com/leengari/flatdb/internal/storage"
)

func newTestPlanner(t *testing.T) (*Planner, *storage.Store, *index.Manager) {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.New(cfg, logger)
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	indexes, err := index.NewManager(cfg, store, logger)
	if err != nil {
		t.Fatalf("index.NewManager failed: %v", err)
	}
	return New(indexes, logger), store, indexes
}

func TestChooseSourcePrefersMatchingIndex(t *testing.T) {
	p, store, indexes := newTestPlanner(t)

	if _, err := store.Create("Users", []string{"Name", "Email"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := indexes.Create("Users", "Name", "users_by_name"); err != nil {
		t.Fatalf("Create index failed: %v", err)
	}
	rec, err := store.Insert("Users", record.Record{"Name": "John"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := indexes.OnInsert("Users", rec); err != nil {
		t.Fatalf("OnInsert failed: %v", err)
	}

	t.Run("filter contains indexed column", func(t *testing.T) {
		src, err := p.ChooseSource(store, "Users", record.Filter{"Name": "John"})
		if err != nil {
			t.Fatalf("ChooseSource failed: %v", err)
		}
		if !src.IsIndexed() || src.Index != "users_by_name" {
			t.Errorf("source = %+v, want index users_by_name", src)
		}
		if len(src.Records) != 1 {
			t.Errorf("snapshot rows = %d, want 1", len(src.Records))
		}
	})

	t.Run("filter without indexed column scans table", func(t *testing.T) {
		src, err := p.ChooseSource(store, "Users", record.Filter{"Email": "x"})
		if err != nil {
			t.Fatalf("ChooseSource failed: %v", err)
		}
		if src.IsIndexed() {
			t.Errorf("source = %+v, want table scan", src)
		}
	})

	t.Run("empty filter scans table", func(t *testing.T) {
		src, err := p.ChooseSource(store, "Users", nil)
		if err != nil {
			t.Fatalf("ChooseSource failed: %v", err)
		}
		if src.IsIndexed() {
			t.Errorf("source = %+v, want table scan", src)
		}
	})

	t.Run("other table ignores the index", func(t *testing.T) {
		if _, err := store.Create("Orders", []string{"Name"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		src, err := p.ChooseSource(store, "Orders", record.Filter{"Name": "John"})
		if err != nil {
			t.Fatalf("ChooseSource failed: %v", err)
		}
		if src.IsIndexed() {
			t.Errorf("source = %+v, want table scan", src)
		}
	})
}
