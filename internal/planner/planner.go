package planner

import (
	"log/slog"

	"github.com/leengari/flatdb/internal/domain/record"
	"github.com/leengari/flatdb/internal/index"
	"github.com/leengari/flatdb/internal/storage"
)

// Source is where a read scans from: an index snapshot when one
// matched, otherwise the table file itself.
type Source struct {
	// Index is the chosen index name, empty for a full table scan.
	Index string
	// Records is the snapshot to scan when Index is set.
	Records []record.Record
}

// IsIndexed reports whether the read is served from an index snapshot.
func (s Source) IsIndexed() bool { return s.Index != "" }

// Planner picks the scan source for a read request. The rule is
// deliberately simple: the first index whose (table, column) pair
// matches the queried table with the column present as a filter key
// wins; there is no cost-based selection among eligible indexes.
//
// An index-backed read can return rows already updated or deleted from
// the table, since snapshots only grow on insert until a reindex.
type Planner struct {
	indexes *index.Manager
	logger  *slog.Logger
}

// New creates a planner over the given index manager.
func New(indexes *index.Manager, logger *slog.Logger) *Planner {
	return &Planner{indexes: indexes, logger: logger}
}

// ChooseSource resolves the scan source for a filtered read of table.
func (p *Planner) ChooseSource(store *storage.Store, table string, f record.Filter) (Source, error) {
	if len(f) > 0 {
		name, idx, found, err := p.indexes.Find(table, f)
		if err != nil {
			return Source{}, err
		}
		if found {
			p.logger.Debug("query served from index snapshot",
				slog.String("table", table),
				slog.String("index", name),
				slog.String("column", idx.Column),
				slog.Int("snapshot_rows", len(idx.Records)),
			)
			return Source{Index: name, Records: idx.Records}, nil
		}
	}

	rows, err := store.ReadAll(table)
	if err != nil {
		return Source{}, err
	}
	return Source{Records: rows}, nil
}
