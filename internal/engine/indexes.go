package engine

import (
	"errors"
	"log/slog"

	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/index"
)

// CreateIndex creates a named index over one column of a table, with
// an empty snapshot. Subsequent inserts on the table grow the
// snapshot; updates and deletes do not touch it.
func (e *Engine) CreateIndex(table, column, name string) error {
	const op = "create_index"
	opID := e.begin(op, table)

	lk, err := e.acquire(op, table)
	if err != nil {
		return e.fail(op, opID, table, err)
	}
	defer lk.Release()

	if err := e.indexes.Create(table, column, name); err != nil {
		return e.fail(op, opID, table, err)
	}

	e.finish(op, opID, table, name)
	return nil
}

// ListIndexes enumerates all indexes with their metadata.
func (e *Engine) ListIndexes() ([]index.Info, error) {
	const op = "list_indexes"
	opID := e.begin(op, "")

	infos, err := e.indexes.List()
	if err != nil {
		return nil, e.fail(op, opID, "", err)
	}

	e.finish(op, opID, "", len(infos))
	return infos, nil
}

// Reindex replaces the index's snapshot wholesale with the table's
// current contents, discarding any stale rows the snapshot carried.
func (e *Engine) Reindex(name string) error {
	const op = "reindex"
	opID := e.begin(op, "")

	table, err := e.indexes.TableOf(name)
	if err != nil {
		return e.fail(op, opID, "", err)
	}

	lk, err := e.acquire(op, table)
	if err != nil {
		return e.fail(op, opID, table, err)
	}
	defer lk.Release()

	if err := e.indexes.Reindex(name); err != nil {
		return e.fail(op, opID, table, err)
	}

	e.finish(op, opID, table, name)
	return nil
}

// DeleteIndex removes the persisted index. A broken index file (bad
// metadata) is still removable; only a missing one is a failure.
func (e *Engine) DeleteIndex(name string) error {
	const op = "delete_index"
	opID := e.begin(op, "")

	table, err := e.indexes.TableOf(name)
	switch {
	case err == nil:
		lk, lockErr := e.acquire(op, table)
		if lockErr != nil {
			return e.fail(op, opID, table, lockErr)
		}
		defer lk.Release()
	case errors.Is(err, dberr.ErrValidation):
		// Unreadable metadata: no table to lock, delete the file anyway.
		e.logger.Warn("deleting index with malformed metadata",
			slog.String("op_id", opID),
			slog.String("index", name),
		)
	default:
		return e.fail(op, opID, "", err)
	}

	if err := e.indexes.Delete(name); err != nil {
		return e.fail(op, opID, table, err)
	}

	e.finish(op, opID, table, name)
	return nil
}
