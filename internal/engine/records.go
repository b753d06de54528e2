package engine

import (
	"log/slog"

	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/domain/record"
	"github.com/leengari/flatdb/internal/filter"
	"github.com/leengari/flatdb/internal/storage"
)

// Insert appends a new record to the table and grows every index
// snapshot targeting it. ID and CreationTime are assigned here;
// caller-supplied values for them are discarded with a warning.
//
// The table append commits first. If an index update fails afterwards
// the committed record is still returned alongside the error; the
// table and its indexes then diverge until a reindex.
func (e *Engine) Insert(table string, fields record.Record) (record.Record, error) {
	const op = "insert"
	opID := e.begin(op, table)

	lk, err := e.acquire(op, table)
	if err != nil {
		return nil, e.fail(op, opID, table, err)
	}
	defer lk.Release()

	rec, err := e.store.Insert(table, fields)
	if err != nil {
		return nil, e.fail(op, opID, table, err)
	}

	if err := e.indexes.OnInsert(table, rec); err != nil {
		// The record is committed; only the index append failed.
		return rec, e.fail(op, opID, table, err)
	}

	e.logger.Info("record inserted",
		slog.String("op_id", opID),
		slog.String("table", table),
		slog.String("id", rec[record.ColumnID]),
	)
	e.finish(op, opID, table, rec[record.ColumnID])
	return rec, nil
}

// Query returns every record of the table satisfying the filter. An
// empty filter returns all records. The scan source is the first index
// matching (table, filter column) if one exists, otherwise the table
// file; an index-backed result can be stale with respect to updates
// and deletes until that index is rebuilt.
func (e *Engine) Query(table string, f record.Filter, cmp filter.Comparison, logic filter.Logical) ([]record.Record, error) {
	const op = "query"
	opID := e.begin(op, table)

	if err := filter.ValidateComparison(cmp); err != nil {
		return nil, e.fail(op, opID, table, err)
	}
	if err := filter.ValidateLogical(logic); err != nil {
		return nil, e.fail(op, opID, table, err)
	}
	if !e.store.Exists(table) {
		return nil, e.fail(op, opID, table, dberr.NewNotFound(op, table, "table does not exist"))
	}

	source, err := e.planner.ChooseSource(e.store, table, f)
	if err != nil {
		return nil, e.fail(op, opID, table, err)
	}

	var matches []record.Record
	for _, rec := range source.Records {
		ok, err := filter.Evaluate(rec, f, cmp, logic)
		if err != nil {
			return nil, e.fail(op, opID, table, err)
		}
		if ok {
			matches = append(matches, rec)
		}
	}

	e.logger.Debug("query evaluated",
		slog.String("op_id", opID),
		slog.String("table", table),
		slog.String("source_index", source.Index),
		slog.Int("matched", len(matches)),
	)
	e.finish(op, opID, table, len(matches))
	return matches, nil
}

// Update rewrites every record matching the filter (equals, AND) with
// the given new values. Zero matches is a NoMatch failure and leaves
// the table file untouched. ID and CreationTime are preserved unless
// newValues targets them explicitly.
func (e *Engine) Update(table string, f record.Filter, newValues record.Record) (int, error) {
	const op = "update"
	opID := e.begin(op, table)

	lk, err := e.acquire(op, table)
	if err != nil {
		return 0, e.fail(op, opID, table, err)
	}
	defer lk.Release()

	header, err := e.store.Header(table)
	if err != nil {
		return 0, e.fail(op, opID, table, err)
	}
	if err := validateAssignments(op, table, header, newValues); err != nil {
		return 0, e.fail(op, opID, table, err)
	}

	rows, err := e.store.ReadAll(table)
	if err != nil {
		return 0, e.fail(op, opID, table, err)
	}

	matched := 0
	for i, rec := range rows {
		ok, err := filter.Evaluate(rec, f, filter.CompareEquals, filter.LogicalAnd)
		if err != nil {
			return 0, e.fail(op, opID, table, err)
		}
		if !ok {
			continue
		}

		updated := rec.Copy()
		for col, val := range newValues {
			updated[col] = val
		}
		rows[i] = updated
		matched++
	}

	if matched == 0 {
		return 0, e.fail(op, opID, table, dberr.NewNoMatch(op, table))
	}

	if err := e.store.Rewrite(table, rows); err != nil {
		return 0, e.fail(op, opID, table, err)
	}

	e.logger.Info("records updated",
		slog.String("op_id", opID),
		slog.String("table", table),
		slog.Int("matched", matched),
	)
	e.finish(op, opID, table, matched)
	return matched, nil
}

// Delete removes every record matching the filter (equals, AND),
// preserving the relative order of the remaining rows. Zero matches is
// a NoMatch failure and leaves the table file untouched. Deleted IDs
// are never reused; allocation stays monotonic over the survivors.
func (e *Engine) Delete(table string, f record.Filter) (int, error) {
	const op = "delete"
	opID := e.begin(op, table)

	lk, err := e.acquire(op, table)
	if err != nil {
		return 0, e.fail(op, opID, table, err)
	}
	defer lk.Release()

	rows, err := e.store.ReadAll(table)
	if err != nil {
		return 0, e.fail(op, opID, table, err)
	}

	survivors := make([]record.Record, 0, len(rows))
	matched := 0
	for _, rec := range rows {
		ok, err := filter.Evaluate(rec, f, filter.CompareEquals, filter.LogicalAnd)
		if err != nil {
			return 0, e.fail(op, opID, table, err)
		}
		if ok {
			matched++
			continue
		}
		survivors = append(survivors, rec)
	}

	if matched == 0 {
		return 0, e.fail(op, opID, table, dberr.NewNoMatch(op, table))
	}

	if err := e.store.Rewrite(table, survivors); err != nil {
		return 0, e.fail(op, opID, table, err)
	}

	e.logger.Info("records deleted",
		slog.String("op_id", opID),
		slog.String("table", table),
		slog.Int("matched", matched),
	)
	e.finish(op, opID, table, matched)
	return matched, nil
}

// validateAssignments rejects unknown columns and unstorable values in
// an update's new-value set. The implicit columns are legal targets
// here, unlike on insert, but only when named explicitly.
func validateAssignments(op, table string, header []string, values record.Record) error {
	known := make(map[string]bool, len(header))
	for _, col := range header {
		known[col] = true
	}

	for col, val := range values {
		if !known[col] {
			e := dberr.NewValidation(op, "unknown column: "+col)
			e.Table = table
			e.Column = col
			return e
		}
		if err := storage.ValidateValue(col, val); err != nil {
			e := dberr.NewValidation(op, err.Error())
			e.Table = table
			e.Column = col
			return e
		}
	}
	return nil
}
