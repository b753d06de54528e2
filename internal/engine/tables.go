package engine

import (
	"log/slog"

	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/storage"
)

// CreateTable creates a new table whose header is the implicit columns
// followed by the deduplicated user columns. The final column order,
// fixed for the table's lifetime, is returned.
func (e *Engine) CreateTable(name string, columns []string) ([]string, error) {
	const op = "create_table"
	opID := e.begin(op, name)

	if !storage.ValidName(name) {
		return nil, e.fail(op, opID, name,
			dberr.NewValidation(op, "table name must be alphanumeric or underscore: "+name))
	}

	lk, err := e.acquire(op, name)
	if err != nil {
		return nil, e.fail(op, opID, name, err)
	}
	defer lk.Release()

	header, err := e.store.Create(name, columns)
	if err != nil {
		return nil, e.fail(op, opID, name, err)
	}

	e.logger.Info("table created",
		slog.String("op_id", opID),
		slog.String("table", name),
		slog.Any("columns", header),
	)
	e.finish(op, opID, name, header)
	return header, nil
}

// ListTables enumerates all table names, sorted.
func (e *Engine) ListTables() ([]string, error) {
	const op = "list_tables"
	opID := e.begin(op, "")

	names, err := e.store.List()
	if err != nil {
		return nil, e.fail(op, opID, "", err)
	}

	e.finish(op, opID, "", len(names))
	return names, nil
}

// DescribeTable returns a table's column order and current row count.
func (e *Engine) DescribeTable(name string) (storage.TableInfo, error) {
	const op = "describe_table"
	opID := e.begin(op, name)

	info, err := e.store.Describe(name)
	if err != nil {
		return storage.TableInfo{}, e.fail(op, opID, name, err)
	}

	e.finish(op, opID, name, info.RowCount)
	return info, nil
}
