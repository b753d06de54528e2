package record

// Implicit columns every table carries. They are always the first two
// header columns and are assigned by the store, never by callers.
const (
	ColumnID           = "ID"
	ColumnCreationTime = "CreationTime"
)

// ImplicitColumns returns the implicit column names in header order.
func ImplicitColumns() []string {
	return []string{ColumnID, ColumnCreationTime}
}

// IsImplicit reports whether name is one of the store-assigned columns.
func IsImplicit(name string) bool {
	return name == ColumnID || name == ColumnCreationTime
}

// Record represents a single table row.
// Key = column name, Value = cell value. Column ordering is owned by
// the table header, not by the record itself.
type Record map[string]string

// Copy creates a copy of the record to prevent mutation of shared rows.
func (r Record) Copy() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Filter is a query predicate: column name → expected value.
// Key order is irrelevant; an empty or nil filter matches everything.
type Filter map[string]string
