package storage

import (
	"fmt"
	"strings"

	"github.com/leengari/flatdb/internal/domain/record"
)

// Delimiter separates values within a table-file line. The format has
// no quoting, so the delimiter (and line breaks) may never appear
// inside a value; insert and update reject such values up front.
const Delimiter = ","

// ValidateValue rejects values the unquoted line format cannot carry.
func ValidateValue(column, value string) error {
	if strings.Contains(value, Delimiter) {
		return fmt.Errorf("value for column %s contains the field delimiter %q", column, Delimiter)
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("value for column %s contains a line break", column)
	}
	return nil
}

// encodeLine renders one record in header order. Columns the record
// does not carry become empty values.
func encodeLine(header []string, rec record.Record) string {
	values := make([]string, len(header))
	for i, col := range header {
		values[i] = rec[col]
	}
	return strings.Join(values, Delimiter)
}

// decodeLine parses one body line against the header.
func decodeLine(header []string, line string) (record.Record, error) {
	values := strings.Split(line, Delimiter)
	if len(values) != len(header) {
		return nil, fmt.Errorf("row has %d values, header has %d columns", len(values), len(header))
	}

	rec := make(record.Record, len(header))
	for i, col := range header {
		rec[col] = values[i]
	}
	return rec, nil
}
