package filter

import (
	"strings"

	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/domain/record"
)

// Comparison selects how every filter value is tested against the
// record's value. The operator applies to all filter keys of one call.
type Comparison string

const (
	CompareEquals     Comparison = "equals"
	CompareContains   Comparison = "contains"
	CompareStartsWith Comparison = "startswith"
	CompareEndsWith   Comparison = "endswith"
)

// Logical combines the per-key results of a multi-key filter.
type Logical string

const (
	LogicalAnd Logical = "and"
	LogicalOr  Logical = "or"
)

// ValidateComparison rejects unsupported comparison operators.
// An unknown operator is a hard failure, never silently equals.
func ValidateComparison(cmp Comparison) error {
	switch cmp {
	case CompareEquals, CompareContains, CompareStartsWith, CompareEndsWith:
		return nil
	default:
		return dberr.NewValidation("filter", "unsupported comparison operator: "+string(cmp))
	}
}

// ValidateLogical rejects unsupported logical operators.
func ValidateLogical(logic Logical) error {
	switch logic {
	case LogicalAnd, LogicalOr:
		return nil
	default:
		return dberr.NewValidation("filter", "unsupported logical operator: "+string(logic))
	}
}

// compare applies one comparison. All tests are case-sensitive ordinal
// string operations so results are deterministic across locales.
func compare(value, expected string, cmp Comparison) (bool, error) {
	switch cmp {
	case CompareEquals:
		return value == expected, nil
	case CompareContains:
		return strings.Contains(value, expected), nil
	case CompareStartsWith:
		return strings.HasPrefix(value, expected), nil
	case CompareEndsWith:
		return strings.HasSuffix(value, expected), nil
	default:
		return false, dberr.NewValidation("filter", "unsupported comparison operator: "+string(cmp))
	}
}

// Evaluate reports whether rec satisfies the filter.
//
// An empty filter matches every record. A filter key naming a column
// the record does not carry is skipped: it neither fails an AND nor
// satisfies an OR. AND short-circuits on the first failing key, OR on
// the first succeeding one.
func Evaluate(rec record.Record, f record.Filter, cmp Comparison, logic Logical) (bool, error) {
	if err := ValidateComparison(cmp); err != nil {
		return false, err
	}
	if err := ValidateLogical(logic); err != nil {
		return false, err
	}

	if len(f) == 0 {
		return true, nil
	}

	for col, expected := range f {
		value, exists := rec[col]
		if !exists {
			continue
		}

		ok, err := compare(value, expected, cmp)
		if err != nil {
			return false, err
		}

		if logic == LogicalAnd && !ok {
			return false, nil
		}
		if logic == LogicalOr && ok {
			return true, nil
		}
	}

	// AND: every present key held. OR: no present key held.
	return logic == LogicalAnd, nil
}
