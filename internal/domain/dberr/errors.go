package dberr

import (
	"fmt"
	"strings"
)

// Kind classifies an engine failure so callers can branch on it
// without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindValidation
	KindNoMatch
	KindIO
	KindLockTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindValidation:
		return "validation"
	case KindNoMatch:
		return "no_match"
	case KindIO:
		return "io_failure"
	case KindLockTimeout:
		return "lock_timeout"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching on kind alone.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNoMatch       = &Error{Kind: KindNoMatch}
	ErrIO            = &Error{Kind: KindIO}
	ErrLockTimeout   = &Error{Kind: KindLockTimeout}
)

// Error is the single failure type crossing the engine boundary.
// Only Kind is always set; the context fields are filled with whatever
// the failing operation knows.
type Error struct {
	Kind   Kind
	Op     string // public operation name, e.g. "insert"
	Table  string // table name (empty if not table-scoped)
	Index  string // index name (empty if not index-scoped)
	Column string // column name (empty if not column-scoped)
	Reason string // human-readable explanation
	Err    error  // wrapped cause (IO errors mostly)
}

func (e *Error) Error() string {
	var parts []string

	parts = append(parts, e.Kind.String())

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}
	if e.Index != "" {
		parts = append(parts, fmt.Sprintf("index=%s", e.Index))
	}
	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("column=%s", e.Column))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so
// errors.Is(err, dberr.ErrNotFound) works regardless of context fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NewNotFound(op, table, reason string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Table: table, Reason: reason}
}

func NewAlreadyExists(op, table, reason string) *Error {
	return &Error{Kind: KindAlreadyExists, Op: op, Table: table, Reason: reason}
}

func NewValidation(op, reason string) *Error {
	return &Error{Kind: KindValidation, Op: op, Reason: reason}
}

func NewNoMatch(op, table string) *Error {
	return &Error{Kind: KindNoMatch, Op: op, Table: table, Reason: "filter matched no records"}
}

func NewIO(op, table string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Table: table, Err: err}
}

func NewLockTimeout(op, table string) *Error {
	return &Error{Kind: KindLockTimeout, Op: op, Table: table, Reason: "timed out waiting for table lock"}
}
