package engine

import "time"

// EventType marks the lifecycle phase of an engine operation
type EventType string

const (
	EventOpStart EventType = "op_start"
	EventOpEnd   EventType = "op_end"
	EventOpError EventType = "op_error"
)

// Event describes one operation lifecycle moment
type Event struct {
	Type      EventType // Lifecycle phase
	Op        string    // Operation name (insert, query, reindex, ...)
	OpID      string    // Unique operation ID for tracing
	Table     string    // Table the operation targets (may be empty)
	Timestamp time.Time // When the event occurred
	Data      any       // Phase-specific data (result counts, error, ...)
}

// Observer interface for event subscribers
// Observers receive events at operation start, end and failure
type Observer interface {
	OnEvent(event Event)
}
