package engine

import (
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/flatdb/internal/config"
	"github.com/leengari/flatdb/internal/domain/dberr"
	"github.com/leengari/flatdb/internal/index"
	"github.com/leengari/flatdb/internal/planner"
	"github.com/leengari/flatdb/internal/storage"
	"github.com/leengari/flatdb/internal/storage/lock"
)

// Engine is the single entry point for all table and index operations.
// Every public method validates up front, holds the table lock for the
// whole read-modify-write sequence, reports failures once at this
// boundary and returns a typed *dberr.Error.
type Engine struct {
	cfg       config.Config
	store     *storage.Store
	indexes   *index.Manager
	planner   *planner.Planner
	locks     *lock.Registry
	logger    *slog.Logger
	observers []Observer
}

// New wires up the engine's components from an explicit configuration.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	store, err := storage.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	indexes, err := index.NewManager(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		store:     store,
		indexes:   indexes,
		planner:   planner.New(indexes, logger),
		locks:     lock.NewRegistry(cfg.DataDir, cfg.Lock.FileLocks, cfg.Lock.WaitTimeout.Std()),
		logger:    logger,
		observers: make([]Observer, 0),
	}, nil
}

// AddObserver registers an observer to receive operation events.
func (e *Engine) AddObserver(observer Observer) {
	e.observers = append(e.observers, observer)
}

// RemoveObserver unregisters an observer. Func-backed observers are
// matched by code pointer, so unregister the same value that was
// registered rather than a fresh closure.
func (e *Engine) RemoveObserver(observer Observer) {
	for i, o := range e.observers {
		if observerEqual(o, observer) {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

// observerEqual reports whether two observers are the same subscriber.
// A plain == on the interface values would panic when the dynamic type
// is non-comparable, e.g. an observer built from a func type.
func observerEqual(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}

// notify sends an event to all registered observers
func (e *Engine) notify(event Event) {
	event.Timestamp = time.Now()
	for _, observer := range e.observers {
		observer.OnEvent(event)
	}
}

// begin opens an operation: assigns its ID and emits the start event.
func (e *Engine) begin(op, table string) string {
	opID := uuid.New().String()
	e.notify(Event{Type: EventOpStart, Op: op, OpID: opID, Table: table})
	return opID
}

// finish emits the end event for a successful operation.
func (e *Engine) finish(op, opID, table string, data any) {
	e.notify(Event{Type: EventOpEnd, Op: op, OpID: opID, Table: table, Data: data})
}

// fail is the single error-reporting boundary: it stamps the operation
// name onto the error, records one structured log entry, emits the
// error event and hands the failure back to the caller.
func (e *Engine) fail(op, opID, table string, err error) error {
	var de *dberr.Error
	if errors.As(err, &de) {
		de.Op = op
	}

	e.logger.Error("operation failed",
		slog.String("op", op),
		slog.String("op_id", opID),
		slog.String("table", table),
		slog.Any("error", err),
	)
	e.notify(Event{Type: EventOpError, Op: op, OpID: opID, Table: table, Data: err})
	return err
}

// acquire takes the exclusive per-table lock, translating a bounded
// wait expiry into the engine's lock-timeout error kind.
func (e *Engine) acquire(op, table string) (*lock.Handle, error) {
	h, err := e.locks.Acquire(table)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, dberr.NewLockTimeout(op, table)
		}
		return nil, dberr.NewIO(op, table, err)
	}
	return h, nil
}
